package proc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"bridge-keeper/internal/logger"
	"bridge-keeper/internal/models"
	"bridge-keeper/internal/utils"
)

/**
 * ProcessInstance 进程实例信息
 * @property {string} title - Display name used in logs
 * @property {string} processName - Executable name, identifies the process
 * @property {string} command - Start command
 * @property {[]string} args - Command arguments
 * @property {string} workDir - Working directory
 * @property {string} stdoutPath - File receiving the child's stdout (empty: inherit)
 * @property {string} stderrPath - File receiving the child's stderr (empty: inherit)
 * @property {models.RunStatus} status - running/exited/stopped/error
 */
type ProcessInstance struct {
	Title          string
	ProcessName    string
	Command        string
	Args           []string
	WorkDir        string
	StdoutPath     string
	StderrPath     string
	Status         models.RunStatus
	StartTime      time.Time
	LastExitTime   time.Time
	LastExitReason string

	process *os.Process
	done    chan struct{}
	mutex   sync.Mutex
}

/**
 * NewProcessInstance 创建新的进程实例
 * @param {string} title - Display name, unique per managed process
 * @param {string} procName - Executable name
 * @param {string} command - Start command
 * @param {[]string} args - Command arguments
 * @returns {*ProcessInstance} Returns the created instance, not yet started
 */
func NewProcessInstance(title, procName, command string, args []string) *ProcessInstance {
	return &ProcessInstance{
		Title:       title,
		ProcessName: procName,
		Command:     command,
		Args:        args,
		Status:      models.StatusExited,
	}
}

// SetLogFiles redirects the child's stdout/stderr to the given files.
func (pi *ProcessInstance) SetLogFiles(stdoutPath, stderrPath string) {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	pi.StdoutPath = stdoutPath
	pi.StderrPath = stderrPath
}

func (pi *ProcessInstance) Pid() int {
	if pi.process == nil {
		return 0
	}
	return pi.process.Pid
}

/**
 * Done returns a channel closed when the child exits
 * @returns {<-chan struct{}} Nil before StartProcess; a nil channel blocks forever in select
 */
func (pi *ProcessInstance) Done() <-chan struct{} {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	return pi.done
}

func (pi *ProcessInstance) GetDetail() models.ProcessDetail {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	return models.ProcessDetail{
		Title:          pi.Title,
		ProcessName:    pi.ProcessName,
		Command:        pi.Command,
		Args:           pi.Args,
		WorkDir:        pi.WorkDir,
		Status:         pi.Status,
		Pid:            pi.Pid(),
		StartTime:      pi.StartTime,
		LastExitTime:   pi.LastExitTime,
		LastExitReason: pi.LastExitReason,
	}
}

/**
 * StartProcess 启动进程
 * @param {context.Context} ctx - Cancelling the context terminates the child
 * @returns {error} Returns error if the process cannot be started
 * @description
 * - Opens the configured stdout/stderr log files before exec
 * - Puts the child in its own process group so a terminal interrupt hits
 *   the keeper first; ctx cancellation still kills the child directly
 * - Starts a goroutine that waits for the child and records its exit
 */
func (pi *ProcessInstance) StartProcess(ctx context.Context) error {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	if pi.Status == models.StatusRunning {
		return nil
	}
	fullCommand := pi.Command
	for _, arg := range pi.Args {
		fullCommand += " " + arg
	}
	logger.Infof("Executing command: %s", fullCommand)

	cmd := exec.CommandContext(ctx, pi.Command, pi.Args...)
	if pi.WorkDir != "" {
		cmd.Dir = pi.WorkDir
	}
	utils.SetNewPG(cmd)

	var logFiles []*os.File
	if pi.StdoutPath != "" {
		f, err := openLogFile(pi.StdoutPath)
		if err != nil {
			return err
		}
		cmd.Stdout = f
		logFiles = append(logFiles, f)
	}
	if pi.StderrPath != "" {
		if pi.StderrPath == pi.StdoutPath {
			cmd.Stderr = cmd.Stdout
		} else {
			f, err := openLogFile(pi.StderrPath)
			if err != nil {
				return err
			}
			cmd.Stderr = f
			logFiles = append(logFiles, f)
		}
	}

	if err := cmd.Start(); err != nil {
		for _, f := range logFiles {
			f.Close()
		}
		pi.Status = models.StatusError
		pi.LastExitReason = fmt.Sprintf("start failed: %v", err)
		logger.Errorf("Failed to start process '%s', error: %v", pi.Title, err)
		return err
	}

	pi.process = cmd.Process
	pi.Status = models.StatusRunning
	pi.StartTime = time.Now()
	pi.done = make(chan struct{})

	logger.Infof("Process '%s' started (PID: %d)", pi.Title, pi.Pid())

	go pi.watchProcess(cmd, logFiles)
	return nil
}

func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

/**
 * StopProcess 停止进程
 * @returns {error} Returns error if the kill fails
 */
func (pi *ProcessInstance) StopProcess() error {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	if pi.Status != models.StatusRunning {
		return nil
	}
	pi.Status = models.StatusStopped
	pi.LastExitTime = time.Now()
	pi.LastExitReason = "stopped by user"

	pid := pi.Pid()
	if pi.process != nil {
		if err := pi.process.Kill(); err != nil {
			logger.Errorf("Failed to kill process '%s' (PID: %d, NAME: %s)",
				pi.Title, pid, pi.ProcessName)
			return err
		}
	}

	logger.Infof("Process '%s' (PID: %d, NAME: %s) stopped",
		pi.Title, pid, pi.ProcessName)
	return nil
}

// CheckProcess reports whether the child is still alive, fixing up stale state.
func (pi *ProcessInstance) CheckProcess() bool {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	if pi.Status != models.StatusRunning || pi.process == nil {
		return false
	}
	running, err := utils.IsProcessRunning(pi.Pid())
	if err != nil || !running {
		logger.Warnf("Process '%s' (PID: %d, NAME: %s) isn't running", pi.Title, pi.Pid(), pi.ProcessName)
		pi.Status = models.StatusError
		return false
	}
	return true
}

/**
 * watchProcess 监控进程状态的协程
 * @description
 * - Waits for the child to exit and records exit time and reason
 * - Closes the done channel so monitor loops can observe the exit
 * - No automatic restart: the keeper only observes, the operator decides
 */
func (pi *ProcessInstance) watchProcess(cmd *exec.Cmd, logFiles []*os.File) {
	err := cmd.Wait()
	for _, f := range logFiles {
		f.Close()
	}

	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	if pi.Status == models.StatusStopped {
		logger.Infof("Process '%s' stopped by user", pi.Title)
	} else {
		pi.LastExitTime = time.Now()
		if err != nil {
			logger.Errorf("Process '%s' exited with error: %v", pi.Title, err)
			pi.LastExitReason = fmt.Sprintf("exited with error: %v", err)
		} else {
			logger.Infof("Process '%s' exited normally", pi.Title)
			pi.LastExitReason = "exited normally"
		}
		pi.Status = models.StatusExited
	}
	pi.process = nil
	close(pi.done)
}
