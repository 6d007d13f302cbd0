package env

import (
	"os"
	"path/filepath"
)

var Daemon bool = false
var ListenPort int = 0

// (default: %USERPROFILE%/.bridge-keeper on Windows, $HOME/.bridge-keeper on Linux)
var KeeperDir string = GetKeeperDir()

/**
 * Get bridge-keeper directory path
 * @returns {string} Returns bridge-keeper directory path
 */
func GetKeeperDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".bridge-keeper")
}

/**
 * Get current operator login name
 * @returns {string} Returns the login name of the user running the keeper
 * @description
 * - Checks USER (POSIX) then USERNAME (Windows) environment variables
 * - Used by the publication authorization gate
 */
func OperatorName() string {
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return os.Getenv("USERNAME")
}
