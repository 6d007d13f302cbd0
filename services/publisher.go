package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"bridge-keeper/internal/config"
	"bridge-keeper/internal/env"
	"bridge-keeper/internal/logger"
	"bridge-keeper/internal/models"
)

// CommandRunner executes one secret-store CLI invocation in a project
// directory. Success is exit code 0.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir string, command string, args ...string) error {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w (%s)", command, strings.Join(args, " "), err,
			strings.TrimSpace(string(output)))
	}
	return nil
}

/**
 * Publisher fans the tunnel URL out to dependent projects' secret stores
 * @property {string} operator - Login name of the user running the keeper
 * @description
 * - Publication is best-effort fan-out, not all-or-nothing delivery:
 *   a missing project directory or a CLI failure on one target never
 *   affects the remaining targets
 */
type Publisher struct {
	cfg      *config.PublishConfig
	runner   CommandRunner
	operator string
}

func NewPublisher() *Publisher {
	return &Publisher{
		cfg:      &config.Config.Publish,
		runner:   execRunner{},
		operator: env.OperatorName(),
	}
}

// NewPublisherWithRunner is used by tests to substitute the CLI runner.
func NewPublisherWithRunner(cfg *config.PublishConfig, runner CommandRunner, operator string) *Publisher {
	return &Publisher{cfg: cfg, runner: runner, operator: operator}
}

/**
 * Authorized decides whether publication may proceed
 * @returns {(bool, string)} Decision and the reason when publication is skipped
 * @description
 * - The force-off env flag wins over everything, including force-on:
 *   with both flags set the safer interpretation is to skip
 * - The force-on env flag overrides the config switch and allowlist
 * - Otherwise publication requires the config switch plus an allow-listed
 *   operator name; a closed gate is an authorization decision, not an error
 */
func (p *Publisher) Authorized() (bool, string) {
	if os.Getenv(p.cfg.SkipEnv) != "" {
		return false, fmt.Sprintf("publication forced off by %s", p.cfg.SkipEnv)
	}
	if os.Getenv(p.cfg.ForceEnv) != "" {
		return true, ""
	}
	if !p.cfg.Enabled {
		return false, "publication disabled in configuration"
	}
	for _, name := range p.cfg.Operators {
		if name == p.operator {
			return true, ""
		}
	}
	return false, fmt.Sprintf("operator %q is not allowed to publish", p.operator)
}

/**
 * Publish the tunnel URL to every configured target
 * @param {context.Context} ctx - Context for CLI cancellation
 * @param {string} url - Public tunnel URL to publish
 * @returns {*models.PublicationResult} Per-target outcomes; never an error
 * @description
 * - When the authorization gate is closed, publication is skipped entirely
 *   (not attempted) and the result records the reason
 * - Per target: link the project ref, then set each configured secret to
 *   the URL; a CLI failure is recorded and the next target still runs
 */
func (p *Publisher) Publish(ctx context.Context, url string) *models.PublicationResult {
	result := &models.PublicationResult{URL: url}

	if ok, reason := p.Authorized(); !ok {
		logger.Infof("Skipping publication: %s", reason)
		result.Gated = true
		result.GateReason = reason
		return result
	}

	for _, target := range p.cfg.Targets {
		result.Results = append(result.Results, p.publishTarget(ctx, target, url))
	}

	logger.Infof("Publication finished: %d published, %d skipped, %d failed",
		result.Published(), result.Skipped(), result.Failed())
	return result
}

func (p *Publisher) publishTarget(ctx context.Context, target models.PublicationTarget, url string) models.TargetResult {
	if info, err := os.Stat(target.ProjectDirectory); err != nil || !info.IsDir() {
		logger.Warnf("Project directory %s for target %s does not exist, skipping",
			target.ProjectDirectory, target.ProjectName)
		RecordPublication(target.ProjectName, models.OutcomeSkipped)
		return models.TargetResult{
			Target:  target,
			Outcome: models.OutcomeSkipped,
			Detail:  "project directory does not exist",
		}
	}

	steps := [][]string{
		{"link", "--project-ref", target.ProjectRef},
	}
	for _, secret := range p.cfg.Secrets {
		steps = append(steps, []string{"secrets", "set", fmt.Sprintf("%s=%s", secret, url)})
	}

	for _, args := range steps {
		if err := p.runner.Run(ctx, target.ProjectDirectory, p.cfg.Command, args...); err != nil {
			logger.Errorf("Publication to target %s failed: %v", target.ProjectName, err)
			RecordPublication(target.ProjectName, models.OutcomeFailed)
			return models.TargetResult{
				Target:  target,
				Outcome: models.OutcomeFailed,
				Detail:  err.Error(),
			}
		}
	}

	logger.Infof("Published tunnel URL to target %s (%s)", target.ProjectName, target.ProjectRef)
	RecordPublication(target.ProjectName, models.OutcomePublished)
	return models.TargetResult{Target: target, Outcome: models.OutcomePublished}
}
