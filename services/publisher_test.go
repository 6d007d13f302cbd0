package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"bridge-keeper/internal/config"
	"bridge-keeper/internal/models"
)

type recordedCall struct {
	dir  string
	args string
}

type fakeRunner struct {
	calls   []recordedCall
	failDir string
}

func (f *fakeRunner) Run(ctx context.Context, dir string, command string, args ...string) error {
	f.calls = append(f.calls, recordedCall{dir: dir, args: strings.Join(args, " ")})
	if f.failDir != "" && dir == f.failDir {
		return errors.New("exit status 1")
	}
	return nil
}

func testPublishConfig(targets ...models.PublicationTarget) *config.PublishConfig {
	return &config.PublishConfig{
		Enabled:   true,
		Operators: []string{"jmann"},
		ForceEnv:  "TEST_ADMIN_TUNNEL",
		SkipEnv:   "TEST_SKIP_PUBLISH",
		Command:   "supabase",
		Secrets:   []string{"DATA_BRIDGE_URL", "BLOOMBERG_BRIDGE_URL"},
		Targets:   targets,
	}
}

func TestAuthorizedAllowlistedOperator(t *testing.T) {
	p := NewPublisherWithRunner(testPublishConfig(), &fakeRunner{}, "jmann")
	if ok, reason := p.Authorized(); !ok {
		t.Errorf("allow-listed operator must be authorized, got reason %q", reason)
	}
}

func TestAuthorizedUnknownOperator(t *testing.T) {
	p := NewPublisherWithRunner(testPublishConfig(), &fakeRunner{}, "intruder")
	if ok, _ := p.Authorized(); ok {
		t.Error("unknown operator must not be authorized")
	}
}

func TestAuthorizedDisabledConfig(t *testing.T) {
	cfg := testPublishConfig()
	cfg.Enabled = false
	p := NewPublisherWithRunner(cfg, &fakeRunner{}, "jmann")
	if ok, _ := p.Authorized(); ok {
		t.Error("disabled config must close the gate even for allow-listed operators")
	}
}

func TestAuthorizedForceOnOverridesConfig(t *testing.T) {
	cfg := testPublishConfig()
	cfg.Enabled = false
	t.Setenv("TEST_ADMIN_TUNNEL", "1")

	p := NewPublisherWithRunner(cfg, &fakeRunner{}, "intruder")
	if ok, _ := p.Authorized(); !ok {
		t.Error("force-on env flag must override config switch and allowlist")
	}
}

func TestAuthorizedForceOffWins(t *testing.T) {
	t.Setenv("TEST_ADMIN_TUNNEL", "1")
	t.Setenv("TEST_SKIP_PUBLISH", "1")

	p := NewPublisherWithRunner(testPublishConfig(), &fakeRunner{}, "jmann")
	if ok, _ := p.Authorized(); ok {
		t.Error("force-off must win when both env flags are set")
	}
}

func TestPublishGatedSkipsAllWork(t *testing.T) {
	runner := &fakeRunner{}
	p := NewPublisherWithRunner(testPublishConfig(models.PublicationTarget{
		ProjectDirectory: t.TempDir(),
		ProjectName:      "portfolio-app",
		ProjectRef:       "abcdefgh",
	}), runner, "intruder")

	result := p.Publish(context.Background(), "https://abc123.ngrok-free.app")
	if !result.Gated {
		t.Fatal("expected a gated result")
	}
	if len(runner.calls) != 0 {
		t.Errorf("gated publication must not run any CLI command, ran %d", len(runner.calls))
	}
}

func TestPublishLinkThenSecrets(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	p := NewPublisherWithRunner(testPublishConfig(models.PublicationTarget{
		ProjectDirectory: dir,
		ProjectName:      "portfolio-app",
		ProjectRef:       "abcdefgh",
	}), runner, "jmann")

	url := "https://abc123.ngrok-free.app"
	result := p.Publish(context.Background(), url)
	if result.Published() != 1 {
		t.Fatalf("expected 1 published target, got %d", result.Published())
	}

	want := []string{
		"link --project-ref abcdefgh",
		fmt.Sprintf("secrets set DATA_BRIDGE_URL=%s", url),
		fmt.Sprintf("secrets set BLOOMBERG_BRIDGE_URL=%s", url),
	}
	if len(runner.calls) != len(want) {
		t.Fatalf("expected %d CLI calls, got %d", len(want), len(runner.calls))
	}
	for i, call := range runner.calls {
		if call.dir != dir {
			t.Errorf("call %d ran in %s, want %s", i, call.dir, dir)
		}
		if call.args != want[i] {
			t.Errorf("call %d = %q, want %q", i, call.args, want[i])
		}
	}
}

func TestPublishMissingDirectorySkipped(t *testing.T) {
	valid := t.TempDir()
	runner := &fakeRunner{}
	p := NewPublisherWithRunner(testPublishConfig(
		models.PublicationTarget{
			ProjectDirectory: "/nonexistent/project",
			ProjectName:      "missing-app",
			ProjectRef:       "missing12",
		},
		models.PublicationTarget{
			ProjectDirectory: valid,
			ProjectName:      "portfolio-app",
			ProjectRef:       "abcdefgh",
		},
	), runner, "jmann")

	result := p.Publish(context.Background(), "https://abc123.ngrok-free.app")
	if result.Skipped() != 1 || result.Published() != 1 {
		t.Fatalf("expected 1 skipped + 1 published, got %d skipped, %d published",
			result.Skipped(), result.Published())
	}
	for _, call := range runner.calls {
		if call.dir != valid {
			t.Errorf("CLI ran in unexpected directory %s", call.dir)
		}
	}
}

func TestPublishCLIFailureDoesNotStopFanOut(t *testing.T) {
	failing := t.TempDir()
	healthy := t.TempDir()
	runner := &fakeRunner{failDir: failing}
	p := NewPublisherWithRunner(testPublishConfig(
		models.PublicationTarget{
			ProjectDirectory: failing,
			ProjectName:      "broken-app",
			ProjectRef:       "broken12",
		},
		models.PublicationTarget{
			ProjectDirectory: healthy,
			ProjectName:      "portfolio-app",
			ProjectRef:       "abcdefgh",
		},
	), runner, "jmann")

	result := p.Publish(context.Background(), "https://abc123.ngrok-free.app")
	if result.Failed() != 1 {
		t.Errorf("expected 1 failed target, got %d", result.Failed())
	}
	if result.Published() != 1 {
		t.Errorf("a CLI failure on one target must not stop the next, got %d published",
			result.Published())
	}
	if len(result.Results) != 2 {
		t.Fatalf("expected 2 per-target results, got %d", len(result.Results))
	}
	if result.Results[0].Outcome != models.OutcomeFailed {
		t.Errorf("first target outcome = %s, want %s", result.Results[0].Outcome, models.OutcomeFailed)
	}
	if result.Results[1].Outcome != models.OutcomePublished {
		t.Errorf("second target outcome = %s, want %s", result.Results[1].Outcome, models.OutcomePublished)
	}
}
