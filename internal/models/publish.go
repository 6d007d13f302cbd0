package models

/**
 * PublicationTarget is a downstream project that must learn the tunnel URL
 * @property {string} projectDirectory - Local checkout of the dependent project
 * @property {string} projectName - Display name used in logs
 * @property {string} projectRef - Secret-store project reference passed to the CLI
 */
type PublicationTarget struct {
	ProjectDirectory string `json:"projectDirectory" mapstructure:"project_directory"`
	ProjectName      string `json:"projectName" mapstructure:"project_name"`
	ProjectRef       string `json:"projectRef" mapstructure:"project_ref"`
}

type TargetOutcome string

const (
	// secrets were set for the target
	OutcomePublished TargetOutcome = "published"
	// target was skipped (missing project directory)
	OutcomeSkipped TargetOutcome = "skipped"
	// the secret-store CLI returned a non-zero exit for the target
	OutcomeFailed TargetOutcome = "failed"
)

// TargetResult records the outcome of publishing to one target.
type TargetResult struct {
	Target  PublicationTarget `json:"target"`
	Outcome TargetOutcome     `json:"outcome"`
	Detail  string            `json:"detail,omitempty"`
}

/**
 * PublicationResult summarizes a best-effort fan-out of the tunnel URL
 * @property {string} url - URL that was published
 * @property {bool} gated - True when the authorization gate skipped publication entirely
 * @property {string} gateReason - Why publication was skipped (empty unless gated)
 * @property {[]TargetResult} results - Per-target outcomes, in configuration order
 */
type PublicationResult struct {
	URL        string         `json:"url"`
	Gated      bool           `json:"gated"`
	GateReason string         `json:"gateReason,omitempty"`
	Results    []TargetResult `json:"results"`
}

func (r *PublicationResult) count(o TargetOutcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

func (r *PublicationResult) Published() int { return r.count(OutcomePublished) }

func (r *PublicationResult) Skipped() int { return r.count(OutcomeSkipped) }

func (r *PublicationResult) Failed() int { return r.count(OutcomeFailed) }
