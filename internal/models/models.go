package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/gi4nks/promptchain/internal/errors"
)

// RunState is the lifecycle of a single chain run.
type RunState int

const (
	StateIdle RunState = iota
	StateRunning
	StateCompleted
	StateFailed
)

var stateNames = map[RunState]string{
	StateIdle:      "idle",
	StateRunning:   "running",
	StateCompleted: "completed",
	StateFailed:    "failed",
}

func (s RunState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("RunState(%d)", int(s))
}

// Terminal reports whether no further transition is possible for the run.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RunState) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown run state %q", string(text))
}

// ChainRequest is the input of one chain run.
type ChainRequest struct {
	Credential               string `json:"-" yaml:"-"`
	SystemPrompt             string `json:"system_prompt" yaml:"system_prompt"`
	FirstUserPrompt          string `json:"first_prompt" yaml:"first_prompt"`
	SubsequentPromptTemplate string `json:"next_prompt,omitempty" yaml:"next_prompt,omitempty"`
	RepeatCount              int    `json:"count" yaml:"count"`
}

// Validate checks the required fields. The subsequent template is only
// required when more than one step will run.
func (r ChainRequest) Validate() error {
	switch {
	case r.Credential == "":
		return errors.NewValidationError("credential is required")
	case r.SystemPrompt == "":
		return errors.NewValidationError("system prompt is required")
	case r.FirstUserPrompt == "":
		return errors.NewValidationError("first user prompt is required")
	case r.RepeatCount < 1:
		return errors.NewValidationError(fmt.Sprintf("repeat count must be at least 1, got %d", r.RepeatCount))
	case r.RepeatCount > 1 && r.SubsequentPromptTemplate == "":
		return errors.NewValidationError("subsequent prompt template is required when repeat count is greater than 1")
	}
	return nil
}

// WithoutCredential returns a copy safe to keep in the run store.
func (r ChainRequest) WithoutCredential() ChainRequest {
	r.Credential = ""
	return r
}

// ChainStep records one completion call of a run.
type ChainStep struct {
	ID               string    `json:"id" yaml:"id"`
	SystemPromptUsed string    `json:"system_prompt_used" yaml:"system_prompt_used"`
	UserPromptUsed   string    `json:"user_prompt_used" yaml:"user_prompt_used"`
	ResponseText     string    `json:"response_text" yaml:"response_text"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
}

// Run is the record a collaborator keeps for one execution.
type Run struct {
	ID         string       `json:"id"`
	Request    ChainRequest `json:"request"`
	State      RunState     `json:"state"`
	Steps      []ChainStep  `json:"steps"`
	Error      string       `json:"error,omitempty"`
	ErrorKind  string       `json:"error_kind,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at,omitempty"`
}

// Responses returns the response text of each step, in order.
func (r Run) Responses() []string {
	return lo.Map(r.Steps, func(s ChainStep, _ int) string {
		return s.ResponseText
	})
}

// Duration is zero while the run is in flight.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r Run) Clone() Run {
	clone := r
	clone.Steps = make([]ChainStep, len(r.Steps))
	copy(clone.Steps, r.Steps)
	return clone
}

func (r Run) AsSummary() string {
	prompt := strings.ReplaceAll(r.Request.FirstUserPrompt, "\n", " ")
	if len(prompt) > 40 {
		prompt = prompt[:37] + "..."
	}
	return fmt.Sprintf("{%s} [%s, %s, %d/%d] %s",
		r.StartedAt.Format("02.01.2006 15:04:05"), r.ID, r.State, len(r.Steps), r.Request.RepeatCount, prompt)
}
