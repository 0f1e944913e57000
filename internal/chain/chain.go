package chain

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gi4nks/promptchain/internal/completion"
	"github.com/gi4nks/promptchain/internal/errors"
	"github.com/gi4nks/promptchain/internal/models"
)

// PreviousResponseLabel introduces the previous step's output in follow-up prompts.
const PreviousResponseLabel = "previous response"

// StepObserver is told about every step as soon as it completes. It cannot
// alter the run; the transcript is still only returned on full success.
type StepObserver func(step models.ChainStep, index, total int)

// Option configures an Executor.
type Option func(*Executor)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// Executor runs prompt chains against a completion client.
type Executor struct {
	logger *zap.Logger
	client completion.Client
	now    func() time.Time
}

// NewExecutor creates a new chain executor
func NewExecutor(logger *zap.Logger, client completion.Client, opts ...Option) *Executor {
	e := &Executor{
		logger: logger,
		client: client,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildPrompt returns the user prompt for step index. Step 0 uses the first
// prompt verbatim; later steps append the previous response to the template
// without any trimming.
func BuildPrompt(req models.ChainRequest, index int, lastResponse string) string {
	if index == 0 {
		return req.FirstUserPrompt
	}
	return req.SubsequentPromptTemplate + "\n\n" + PreviousResponseLabel + ":\n" + lastResponse
}

// StepID is unique within a run: the run start in milliseconds and the step index.
func StepID(runStart time.Time, index int) string {
	return fmt.Sprintf("%d-%d", runStart.UnixMilli(), index)
}

// Execute issues req.RepeatCount sequential completion calls, threading each
// response into the next prompt. The first failing call aborts the run and its
// error is returned unchanged; no partial transcript is returned.
func (e *Executor) Execute(ctx context.Context, req models.ChainRequest, observers ...StepObserver) ([]models.ChainStep, error) {
	if err := req.Validate(); err != nil {
		e.logger.Debug("Rejecting invalid chain request", zap.Error(err))
		return nil, err
	}

	runStart := e.now()
	steps := make([]models.ChainStep, 0, req.RepeatCount)
	lastResponse := ""

	e.logger.Info("Executing prompt chain", zap.Int("repeatCount", req.RepeatCount))

	for i := 0; i < req.RepeatCount; i++ {
		prompt := BuildPrompt(req, i, lastResponse)

		e.logger.Debug("Executing chain step",
			zap.Int("step", i),
			zap.Int("promptLength", len(prompt)))

		response, err := e.client.Complete(ctx, req.Credential, []completion.Message{
			completion.SystemMessage(req.SystemPrompt),
			completion.UserMessage(prompt),
		})
		if err != nil {
			e.logger.Info("Chain execution stopped due to failure",
				zap.Int("failedStep", i),
				zap.String("errorKind", errors.Code(err)),
				zap.Error(err))
			return nil, err
		}

		lastResponse = response
		step := models.ChainStep{
			ID:               StepID(runStart, i),
			SystemPromptUsed: req.SystemPrompt,
			UserPromptUsed:   prompt,
			ResponseText:     lastResponse,
			CreatedAt:        e.now(),
		}
		steps = append(steps, step)

		for _, observe := range observers {
			observe(step, i, req.RepeatCount)
		}
	}

	e.logger.Info("Chain execution completed",
		zap.Int("steps", len(steps)),
		zap.Duration("duration", e.now().Sub(runStart)))

	return steps, nil
}
