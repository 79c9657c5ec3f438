package sagas

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Step is a single step in a saga. Execute performs the step's write;
// Compensate undoes it if a later step fails.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga orchestrates a series of writes that must commit together or
// not at all. On a step failure the compensations of every completed
// step run in reverse order. The rollup commit (summary node plus all
// parent back-links) is the primary user: either everything is
// committed, or the sources remain un-rolled for the next pass.
type Saga struct {
	name   string
	steps  []Step
	logger *zap.Logger
}

// New creates a new saga instance
func New(name string, logger *zap.Logger) *Saga {
	return &Saga{
		name:   name,
		steps:  make([]Step, 0),
		logger: logger,
	}
}

// AddStep appends a step to the saga
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs all steps in order. The first failing step aborts the
// saga; completed steps are compensated in reverse before the original
// error is returned.
func (s *Saga) Execute(ctx context.Context) error {
	completed := 0

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			s.compensate(ctx, completed)
			return err
		}

		if err := step.Execute(ctx); err != nil {
			s.logger.Debug("saga step failed, compensating",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Int("completed", completed),
				zap.Error(err),
			)
			s.compensate(ctx, completed)
			return fmt.Errorf("saga %s failed at step %s: %w", s.name, step.Name, err)
		}
		completed = i + 1
	}

	return nil
}

// compensate undoes the first n completed steps in reverse order.
// Compensation runs on a detached basis: a canceled caller context
// must not prevent the undo writes.
func (s *Saga) compensate(ctx context.Context, n int) {
	compCtx := context.WithoutCancel(ctx)
	for i := n - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(compCtx); err != nil {
			s.logger.Error("saga compensation failed",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
		}
	}
}
