package coordinator

import (
	"context"
	"log/slog"
)

// step is one forward action in a lifecycle pipeline, optionally paired
// with a compensating action. A nil compensate means the step is
// accepted as irreversible: nothing is undone when a later step fails.
type step struct {
	name       string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// saga executes forward steps strictly in order, keeping an in-process
// log of applied steps. On the first failure it walks the log in reverse
// and invokes each configured compensation best effort: a compensation
// failure is logged and collected, never allowed to mask the original
// error. The log lives only for the duration of one call.
type saga struct {
	logger  *slog.Logger
	steps   []step
	applied []step

	failedStep       string
	compensationsRun int
	compensationErrs []compensationFailure
}

type compensationFailure struct {
	step string
	err  error
}

func newSaga(logger *slog.Logger) *saga {
	return &saga{logger: logger}
}

func (s *saga) add(st step) {
	s.steps = append(s.steps, st)
}

// execute runs the pipeline. The returned error is always the forward
// failure; inspect failedStep and compensationErrs for what happened on
// the way down.
func (s *saga) execute(ctx context.Context) error {
	for _, st := range s.steps {
		if err := st.run(ctx); err != nil {
			s.failedStep = st.name
			s.unwind(ctx)
			return err
		}
		s.applied = append(s.applied, st)
	}
	return nil
}

func (s *saga) unwind(ctx context.Context) {
	for i := len(s.applied) - 1; i >= 0; i-- {
		st := s.applied[i]
		if st.compensate == nil {
			continue
		}
		s.compensationsRun++
		if err := st.compensate(ctx); err != nil {
			s.compensationErrs = append(s.compensationErrs, compensationFailure{step: st.name, err: err})
			s.logger.ErrorContext(ctx, "compensation failed",
				"step", st.name,
				"error", err,
			)
			continue
		}
		s.logger.InfoContext(ctx, "compensation applied", "step", st.name)
	}
}
