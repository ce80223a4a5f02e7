package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaga_ExecutesInOrder(t *testing.T) {
	var order []string
	sg := newSaga(slog.Default())
	sg.add(step{name: "first", run: func(context.Context) error {
		order = append(order, "first")
		return nil
	}})
	sg.add(step{name: "second", run: func(context.Context) error {
		order = append(order, "second")
		return nil
	}})

	err := sg.execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Empty(t, sg.failedStep)
}

func TestSaga_UnwindsAppliedStepsInReverse(t *testing.T) {
	var undone []string
	boom := errors.New("boom")

	sg := newSaga(slog.Default())
	sg.add(step{
		name: "a",
		run:  func(context.Context) error { return nil },
		compensate: func(context.Context) error {
			undone = append(undone, "a")
			return nil
		},
	})
	sg.add(step{
		name: "b",
		run:  func(context.Context) error { return nil },
		compensate: func(context.Context) error {
			undone = append(undone, "b")
			return nil
		},
	})
	sg.add(step{name: "c", run: func(context.Context) error { return boom }})

	err := sg.execute(context.Background())
	assert.Equal(t, boom, err)
	assert.Equal(t, "c", sg.failedStep)
	assert.Equal(t, []string{"b", "a"}, undone)
	assert.Equal(t, 2, sg.compensationsRun)
}

func TestSaga_FailedStepDoesNotCompensateItself(t *testing.T) {
	compensated := false
	sg := newSaga(slog.Default())
	sg.add(step{
		name: "only",
		run:  func(context.Context) error { return errors.New("boom") },
		compensate: func(context.Context) error {
			compensated = true
			return nil
		},
	})

	_ = sg.execute(context.Background())
	assert.False(t, compensated)
	assert.Zero(t, sg.compensationsRun)
}

func TestSaga_CompensationFailureDoesNotMaskOriginal(t *testing.T) {
	original := errors.New("forward failure")
	undoErr := errors.New("undo failure")

	sg := newSaga(slog.Default())
	sg.add(step{
		name:       "applied",
		run:        func(context.Context) error { return nil },
		compensate: func(context.Context) error { return undoErr },
	})
	sg.add(step{name: "failing", run: func(context.Context) error { return original }})

	err := sg.execute(context.Background())
	assert.Equal(t, original, err)
	require.Len(t, sg.compensationErrs, 1)
	assert.Equal(t, "applied", sg.compensationErrs[0].step)
	assert.Equal(t, undoErr, sg.compensationErrs[0].err)
}

func TestSaga_StepsWithoutCompensationAreSkippedOnUnwind(t *testing.T) {
	sg := newSaga(slog.Default())
	sg.add(step{name: "irreversible", run: func(context.Context) error { return nil }})
	sg.add(step{name: "failing", run: func(context.Context) error { return errors.New("boom") }})

	_ = sg.execute(context.Background())
	assert.Zero(t, sg.compensationsRun)
	assert.Empty(t, sg.compensationErrs)
}
