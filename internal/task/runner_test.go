package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T, config RunnerConfig) *Runner {
	t.Helper()
	runner := NewRunner(config, setupTestLogger())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = runner.Stop(ctx)
	})
	return runner
}

// pollUntilTerminal polls until the job leaves the processing state
func pollUntilTerminal(t *testing.T, runner *Runner, class Class, id uuid.UUID) PollResult {
	t.Helper()
	var res PollResult
	require.Eventually(t, func() bool {
		var err error
		res, err = runner.Poll(class, id)
		require.NoError(t, err)
		return res.State != StateProcessing
	}, 5*time.Second, 5*time.Millisecond)
	return res
}

func TestRunner_Dispatch(t *testing.T) {
	t.Parallel()

	t.Run("success result is consumed once", func(t *testing.T) {
		t.Parallel()
		runner := newTestRunner(t, DefaultRunnerConfig())
		runner.Start()

		id, err := runner.Dispatch(ClassText, func(id uuid.UUID) (Task, error) {
			return NewMockTask(id, ClassText, "<p>hi</p>"), nil
		})
		require.NoError(t, err)

		res := pollUntilTerminal(t, runner, ClassText, id)
		assert.Equal(t, StateDone, res.State)
		assert.Equal(t, "<p>hi</p>", res.Result)

		res, err = runner.Poll(ClassText, id)
		require.NoError(t, err)
		assert.Equal(t, StateNotFound, res.State)
	})

	t.Run("failure message carries class prefix", func(t *testing.T) {
		t.Parallel()
		runner := newTestRunner(t, DefaultRunnerConfig())
		runner.Start()

		id, err := runner.Dispatch(ClassImage, func(id uuid.UUID) (Task, error) {
			return &MockTask{
				TaskID:    id,
				TaskClass: ClassImage,
				ExecuteFn: func(ctx context.Context) (string, error) {
					return "", errors.New("space unavailable")
				},
			}, nil
		})
		require.NoError(t, err)

		res := pollUntilTerminal(t, runner, ClassImage, id)
		assert.Equal(t, StateFailed, res.State)
		assert.Equal(t, "Error generating image: space unavailable", res.Error)
	})

	t.Run("classes are independent", func(t *testing.T) {
		t.Parallel()
		runner := newTestRunner(t, DefaultRunnerConfig())
		runner.Start()

		id, err := runner.Dispatch(ClassText, func(id uuid.UUID) (Task, error) {
			return NewMockTask(id, ClassText, "text"), nil
		})
		require.NoError(t, err)

		res, err := runner.Poll(ClassImage, id)
		require.NoError(t, err)
		assert.Equal(t, StateNotFound, res.State)

		assert.Equal(t, StateDone, pollUntilTerminal(t, runner, ClassText, id).State)
	})

	t.Run("unknown class", func(t *testing.T) {
		t.Parallel()
		runner := newTestRunner(t, DefaultRunnerConfig())

		_, err := runner.Dispatch(Class("audio"), func(id uuid.UUID) (Task, error) {
			return NewMockTask(id, "audio", ""), nil
		})
		assert.ErrorIs(t, err, ErrUnknownClass)

		_, err = runner.Poll(Class("audio"), uuid.New())
		assert.ErrorIs(t, err, ErrUnknownClass)
	})

	t.Run("build error leaves no entry", func(t *testing.T) {
		t.Parallel()
		runner := newTestRunner(t, DefaultRunnerConfig())

		_, err := runner.Dispatch(ClassText, func(id uuid.UUID) (Task, error) {
			return nil, ErrNilGenerator
		})
		assert.ErrorIs(t, err, ErrNilGenerator)
		assert.Equal(t, 0, runner.Registry(ClassText).Len())
	})

	t.Run("full queue leaves no entry", func(t *testing.T) {
		t.Parallel()
		config := DefaultRunnerConfig()
		config.QueueSize = 1
		// not started, so nothing drains the queue
		runner := newTestRunner(t, config)

		_, err := runner.Dispatch(ClassText, func(id uuid.UUID) (Task, error) {
			return NewMockTask(id, ClassText, ""), nil
		})
		require.NoError(t, err)

		_, err = runner.Dispatch(ClassText, func(id uuid.UUID) (Task, error) {
			return NewMockTask(id, ClassText, ""), nil
		})
		assert.ErrorIs(t, err, ErrQueueFull)
		assert.Equal(t, 1, runner.Registry(ClassText).Len())
	})

	t.Run("full registry", func(t *testing.T) {
		t.Parallel()
		config := DefaultRunnerConfig()
		config.MaxPendingJobs = 1
		runner := newTestRunner(t, config)

		_, err := runner.Dispatch(ClassText, func(id uuid.UUID) (Task, error) {
			return NewMockTask(id, ClassText, ""), nil
		})
		require.NoError(t, err)

		_, err = runner.Dispatch(ClassText, func(id uuid.UUID) (Task, error) {
			return NewMockTask(id, ClassText, ""), nil
		})
		assert.ErrorIs(t, err, ErrRegistryFull)
	})
}

func TestRunner_StopFinishesQueuedJobs(t *testing.T) {
	t.Parallel()

	config := DefaultRunnerConfig()
	config.WorkerCount = 1
	runner := NewRunner(config, setupTestLogger())

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		id, err := runner.Dispatch(ClassText, func(id uuid.UUID) (Task, error) {
			return NewMockTask(id, ClassText, "ok"), nil
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runner.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runner.Stop(ctx))

	for _, id := range ids {
		res, err := runner.Poll(ClassText, id)
		require.NoError(t, err)
		assert.Equal(t, StateDone, res.State)
	}
}

func TestRunner_OrphanSweeper(t *testing.T) {
	t.Parallel()

	config := DefaultRunnerConfig()
	config.OrphanTTL = time.Millisecond
	config.OrphanCheckInterval = 10 * time.Millisecond
	runner := newTestRunner(t, config)
	runner.Start()

	id, err := runner.Dispatch(ClassText, func(id uuid.UUID) (Task, error) {
		return NewMockTask(id, ClassText, "never read"), nil
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return runner.Registry(ClassText).Len() == 0
	}, 5*time.Second, 10*time.Millisecond)

	res, err := runner.Poll(ClassText, id)
	require.NoError(t, err)
	assert.Equal(t, StateNotFound, res.State)
}
