package task

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lifecycle(t *testing.T) {
	t.Parallel()

	t.Run("done is delivered once", func(t *testing.T) {
		t.Parallel()
		reg := NewRegistry(ClassText, 0)

		id, err := reg.Submit()
		require.NoError(t, err)

		res := reg.Poll(id)
		assert.Equal(t, StateProcessing, res.State)
		assert.Empty(t, res.Result)

		require.NoError(t, reg.Complete(id, "<p>hello</p>"))

		res = reg.Poll(id)
		assert.Equal(t, StateDone, res.State)
		assert.Equal(t, "<p>hello</p>", res.Result)
		assert.Equal(t, ClassText, res.Class)

		res = reg.Poll(id)
		assert.Equal(t, StateNotFound, res.State)
		assert.Equal(t, 0, reg.Len())
	})

	t.Run("failed is delivered once", func(t *testing.T) {
		t.Parallel()
		reg := NewRegistry(ClassImage, 0)

		id, err := reg.Submit()
		require.NoError(t, err)
		require.NoError(t, reg.Fail(id, "Error generating image: boom"))

		res := reg.Poll(id)
		assert.Equal(t, StateFailed, res.State)
		assert.Equal(t, "Error generating image: boom", res.Error)
		assert.Equal(t, StateNotFound, reg.Poll(id).State)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		reg := NewRegistry(ClassText, 0)

		assert.Equal(t, StateNotFound, reg.Poll(uuid.New()).State)
		assert.ErrorIs(t, reg.Complete(uuid.New(), "x"), ErrJobNotFound)
		assert.ErrorIs(t, reg.Fail(uuid.New(), "x"), ErrJobNotFound)
	})

	t.Run("terminal states are final", func(t *testing.T) {
		t.Parallel()
		reg := NewRegistry(ClassText, 0)

		id, err := reg.Submit()
		require.NoError(t, err)
		require.NoError(t, reg.Complete(id, "first"))

		assert.ErrorIs(t, reg.Complete(id, "second"), ErrInvalidTransition)
		assert.ErrorIs(t, reg.Fail(id, "late"), ErrInvalidTransition)

		res := reg.Poll(id)
		assert.Equal(t, StateDone, res.State)
		assert.Equal(t, "first", res.Result)
	})

	t.Run("ids are unique", func(t *testing.T) {
		t.Parallel()
		reg := NewRegistry(ClassText, 0)

		seen := make(map[uuid.UUID]bool)
		for i := 0; i < 100; i++ {
			id, err := reg.Submit()
			require.NoError(t, err)
			assert.False(t, seen[id])
			seen[id] = true
		}
		assert.Equal(t, 100, reg.Len())
	})
}

func TestRegistry_MaxPending(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(ClassText, 2)

	first, err := reg.Submit()
	require.NoError(t, err)
	_, err = reg.Submit()
	require.NoError(t, err)

	_, err = reg.Submit()
	assert.ErrorIs(t, err, ErrRegistryFull)

	// finishing a job frees a slot even before it is polled
	require.NoError(t, reg.Complete(first, "ok"))
	assert.Equal(t, 1, reg.Processing())

	_, err = reg.Submit()
	assert.NoError(t, err)
}

func TestRegistry_UnpolledJobsDoNotFillRegistry(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(ClassText, 3)

	var finished []uuid.UUID
	for i := 0; i < 3; i++ {
		id, err := reg.Submit()
		require.NoError(t, err)
		if i == 2 {
			require.NoError(t, reg.Fail(id, "generation failed"))
		} else {
			require.NoError(t, reg.Complete(id, "ok"))
		}
		finished = append(finished, id)
	}
	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, 0, reg.Processing())

	// nobody polled, yet new work is still accepted up to the cap
	var processing []uuid.UUID
	for i := 0; i < 3; i++ {
		id, err := reg.Submit()
		require.NoError(t, err)
		processing = append(processing, id)
	}
	_, err := reg.Submit()
	assert.ErrorIs(t, err, ErrRegistryFull)

	// discarding a processing job frees its slot
	assert.True(t, reg.Discard(processing[0]))
	_, err = reg.Submit()
	assert.NoError(t, err)

	// discarding a finished job does not change the processing count
	assert.True(t, reg.Discard(finished[0]))
	assert.Equal(t, 3, reg.Processing())
	_, err = reg.Submit()
	assert.ErrorIs(t, err, ErrRegistryFull)

	assert.Equal(t, StateDone, reg.Poll(finished[1]).State)
	assert.Equal(t, StateFailed, reg.Poll(finished[2]).State)
}

func TestRegistry_Discard(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(ClassText, 0)

	id, err := reg.Submit()
	require.NoError(t, err)

	assert.True(t, reg.Discard(id))
	assert.False(t, reg.Discard(id))
	assert.Equal(t, StateNotFound, reg.Poll(id).State)
}

func TestRegistry_ConcurrentPollersSeeResultOnce(t *testing.T) {
	t.Parallel()

	for round := 0; round < 20; round++ {
		reg := NewRegistry(ClassText, 0)
		id, err := reg.Submit()
		require.NoError(t, err)
		require.NoError(t, reg.Complete(id, "answer"))

		var delivered, notFound int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				switch reg.Poll(id).State {
				case StateDone:
					atomic.AddInt32(&delivered, 1)
				case StateNotFound:
					atomic.AddInt32(&notFound, 1)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), delivered)
		assert.Equal(t, int32(15), notFound)
	}
}

func TestRegistry_SweepOrphans(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(ClassImage, 0)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	stale, err := reg.Submit()
	require.NoError(t, err)
	require.NoError(t, reg.Complete(stale, "old.webp"))

	running, err := reg.Submit()
	require.NoError(t, err)

	now = now.Add(10 * time.Minute)

	fresh, err := reg.Submit()
	require.NoError(t, err)
	require.NoError(t, reg.Fail(fresh, "recent"))

	removed := reg.SweepOrphans(5 * time.Minute)

	assert.Equal(t, 1, removed)
	assert.Equal(t, StateNotFound, reg.Poll(stale).State)
	assert.Equal(t, StateProcessing, reg.Poll(running).State)
	assert.Equal(t, StateFailed, reg.Poll(fresh).State)
}

func TestClass_FailureMessage(t *testing.T) {
	t.Parallel()

	err := assert.AnError
	assert.Equal(t, "Error: "+err.Error(), ClassText.FailureMessage(err))
	assert.Equal(t, "Error generating image: "+err.Error(), ClassImage.FailureMessage(err))
}
