package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runs struct {
	mu  sync.Mutex
	ids []string
}

func (r *runs) job(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ids = append(r.ids, id)
}

func (r *runs) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.ids...)
}

func TestScheduler_RunsOnce(t *testing.T) {
	var got runs

	s := New(slog.Default(), got.job)
	t.Cleanup(func() {
		_ = s.Stop(context.Background())
	})

	_, err := s.After("wf-1", 0)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(got.all()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"wf-1"}, got.all())

	assert.Eventually(t, func() bool {
		return len(s.Pending()) == 0
	}, time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, got.all(), 1)
}

func TestScheduler_Delay(t *testing.T) {
	var got runs

	s := New(slog.Default(), got.job)
	t.Cleanup(func() {
		_ = s.Stop(context.Background())
	})

	fixed := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	at, err := s.After("wf-2", 15)
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(15*time.Minute), at)

	_, err = s.At("wf-3", time.Now().Add(time.Hour))
	require.NoError(t, err)

	assert.Contains(t, s.Pending(), "wf-3")
}

func TestScheduler_Validation(t *testing.T) {
	s := New(slog.Default(), func(context.Context, string) {})

	_, err := s.After("", 1)
	require.ErrorIs(t, err, ErrEmptyID)

	_, err = s.After("wf-1", -1)
	require.ErrorIs(t, err, ErrNegativeDelay)

	_, err = s.At("wf-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, s.Stop(t.Context()))
	assert.Empty(t, s.Pending())

	_, err = s.After("wf-1", 1)
	require.ErrorIs(t, err, ErrStopped)
}

func TestOnce_Next(t *testing.T) {
	now := time.Now()
	o := &once{at: now.Add(-time.Minute)}

	assert.Equal(t, now, o.Next(now))
	assert.True(t, o.Next(now).IsZero())
}
