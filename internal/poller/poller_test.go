package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadSchedule(t *testing.T) {
	_, err := New(Config{Schedule: "every evening"}, CycleFunc(func(context.Context) error { return nil }), nil)
	assert.ErrorContains(t, err, "parse schedule")
}

func TestNew_DefaultSchedule(t *testing.T) {
	p, err := New(Config{}, CycleFunc(func(context.Context) error { return nil }), nil)
	require.NoError(t, err)
	assert.Equal(t, "0 18 * * 1-5", p.cfg.Schedule)
}

func TestPoller_RunOnStart(t *testing.T) {
	var runs atomic.Int32
	ran := make(chan struct{}, 1)
	p, err := New(Config{Schedule: "0 18 * * 1-5", RunOnStart: true}, CycleFunc(func(context.Context) error {
		runs.Add(1)
		ran <- struct{}{}
		return nil
	}), nil)
	require.NoError(t, err)

	require.NoError(t, p.Start(context.Background()))
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("cycle did not run on start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
	assert.EqualValues(t, 1, runs.Load())
}

func TestPoller_SkipsOverlappingCycle(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	p, err := New(Config{}, CycleFunc(func(context.Context) error {
		close(started)
		<-release
		return nil
	}), nil)
	require.NoError(t, err)

	done := make(chan bool)
	go func() { done <- p.Trigger() }()
	<-started

	assert.True(t, p.Running())
	assert.False(t, p.Trigger(), "second trigger should be skipped")
	assert.EqualValues(t, 1, p.skipped.Load())

	close(release)
	assert.True(t, <-done)
	assert.False(t, p.Running())
}

func TestPoller_StopCancelsCycle(t *testing.T) {
	cancelled := make(chan error, 1)
	p, err := New(Config{RunOnStart: true}, CycleFunc(func(ctx context.Context) error {
		<-ctx.Done()
		cancelled <- ctx.Err()
		return ctx.Err()
	}), nil)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	require.Eventually(t, p.Running, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
	assert.True(t, errors.Is(<-cancelled, context.Canceled))
}

func TestPoller_CycleTimeout(t *testing.T) {
	var got error
	p, err := New(Config{Timeout: 20 * time.Millisecond}, CycleFunc(func(ctx context.Context) error {
		<-ctx.Done()
		got = ctx.Err()
		return got
	}), nil)
	require.NoError(t, err)

	assert.True(t, p.Trigger())
	assert.ErrorIs(t, got, context.DeadlineExceeded)
}
