package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAddJobRejectsBadSpec(t *testing.T) {
	s := NewCronScheduler(nil)
	err := s.AddJob(JobFunc{JobName: "sync", Fn: func(context.Context) error { return nil }}, "every tuesday")
	require.Error(t, err)
	require.Empty(t, s.cron.Entries())
}

func TestAddJobAcceptsDescriptors(t *testing.T) {
	s := NewCronScheduler(nil)
	job := JobFunc{JobName: "sync", Fn: func(context.Context) error { return nil }}
	require.NoError(t, s.AddJob(job, "@every 1h"))
	require.NoError(t, s.AddJob(JobFunc{JobName: "nightly", Fn: job.Fn}, "0 3 * * *"))
	require.Len(t, s.cron.Entries(), 2)
}

func TestAddJobLogsNextRun(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewCronScheduler(zap.New(core))

	before := time.Now()
	require.NoError(t, s.AddJob(JobFunc{JobName: "sync", Fn: func(context.Context) error { return nil }}, "@every 1h"))

	entries := logs.FilterMessage("job scheduled").All()
	require.Len(t, entries, 1)
	next, ok := entries[0].ContextMap()["next_run"].(time.Time)
	require.True(t, ok)
	require.WithinDuration(t, before.Add(time.Hour), next, 5*time.Second)
}

func TestWrapSkipsOverlappingRuns(t *testing.T) {
	s := NewCronScheduler(nil)
	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int32
	run := s.wrap(JobFunc{JobName: "sync", Fn: func(context.Context) error {
		runs.Add(1)
		close(started)
		<-release
		return nil
	}}, "@every 1m")

	done := make(chan struct{})
	go func() {
		run()
		close(done)
	}()
	<-started

	run() // returns immediately, the first run still holds the slot
	close(release)
	<-done
	require.Equal(t, int32(1), runs.Load())
}

func TestWrapPassesStartContext(t *testing.T) {
	s := NewCronScheduler(nil)
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	s.ctx = ctx

	var got any
	run := s.wrap(JobFunc{JobName: "sync", Fn: func(ctx context.Context) error {
		got = ctx.Value(key{})
		return errors.New("ignored")
	}}, "@every 1m")
	run()
	require.Equal(t, "v", got)
}

func TestStartStop(t *testing.T) {
	s := NewCronScheduler(nil)
	var runs atomic.Int32
	require.NoError(t, s.AddJob(JobFunc{JobName: "tick", Fn: func(context.Context) error {
		runs.Add(1)
		return nil
	}}, "@every 1s"))

	s.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}
