package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"0 0 2 * * *", false},
		{"*/30 * * * * *", false},
		{"@every 1m", false},
		{"@daily", false},
		{"0 2 * * *", true}, // five fields, seconds are required
		{"not a schedule", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			err := ValidateSchedule(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScheduler_AddJobRejectsBadSchedule(t *testing.T) {
	s := New(nil)
	err := s.AddJob("every day", &countingJob{})
	assert.Error(t, err)
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(nil)
	job := &countingJob{err: errors.New("boom")}
	require.NoError(t, s.AddJob("* * * * * *", job))

	s.Start()
	defer s.Stop()

	// Failures are logged and the job keeps its schedule.
	require.Eventually(t, func() bool { return job.runs.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(nil)
	job := &countingJob{}
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs.Load())
}

type fakeMaterializer struct {
	got core.Date
	n   int
	err error
}

func (f *fakeMaterializer) Materialize(_ context.Context, today core.Date) (int, error) {
	f.got = today
	return f.n, f.err
}

func TestRecurringJob_Run(t *testing.T) {
	m := &fakeMaterializer{n: 3}
	job := NewRecurringJob(m, nil)
	job.now = func() time.Time { return time.Date(2025, 3, 31, 23, 59, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "2025-03-31", m.got.String())
	assert.Equal(t, "recurring_expenses", job.Name())

	m.err = errors.New("store down")
	assert.EqualError(t, job.Run(context.Background()), "store down")
}
