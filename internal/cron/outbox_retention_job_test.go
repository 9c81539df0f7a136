package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/univend-backend/pkg/logger"
)

type recordingPurger struct {
	cutoffs []time.Time
	err     error
}

func (r *recordingPurger) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.cutoffs = append(r.cutoffs, cutoff)
	if r.err != nil {
		return 0, r.err
	}
	return 7, nil
}

func retentionJobAt(t *testing.T, repo outboxRetentionRepo, retention time.Duration, now time.Time) Job {
	t.Helper()
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{Output: io.Discard}),
		Repository: repo,
		Retention:  retention,
	})
	require.NoError(t, err)
	require.IsType(t, &outboxRetentionJob{}, job)
	job.(*outboxRetentionJob).now = func() time.Time { return now }
	return job
}

func TestOutboxRetentionJobCutoff(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name      string
		retention time.Duration
		want      time.Time
	}{
		{name: "default window", retention: 0, want: now.Add(-30 * 24 * time.Hour)},
		{name: "configured window", retention: 72 * time.Hour, want: now.Add(-72 * time.Hour)},
		{name: "negative falls back", retention: -time.Hour, want: now.Add(-30 * 24 * time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &recordingPurger{}
			require.NoError(t, retentionJobAt(t, repo, tc.retention, now).Run(context.Background()))
			assert.Equal(t, []time.Time{tc.want}, repo.cutoffs)
		})
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job := retentionJobAt(t, &recordingPurger{err: errors.New("boom")}, 0, time.Now())
	assert.ErrorContains(t, job.Run(context.Background()), "boom")
	assert.Equal(t, OutboxRetentionJobName, job.Name())
}

func TestNewOutboxRetentionJobRequiresDependencies(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Repository: &recordingPurger{}})
	assert.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.New(logger.Options{Output: io.Discard})})
	assert.Error(t, err)
}
