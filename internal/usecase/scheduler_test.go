package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FilingsScanner/internal/domain"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsImportForTickDay(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	h := newHarness(repo, defaultOptions())
	driver := &manualDriver{}
	s := NewScheduler(driver, h.pipeline)

	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(lifeCreatedAt)

	doc, err := repo.FindByExternalID(context.Background(), "940464")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, doc.Status)

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerSurvivesFailedImport(t *testing.T) {
	t.Parallel()

	h := newHarness(newMemRepo(), defaultOptions())
	h.source.err = domain.ErrUpstreamUnavailable
	driver := &manualDriver{}

	require.NoError(t, NewScheduler(driver, h.pipeline).Start(context.Background()))
	assert.NotPanics(t, func() { driver.job(time.Now()) })
	assert.Empty(t, h.downloader.calls)
}

func TestSchedulerWithoutDriver(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, nil)
	assert.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}

func TestSchedulerSkipsTickWhileImportRuns(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	h := newHarness(repo, defaultOptions())
	driver := &manualDriver{}
	require.NoError(t, NewScheduler(driver, h.pipeline).Start(context.Background()))

	h.pipeline.running.Lock()
	driver.job(lifeCreatedAt)
	h.pipeline.running.Unlock()

	_, err := repo.FindByExternalID(context.Background(), "940464")
	assert.ErrorIs(t, err, domain.ErrNotFound, "the overlapping tick did nothing")
}
