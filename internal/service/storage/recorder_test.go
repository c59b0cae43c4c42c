package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detectboard/internal/config"
	"detectboard/internal/dto"
	"detectboard/internal/logger"
	"detectboard/internal/model"
	"detectboard/internal/repository/sqlite"
)

type fixture struct {
	recorder   *Recorder
	runs       *sqlite.RunRepository
	detections *sqlite.DetectionRepository
	dir        string
}

func newFixture(t *testing.T, limit int) *fixture {
	t.Helper()
	dir := t.TempDir()

	db, err := sqlite.New(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log, err := logger.New(filepath.Join(dir, "logs"), io.Discard, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	cfg := &config.Config{
		ImageDirectory:   filepath.Join(dir, "images"),
		ImageBufferLimit: limit,
		ImageBufferFlush: 3600,
	}

	runs := sqlite.NewRunRepository(db)
	detections := sqlite.NewDetectionRepository(db)
	return &fixture{
		recorder:   NewRecorder(cfg, log, runs, detections),
		runs:       runs,
		detections: detections,
		dir:        cfg.ImageDirectory,
	}
}

func bufferedRun(detections ...model.Detection) dto.BufferedRun {
	return dto.BufferedRun{
		Run: model.Run{
			ID:     uuid.NewString(),
			Source: "upload",
			Params: model.DefaultDetectionParams(),
		},
		Detections: detections,
		Labels:     model.LabelTable{0: "person", 1: "car"},
		Image:      []byte("jpeg-bytes"),
	}
}

func TestRecorderAddAndLookup(t *testing.T) {
	f := newFixture(t, 10)

	added := f.recorder.Add(bufferedRun(model.Detection{ClassID: 0, Confidence: 0.9}))

	assert.Equal(t, 1, f.recorder.Pending())
	assert.Equal(t, 1, added.Run.DetectionCount)
	assert.Equal(t, int64(len("jpeg-bytes")), added.Run.FileSize)
	assert.Equal(t, filepath.Join(f.dir, added.Run.Filename), added.Run.FilePath)
	assert.False(t, added.Run.Timestamp.IsZero())

	got, ok := f.recorder.Lookup(added.Run.ID)
	require.True(t, ok)
	assert.Equal(t, added.Image, got.Image)

	_, ok = f.recorder.Lookup("missing")
	assert.False(t, ok)
}

func TestRecorderFlushPersists(t *testing.T) {
	f := newFixture(t, 10)

	added := f.recorder.Add(bufferedRun(
		model.Detection{ClassID: 1, Confidence: 0.6},
		model.Detection{ClassID: 0, Confidence: 0.9},
	))
	empty := f.recorder.Add(bufferedRun())

	assert.Equal(t, 2, f.recorder.Flush())
	assert.Zero(t, f.recorder.Pending())
	assert.Zero(t, f.recorder.Flush(), "nothing left to flush")

	stored, err := f.runs.GetByID(added.Run.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 2, stored.DetectionCount)

	data, err := os.ReadFile(stored.FilePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	rows, err := f.detections.GetByRunID(added.Run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "car", rows[0].Label)
	assert.Equal(t, "person", rows[1].Label)

	stored, err = f.runs.GetByID(empty.Run.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Zero(t, stored.DetectionCount)
}

func TestRecorderFlushesWhenFull(t *testing.T) {
	f := newFixture(t, 2)

	f.recorder.Add(bufferedRun())
	assert.Equal(t, 1, f.recorder.Pending())
	f.recorder.Add(bufferedRun())
	assert.Zero(t, f.recorder.Pending())

	count, err := f.runs.GetTotalCount(&dto.RunFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRecorderUnknownClassIsNotStored(t *testing.T) {
	f := newFixture(t, 10)

	bad := f.recorder.Add(bufferedRun(model.Detection{ClassID: 7, Confidence: 0.5}))
	assert.Zero(t, f.recorder.Flush())

	stored, err := f.runs.GetByID(bad.Run.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
	_, err = os.Stat(bad.Run.FilePath)
	assert.True(t, os.IsNotExist(err))
}

func TestRecorderDiscard(t *testing.T) {
	f := newFixture(t, 10)

	a := f.recorder.Add(bufferedRun())
	f.recorder.Add(bufferedRun())

	assert.True(t, f.recorder.Discard(a.Run.ID))
	assert.False(t, f.recorder.Discard(a.Run.ID))
	assert.Equal(t, 1, f.recorder.Pending())

	f.recorder.DiscardAll()
	assert.Zero(t, f.recorder.Pending())
}

func TestRecorderSizeLimitRemovesOldest(t *testing.T) {
	f := newFixture(t, 10)
	f.recorder.maxDirBytes = 25

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		run := bufferedRun()
		run.Run.Timestamp = base.Add(time.Duration(i) * time.Minute)
		ids = append(ids, f.recorder.Add(run).Run.ID)
	}
	f.recorder.Flush()

	oldest, err := f.runs.GetByID(ids[0])
	require.NoError(t, err)
	assert.Nil(t, oldest)

	newest, err := f.runs.GetByID(ids[2])
	require.NoError(t, err)
	assert.NotNil(t, newest)
}

func TestRecorderRunFlushesOnCancel(t *testing.T) {
	f := newFixture(t, 10)
	f.recorder.Add(bufferedRun())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.recorder.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("recorder did not stop")
	}
	assert.Zero(t, f.recorder.Pending())
}

func TestRecorderFlushAfterRunStopped(t *testing.T) {
	f := newFixture(t, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.recorder.Run(ctx))

	// Run zgłoszony po ostatnim flushu pętli
	late := f.recorder.Add(bufferedRun(model.Detection{ClassID: 0, Confidence: 0.8}))
	assert.Equal(t, 1, f.recorder.Pending())

	assert.Equal(t, 1, f.recorder.Flush())
	stored, err := f.runs.GetByID(late.Run.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 1, stored.DetectionCount)
}
