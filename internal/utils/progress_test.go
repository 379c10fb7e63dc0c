package utils

import (
	"bytes"
	"testing"

	"craft-keeper/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestDownloadReporterCounts(t *testing.T) {
	a := models.DownloadTask{Path: "libraries/a.jar", Size: 100}
	b := models.DownloadTask{Path: "libraries/b.jar", Size: 50}
	c := models.DownloadTask{Path: "assets/objects/ab/abcd", Size: 10}
	plan := &models.DownloadPlan{VersionID: "1.0", Tasks: []models.DownloadTask{a, b, c}}

	r := NewDownloadReporter(&bytes.Buffer{}, plan)
	r.Handle(models.ProgressEvent{Type: models.EventSkipped, Task: &c})
	r.Handle(models.ProgressEvent{Type: models.EventStarted, Task: &a, Attempt: 1})
	r.Handle(models.ProgressEvent{Type: models.EventProgress, Task: &a, Bytes: 60})
	assert.Equal(t, int64(70), r.Bytes())

	// retry restarts the file from zero
	r.Handle(models.ProgressEvent{Type: models.EventStarted, Task: &a, Attempt: 2})
	assert.Equal(t, int64(10), r.Bytes())
	r.Handle(models.ProgressEvent{Type: models.EventProgress, Task: &a, Bytes: 100})
	r.Handle(models.ProgressEvent{Type: models.EventCompleted, Task: &a})
	assert.Equal(t, int64(110), r.Bytes())

	r.Handle(models.ProgressEvent{Type: models.EventStarted, Task: &b, Attempt: 1})
	r.Handle(models.ProgressEvent{Type: models.EventProgress, Task: &b, Bytes: 20})
	r.Handle(models.ProgressEvent{Type: models.EventFailed, Task: &b})
	assert.Equal(t, int64(3), r.Files())
	assert.Equal(t, int64(110), r.Bytes())

	r.Handle(models.ProgressEvent{Type: models.EventFinished, Failures: []models.TaskFailure{{Task: b}}})
	assert.True(t, r.files.IsErrored())
	r.Stop()
}

func TestDownloadReporterSuccess(t *testing.T) {
	a := models.DownloadTask{Path: "a", Size: 5}
	r := NewDownloadReporter(&bytes.Buffer{}, &models.DownloadPlan{Tasks: []models.DownloadTask{a}})
	r.Handle(models.ProgressEvent{Type: models.EventCompleted, Task: &a})
	r.Handle(models.ProgressEvent{Type: models.EventFinished})
	assert.True(t, r.files.IsDone())
	assert.False(t, r.files.IsErrored())
	assert.Equal(t, int64(5), r.Bytes())
}
