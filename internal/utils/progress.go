package utils

import (
	"fmt"
	"io"
	"time"

	"craft-keeper/internal/models"

	"github.com/jedib0t/go-pretty/v6/progress"
)

/**
 * DownloadReporter 在终端显示下载进度
 * @property {progress.Writer} pw - 渲染器
 * @property {progress.Tracker} files - 已结束的文件数
 * @property {progress.Tracker} bytes - 已接收的字节数
 * @description
 * - Handle 必须在同一个 goroutine 中按事件顺序调用
 * - 重试时该文件已计入的字节会被扣除
 */
type DownloadReporter struct {
	pw    progress.Writer
	files *progress.Tracker
	bytes *progress.Tracker

	received map[string]int64
	doneSize int64
	started  bool
}

func NewDownloadReporter(w io.Writer, plan *models.DownloadPlan) *DownloadReporter {
	pw := progress.NewWriter()
	pw.SetOutputWriter(w)
	pw.SetTrackerLength(30)
	pw.SetMessageLength(24)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Speed = true

	r := &DownloadReporter{
		pw:       pw,
		files:    &progress.Tracker{Message: fmt.Sprintf("%s files", plan.VersionID), Total: int64(len(plan.Tasks)), Units: progress.UnitsDefault},
		bytes:    &progress.Tracker{Message: fmt.Sprintf("%s bytes", plan.VersionID), Total: plan.TotalSize(), Units: progress.UnitsBytes},
		received: make(map[string]int64),
	}
	pw.AppendTracker(r.files)
	pw.AppendTracker(r.bytes)
	return r
}

// Start renders in the background until Stop.
func (r *DownloadReporter) Start() {
	r.started = true
	go r.pw.Render()
}

func (r *DownloadReporter) Handle(ev models.ProgressEvent) {
	switch ev.Type {
	case models.EventStarted:
		if ev.Task != nil {
			// 新的尝试从0开始
			delete(r.received, ev.Task.Path)
		}
	case models.EventProgress:
		if ev.Task != nil {
			r.received[ev.Task.Path] = ev.Bytes
		}
	case models.EventCompleted, models.EventSkipped:
		if ev.Task != nil {
			delete(r.received, ev.Task.Path)
			r.doneSize += ev.Task.Size
		}
		r.files.Increment(1)
	case models.EventFailed:
		if ev.Task != nil {
			delete(r.received, ev.Task.Path)
		}
		r.files.Increment(1)
	case models.EventFinished:
		r.finish(len(ev.Failures) == 0)
		return
	case models.EventCancelled:
		r.finish(false)
		return
	}
	r.bytes.SetValue(r.current())
}

func (r *DownloadReporter) current() int64 {
	n := r.doneSize
	for _, b := range r.received {
		n += b
	}
	return n
}

func (r *DownloadReporter) finish(ok bool) {
	r.bytes.SetValue(r.current())
	if ok {
		r.files.MarkAsDone()
		r.bytes.MarkAsDone()
		return
	}
	r.files.MarkAsErrored()
	r.bytes.MarkAsErrored()
}

// Stop waits for the last frame to be drawn.
func (r *DownloadReporter) Stop() {
	if !r.started {
		return
	}
	time.Sleep(150 * time.Millisecond)
	r.pw.Stop()
	for r.pw.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}

// Files and Bytes expose the trackers' current values.
func (r *DownloadReporter) Files() int64 { return r.files.Value() }

func (r *DownloadReporter) Bytes() int64 { return r.bytes.Value() }
