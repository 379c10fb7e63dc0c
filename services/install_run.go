package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"craft-keeper/internal/models"
)

// maxRunEvents bounds the replay log; beyond it older progress events are dropped.
const maxRunEvents = 4096

type seqEvent struct {
	seq int
	ev  models.ProgressEvent
}

/**
 * InstallRun 一次后台安装
 * @property {string} ID - 运行ID，同时用作下载事件的 runId
 * @property {[]seqEvent} events - 供迟到的订阅者回放的事件，按序号递增
 * @property {int} seq - 下一个事件的序号
 * @property {chan struct{}} notify - 每次有新事件时关闭并替换
 * @description
 * - 超过 maxRunEvents 时丢弃较早的 progress 事件，其它事件全部保留
 */
type InstallRun struct {
	ID        string
	VersionID string

	cancel context.CancelFunc

	mutex   sync.Mutex
	events  []seqEvent
	seq     int
	notify  chan struct{}
	detail  models.InstallDetail
	done    chan struct{}
	lastErr error
}

func newInstallRun(id, versionID string, tasks int, cancel context.CancelFunc) *InstallRun {
	return &InstallRun{
		ID:        id,
		VersionID: versionID,
		cancel:    cancel,
		notify:    make(chan struct{}),
		done:      make(chan struct{}),
		detail: models.InstallDetail{
			ID:        id,
			VersionID: versionID,
			Status:    models.InstallRunning,
			StartTime: time.Now(),
			Tasks:     tasks,
		},
	}
}

func (r *InstallRun) publish(ev models.ProgressEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	switch ev.Type {
	case models.EventCompleted:
		r.detail.Completed++
	case models.EventSkipped:
		r.detail.Skipped++
	case models.EventFailed:
		r.detail.Failed++
	}
	r.events = append(r.events, seqEvent{seq: r.seq, ev: ev})
	r.seq++
	if len(r.events) > maxRunEvents {
		r.compactLocked()
	}
	close(r.notify)
	r.notify = make(chan struct{})
}

func (r *InstallRun) finish(err error) {
	r.mutex.Lock()
	r.detail.EndTime = time.Now()
	r.lastErr = err
	switch {
	case err == nil:
		r.detail.Status = models.InstallSucceeded
	case errors.Is(err, context.Canceled):
		r.detail.Status = models.InstallCancelled
		r.detail.Error = err.Error()
	default:
		r.detail.Status = models.InstallFailed
		r.detail.Error = err.Error()
	}
	close(r.notify)
	r.notify = make(chan struct{})
	r.mutex.Unlock()
	close(r.done)
}

// compactLocked drops progress events from the older half of the log.
func (r *InstallRun) compactLocked() {
	half := len(r.events) / 2
	kept := make([]seqEvent, 0, len(r.events))
	for i, e := range r.events {
		if i < half && e.ev.Type == models.EventProgress {
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
}

/**
 * Since 返回序号不小于 from 的事件
 * @param {int} from - 上次返回的 next，首次为0
 * @returns {[]ProgressEvent} 新事件，已被丢弃的 progress 事件会被跳过
 * @returns {int} next - 下次调用的 from
 * @returns {bool} 安装是否已结束（结束后不会再有新事件）
 * @returns {<-chan struct{}} 下一次有新事件或结束时关闭
 */
func (r *InstallRun) Since(from int) ([]models.ProgressEvent, int, bool, <-chan struct{}) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	i := sort.Search(len(r.events), func(i int) bool { return r.events[i].seq >= from })
	var out []models.ProgressEvent
	for _, e := range r.events[i:] {
		out = append(out, e.ev)
	}
	return out, r.seq, r.detail.Status != models.InstallRunning, r.notify
}

// Done is closed once the run has ended.
func (r *InstallRun) Done() <-chan struct{} { return r.done }

// Wait blocks until the run ends and returns its result.
func (r *InstallRun) Wait() error {
	<-r.done
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.lastErr
}

func (r *InstallRun) Cancel() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *InstallRun) Detail() models.InstallDetail {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.detail
}
