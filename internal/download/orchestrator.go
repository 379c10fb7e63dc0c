// Package download executes a download plan with bounded parallelism,
// verifying every file through the cache store before reporting it complete.
package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"craft-keeper/internal/cache"
	"craft-keeper/internal/errs"
	"craft-keeper/internal/logger"
	"craft-keeper/internal/models"
	"craft-keeper/internal/transport"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxRetries is the number of attempts made for one task before it fails.
const MaxRetries = 3

// defaultProgressStep is the minimum byte delta between two progress events of a task.
const defaultProgressStep = 256 * 1024

// IncompleteDownloadError lists every task that failed permanently.
type IncompleteDownloadError struct {
	RunID    string               `json:"runId"`
	Failures []models.TaskFailure `json:"failures"`
}

func (e *IncompleteDownloadError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.Task.Identity)
	}
	return fmt.Sprintf("incomplete_download failed=%d artifacts=%s", len(e.Failures), strings.Join(ids, ","))
}

func (e *IncompleteDownloadError) Code() errs.Code { return errs.CodeIncompleteDownload }

// Is matches errs.ErrIncompleteDownload.
func (e *IncompleteDownloadError) Is(target error) bool {
	t, ok := target.(*errs.Error)
	return ok && t.Code == errs.CodeIncompleteDownload
}

type Option func(*Orchestrator)

type runIDKey struct{}

// WithRunID makes Execute tag its events with id instead of a fresh uuid.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// WithMaxRetries overrides the number of attempts per task.
func WithMaxRetries(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

// WithProgressStep sets the byte delta between progress events, 0 reports every chunk.
func WithProgressStep(n int64) Option {
	return func(o *Orchestrator) { o.progressStep = n }
}

/**
 * Download orchestrator
 * @property {transport.Transport} tr - Fetch capability
 * @property {cache.Store} store - Owner of the on-disk state
 * @property {int} maxRetries - Attempts per task
 */
type Orchestrator struct {
	tr           transport.Transport
	store        *cache.Store
	maxRetries   int
	progressStep int64
	log          zerolog.Logger
}

func New(tr transport.Transport, store *cache.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		tr:           tr,
		store:        store,
		maxRetries:   MaxRetries,
		progressStep: defaultProgressStep,
		log:          logger.With("download"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

/**
 * Execute a plan
 * @param {context.Context} ctx - Cancelling it stops admitting tasks and aborts in-flight fetches
 * @param {*DownloadPlan} plan - Tasks to acquire
 * @param {int} limit - Number of tasks in flight at any time
 * @returns {<-chan ProgressEvent} Live events, closed after Finished or Cancelled
 * @description
 * - The caller must drain the channel until it is closed
 * - Per task: Skipped, or Started, Progress*, then Completed or Failed
 * - A failed task never aborts its siblings
 */
func (o *Orchestrator) Execute(ctx context.Context, plan *models.DownloadPlan, limit int) (<-chan models.ProgressEvent, error) {
	if limit < 1 {
		return nil, &errs.Error{Code: errs.CodeInvalidInput, Err: fmt.Errorf("concurrency limit %d", limit)}
	}
	if plan == nil {
		return nil, &errs.Error{Code: errs.CodeInvalidInput, Err: errors.New("nil plan")}
	}
	runID, _ := ctx.Value(runIDKey{}).(string)
	if runID == "" {
		runID = uuid.NewString()
	}
	events := make(chan models.ProgressEvent, limit*4)
	go o.run(ctx, runID, plan, limit, events)
	return events, nil
}

/**
 * Execute a plan and wait for its end
 * @param {func(ProgressEvent)} fn - Receives every event, may be nil
 * @returns {error} nil, *IncompleteDownloadError, or the context error when cancelled
 */
func (o *Orchestrator) Run(ctx context.Context, plan *models.DownloadPlan, limit int, fn func(models.ProgressEvent)) error {
	events, err := o.Execute(ctx, plan, limit)
	if err != nil {
		return err
	}
	var result error
	for ev := range events {
		if fn != nil {
			fn(ev)
		}
		switch ev.Type {
		case models.EventFinished:
			if len(ev.Failures) > 0 {
				result = &IncompleteDownloadError{RunID: ev.RunID, Failures: ev.Failures}
			}
		case models.EventCancelled:
			result = ctx.Err()
			if result == nil {
				result = context.Canceled
			}
		}
	}
	return result
}

func (o *Orchestrator) run(ctx context.Context, runID string, plan *models.DownloadPlan, limit int, events chan<- models.ProgressEvent) {
	defer close(events)
	log := o.log.With().Str("run", runID).Str("version", plan.VersionID).Logger()
	log.Info().Int("tasks", len(plan.Tasks)).Int("limit", limit).Msg("download started")

	emit := func(ev models.ProgressEvent) {
		ev.RunID = runID
		events <- ev
	}

	tasks := make(chan models.DownloadTask)
	var (
		mu       sync.Mutex
		failures []models.TaskFailure
		wg       sync.WaitGroup
	)
	for i := 0; i < limit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				if ctx.Err() != nil {
					continue
				}
				if ferr := o.process(ctx, task, emit, log); ferr != nil {
					mu.Lock()
					failures = append(failures, models.TaskFailure{Task: task, Err: ferr})
					mu.Unlock()
				}
			}
		}()
	}

feed:
	for _, t := range plan.Tasks {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- t:
		}
	}
	close(tasks)
	wg.Wait()

	if ctx.Err() != nil {
		log.Warn().Msg("download cancelled")
		emit(models.ProgressEvent{Type: models.EventCancelled})
		return
	}
	if len(failures) > 0 {
		log.Error().Int("failed", len(failures)).Msg("download incomplete")
	} else {
		log.Info().Msg("download finished")
	}
	emit(models.ProgressEvent{Type: models.EventFinished, Failures: failures})
}

// process runs one task to its end. It returns the reason of a permanent failure;
// a cancelled task returns nil and emits no terminal event.
func (o *Orchestrator) process(ctx context.Context, task models.DownloadTask, emit func(models.ProgressEvent), log zerolog.Logger) *errs.Error {
	kind := string(task.Kind)
	if o.cached(task) {
		tasksTotal.WithLabelValues(kind, outcomeSkipped).Inc()
		emit(models.ProgressEvent{Type: models.EventSkipped, Task: taskRef(task), Bytes: task.Size, Total: task.Size})
		return nil
	}

	start := time.Now()
	emit(models.ProgressEvent{Type: models.EventStarted, Task: taskRef(task), Total: task.Size, Attempt: 1})
	var last *errs.Error
	for attempt := 1; attempt <= o.maxRetries; attempt++ {
		task.Retries = attempt - 1
		if attempt > 1 {
			retriesTotal.WithLabelValues(kind).Inc()
		}
		n, err := o.attempt(ctx, task, attempt, emit)
		if err == nil {
			tasksTotal.WithLabelValues(kind, outcomeCompleted).Inc()
			bytesTotal.WithLabelValues(kind).Add(float64(n))
			taskDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
			emit(models.ProgressEvent{Type: models.EventCompleted, Task: taskRef(task), Bytes: n, Total: n, Attempt: attempt})
			return nil
		}
		if ctx.Err() != nil {
			tasksTotal.WithLabelValues(kind, outcomeCancelled).Inc()
			return nil
		}
		last = asError(err, task)
		log.Warn().Err(err).Str("artifact", task.Identity).Int("attempt", attempt).Msg("download attempt failed")
	}

	tasksTotal.WithLabelValues(kind, outcomeFailed).Inc()
	emit(models.ProgressEvent{Type: models.EventFailed, Task: taskRef(task), Attempt: o.maxRetries, Err: last})
	return last
}

// cached reports whether a verified copy of the task's file already exists.
// A file on disk that the index does not know is re-verified instead of fetched again.
func (o *Orchestrator) cached(task models.DownloadTask) bool {
	if e, ok := o.store.Lookup(task.Path); ok {
		if cache.Matches(e, task.SHA1, task.Size) {
			return true
		}
		return false
	}
	if task.SHA1 == "" {
		return false
	}
	if _, err := os.Stat(o.store.Abs(task.Path)); err != nil {
		return false
	}
	return o.store.VerifyAndRegister(task.Path, task.SHA1, task.Size) == nil
}

// attempt fetches the task once into <path>.part, moves it in place and verifies it.
// Nothing is left on disk unless the file was registered.
func (o *Orchestrator) attempt(ctx context.Context, task models.DownloadTask, attempt int, emit func(models.ProgressEvent)) (int64, error) {
	abs := o.store.Abs(task.Path)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return 0, err
	}
	part := abs + ".part"
	f, err := os.Create(part)
	if err != nil {
		return 0, err
	}

	var reported int64
	n, err := o.tr.Stream(ctx, task.URL, f, func(written, total int64) {
		if total <= 0 {
			total = task.Size
		}
		if written-reported < o.progressStep && written != total {
			return
		}
		reported = written
		emit(models.ProgressEvent{Type: models.EventProgress, Task: taskRef(task), Bytes: written, Total: total, Attempt: attempt})
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(part)
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		return n, &errs.Error{Code: errs.CodeTransportFailure, Artifact: task.Identity, Path: task.Path, Err: err}
	}
	if ctx.Err() != nil {
		os.Remove(part)
		return n, ctx.Err()
	}
	if err := os.Rename(part, abs); err != nil {
		os.Remove(part)
		return n, err
	}
	if err := o.store.VerifyAndRegister(task.Path, task.SHA1, task.Size); err != nil {
		os.Remove(abs)
		return n, err
	}
	return n, nil
}

// taskRef copies t so events never share a task that is still being retried.
func taskRef(t models.DownloadTask) *models.DownloadTask { return &t }

func asError(err error, task models.DownloadTask) *errs.Error {
	var e *errs.Error
	if errors.As(err, &e) {
		out := *e
		if out.Artifact == "" {
			out.Artifact = task.Identity
		}
		return &out
	}
	return &errs.Error{Code: errs.CodeTransportFailure, Artifact: task.Identity, Path: task.Path, Err: err}
}
