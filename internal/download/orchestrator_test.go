package download

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"craft-keeper/internal/cache"
	"craft-keeper/internal/errs"
	"craft-keeper/internal/models"
	"craft-keeper/internal/transport/transporttest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(data []byte) string {
	h := sha1.Sum(data)
	return hex.EncodeToString(h[:])
}

type fixture struct {
	store *cache.Store
	fake  *transporttest.Fake
	orch  *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	fake := transporttest.New()
	return &fixture{store: store, fake: fake, orch: New(fake, store, WithProgressStep(0))}
}

// task registers content for a new task and returns it.
func (f *fixture) task(name string, content []byte) models.DownloadTask {
	url := "https://files.test/" + name
	f.fake.Set(url, content)
	return models.DownloadTask{
		Kind:     models.KindLibrary,
		Identity: name,
		URL:      url,
		Path:     "libraries/" + name + ".jar",
		SHA1:     sum(content),
		Size:     int64(len(content)),
	}
}

func collect(t *testing.T, events <-chan models.ProgressEvent) []models.ProgressEvent {
	t.Helper()
	var out []models.ProgressEvent
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("event stream did not close")
		}
	}
}

func byTask(events []models.ProgressEvent) map[string][]models.EventType {
	out := make(map[string][]models.EventType)
	for _, ev := range events {
		if ev.Task != nil {
			out[ev.Task.Path] = append(out[ev.Task.Path], ev.Type)
		}
	}
	return out
}

func assertTaskOrder(t *testing.T, types []models.EventType) {
	t.Helper()
	require.NotEmpty(t, types)
	if types[0] == models.EventSkipped {
		assert.Len(t, types, 1)
		return
	}
	assert.Equal(t, models.EventStarted, types[0])
	end := types[len(types)-1]
	assert.Contains(t, []models.EventType{models.EventCompleted, models.EventFailed}, end)
	for _, mid := range types[1 : len(types)-1] {
		assert.Equal(t, models.EventProgress, mid)
	}
}

func TestExecuteDownloadsAndRegisters(t *testing.T) {
	f := newFixture(t)
	plan := &models.DownloadPlan{VersionID: "1.20", Tasks: []models.DownloadTask{
		f.task("a", []byte("first library content")),
		f.task("b", []byte("second")),
		f.task("c", []byte("third library, a bit longer than the others")),
	}}

	events, err := f.orch.Execute(context.Background(), plan, 2)
	require.NoError(t, err)
	all := collect(t, events)

	last := all[len(all)-1]
	assert.Equal(t, models.EventFinished, last.Type)
	assert.Empty(t, last.Failures)
	assert.NotEmpty(t, last.RunID)
	for _, ev := range all {
		assert.Equal(t, last.RunID, ev.RunID)
	}

	order := byTask(all)
	require.Len(t, order, 3)
	for _, types := range order {
		assertTaskOrder(t, types)
	}

	for _, task := range plan.Tasks {
		entry, ok := f.store.Lookup(task.Path)
		require.True(t, ok, task.Path)
		assert.Equal(t, task.SHA1, entry.SHA1)
		_, err := os.Stat(f.store.Abs(task.Path) + ".part")
		assert.True(t, os.IsNotExist(err))
	}
}

func TestCompletedImpliesRegistered(t *testing.T) {
	f := newFixture(t)
	var tasks []models.DownloadTask
	for i := 0; i < 6; i++ {
		tasks = append(tasks, f.task(fmt.Sprintf("lib%d", i), []byte(fmt.Sprintf("payload-%d", i))))
	}
	err := f.orch.Run(context.Background(), &models.DownloadPlan{Tasks: tasks}, 3, func(ev models.ProgressEvent) {
		if ev.Type == models.EventCompleted {
			entry, ok := f.store.Lookup(ev.Task.Path)
			assert.True(t, ok)
			assert.Equal(t, ev.Task.SHA1, entry.SHA1)
		}
	})
	assert.NoError(t, err)
}

func TestPersistentChecksumFailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	good1 := f.task("good1", []byte("good one"))
	good2 := f.task("good2", []byte("good two"))
	bad := f.task("bad", []byte("expected content"))
	f.fake.Set(bad.URL, []byte("tampered content"))
	good3 := f.task("good3", []byte("good three"))

	plan := &models.DownloadPlan{Tasks: []models.DownloadTask{good1, bad, good2, good3}}
	var failed []models.ProgressEvent
	var final models.ProgressEvent
	err := f.orch.Run(context.Background(), plan, 2, func(ev models.ProgressEvent) {
		switch ev.Type {
		case models.EventFailed:
			failed = append(failed, ev)
		case models.EventFinished:
			final = ev
		}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrIncompleteDownload)
	assert.Equal(t, errs.CodeIncompleteDownload, errs.CodeOf(err))
	var incomplete *IncompleteDownloadError
	require.ErrorAs(t, err, &incomplete)
	require.Len(t, incomplete.Failures, 1)
	assert.Equal(t, "bad", incomplete.Failures[0].Task.Identity)

	require.Len(t, failed, 1)
	assert.Equal(t, errs.CodeChecksumMismatch, failed[0].Err.Code)
	assert.Equal(t, "bad", failed[0].Err.Artifact)
	assert.Equal(t, MaxRetries, failed[0].Attempt)
	assert.Equal(t, MaxRetries, f.fake.Calls(bad.URL))

	require.Len(t, final.Failures, 1)
	assert.Equal(t, bad.Path, final.Failures[0].Task.Path)

	for _, task := range []models.DownloadTask{good1, good2, good3} {
		_, ok := f.store.Lookup(task.Path)
		assert.True(t, ok)
	}
	_, ok := f.store.Lookup(bad.Path)
	assert.False(t, ok)
	_, statErr := os.Stat(f.store.Abs(bad.Path))
	assert.True(t, os.IsNotExist(statErr), "mismatched file is deleted")
}

func TestRetryRecovers(t *testing.T) {
	f := newFixture(t)
	content := []byte("eventually right")
	task := f.task("flaky", content)
	f.fake.SetFunc(task.URL, func(ctx context.Context, n int) ([]byte, error) {
		if n < 3 {
			return []byte("wrong"), nil
		}
		return content, nil
	})

	var completed models.ProgressEvent
	err := f.orch.Run(context.Background(), &models.DownloadPlan{Tasks: []models.DownloadTask{task}}, 1, func(ev models.ProgressEvent) {
		if ev.Type == models.EventCompleted {
			completed = ev
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 3, completed.Attempt)
	assert.Equal(t, 2, completed.Task.Retries)
	assert.Equal(t, int64(len(content)), completed.Bytes)
}

func TestTransportErrorsCountAsAttempts(t *testing.T) {
	f := newFixture(t)
	task := f.task("offline", []byte("x"))
	f.fake.SetFunc(task.URL, func(ctx context.Context, n int) ([]byte, error) {
		return nil, errors.New("connection reset")
	})

	err := f.orch.Run(context.Background(), &models.DownloadPlan{Tasks: []models.DownloadTask{task}}, 1, nil)
	var incomplete *IncompleteDownloadError
	require.ErrorAs(t, err, &incomplete)
	require.Len(t, incomplete.Failures, 1)
	assert.Equal(t, errs.CodeTransportFailure, incomplete.Failures[0].Err.Code)
	assert.Equal(t, MaxRetries, f.fake.Calls(task.URL))
}

func TestCancellationRegistersOnlyCompleted(t *testing.T) {
	f := newFixture(t)
	var tasks []models.DownloadTask
	for i := 0; i < 5; i++ {
		tasks = append(tasks, f.task(fmt.Sprintf("t%d", i), []byte(fmt.Sprintf("content %d", i))))
	}
	// everything after the second task hangs until cancelled
	for _, task := range tasks[2:] {
		f.fake.SetFunc(task.URL, func(ctx context.Context, n int) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := f.orch.Execute(ctx, &models.DownloadPlan{Tasks: tasks}, 1)
	require.NoError(t, err)

	completed := 0
	var all []models.ProgressEvent
	for ev := range events {
		all = append(all, ev)
		if ev.Type == models.EventCompleted {
			completed++
			if completed == 2 {
				cancel()
			}
		}
	}

	require.NotEmpty(t, all)
	assert.Equal(t, models.EventCancelled, all[len(all)-1].Type)
	for _, ev := range all {
		assert.NotEqual(t, models.EventFinished, ev.Type)
	}
	assert.Equal(t, 2, completed)
	assert.Equal(t, 2, f.store.Len())
	for i, task := range tasks {
		_, ok := f.store.Lookup(task.Path)
		assert.Equal(t, i < 2, ok, task.Path)
		if i >= 2 {
			_, err := os.Stat(f.store.Abs(task.Path) + ".part")
			assert.True(t, os.IsNotExist(err))
		}
	}

	err = f.orch.Run(ctx, &models.DownloadPlan{Tasks: tasks}, 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSkipsVerifiedEntries(t *testing.T) {
	f := newFixture(t)
	content := []byte("already here")
	task := f.task("cached", content)
	abs := f.store.Abs(task.Path)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
	require.NoError(t, os.WriteFile(abs, content, 0644))
	require.NoError(t, f.store.VerifyAndRegister(task.Path, task.SHA1, task.Size))

	var types []models.EventType
	err := f.orch.Run(context.Background(), &models.DownloadPlan{Tasks: []models.DownloadTask{task}}, 1, func(ev models.ProgressEvent) {
		types = append(types, ev.Type)
	})
	require.NoError(t, err)
	assert.Equal(t, []models.EventType{models.EventSkipped, models.EventFinished}, types)
	assert.Equal(t, 0, f.fake.TotalCalls())
}

func TestReverifiesFilesMissingFromIndex(t *testing.T) {
	f := newFixture(t)
	content := []byte("left over from a lost index")
	task := f.task("orphan", content)
	abs := f.store.Abs(task.Path)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
	require.NoError(t, os.WriteFile(abs, content, 0644))

	err := f.orch.Run(context.Background(), &models.DownloadPlan{Tasks: []models.DownloadTask{task}}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, f.fake.TotalCalls())
	_, ok := f.store.Lookup(task.Path)
	assert.True(t, ok)

	// a corrupt leftover is replaced by a fresh download
	other := f.task("corrupt", []byte("the real bytes"))
	abs = f.store.Abs(other.Path)
	require.NoError(t, os.WriteFile(abs, []byte("garbage"), 0644))
	err = f.orch.Run(context.Background(), &models.DownloadPlan{Tasks: []models.DownloadTask{other}}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.fake.Calls(other.URL))
}

func TestConcurrencyBound(t *testing.T) {
	f := newFixture(t)
	var inFlight, peak int32
	var tasks []models.DownloadTask
	for i := 0; i < 12; i++ {
		content := []byte(fmt.Sprintf("concurrent %d", i))
		task := f.task(fmt.Sprintf("c%d", i), content)
		f.fake.SetFunc(task.URL, func(ctx context.Context, n int) ([]byte, error) {
			cur := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return content, nil
		})
		tasks = append(tasks, task)
	}

	err := f.orch.Run(context.Background(), &models.DownloadPlan{Tasks: tasks}, 3, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Equal(t, 12, f.store.Len())
}

func TestProgressEvents(t *testing.T) {
	f := newFixture(t)
	content := make([]byte, 40)
	task := f.task("progress", content)

	var progress []int64
	err := f.orch.Run(context.Background(), &models.DownloadPlan{Tasks: []models.DownloadTask{task}}, 1, func(ev models.ProgressEvent) {
		if ev.Type == models.EventProgress {
			progress = append(progress, ev.Bytes)
			assert.Equal(t, int64(40), ev.Total)
		}
	})
	require.NoError(t, err)
	require.NotEmpty(t, progress)
	assert.Equal(t, int64(40), progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.Greater(t, progress[i], progress[i-1])
	}
}

func TestExecuteRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.Execute(context.Background(), &models.DownloadPlan{}, 0)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = f.orch.Execute(context.Background(), nil, 1)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	// an empty plan still ends with Finished
	all := collectPlan(t, f, &models.DownloadPlan{})
	require.Len(t, all, 1)
	assert.Equal(t, models.EventFinished, all[0].Type)
}

func collectPlan(t *testing.T, f *fixture, plan *models.DownloadPlan) []models.ProgressEvent {
	events, err := f.orch.Execute(context.Background(), plan, 1)
	require.NoError(t, err)
	return collect(t, events)
}

func TestExecuteUsesRunIDFromContext(t *testing.T) {
	f := newFixture(t)
	plan := &models.DownloadPlan{VersionID: "v", Tasks: []models.DownloadTask{f.task("a", []byte("alpha"))}}
	events, err := f.orch.Execute(WithRunID(context.Background(), "install-1"), plan, 1)
	require.NoError(t, err)
	for _, ev := range collect(t, events) {
		assert.Equal(t, "install-1", ev.RunID)
	}
}
