package proc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"craft-keeper/internal/logger"
	"craft-keeper/internal/models"
)

type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// OutputLine is one line written by the game.
type OutputLine struct {
	Stream Stream    `json:"stream"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}

// stopGrace is how long a stopped game may take to exit before it is killed.
const stopGrace = 5 * time.Second

/**
 * GameProcess 一次游戏运行
 * @property {string} Title - 显示用的名字
 * @property {LaunchSpec} spec - 启动参数，不会被修改
 * @property {chan OutputLine} output - stdout/stderr 的逐行输出，进程退出后关闭
 * @property {chan struct{}} done - 进程退出后关闭
 * @description
 * - 游戏退出是最终状态，不会自动重启
 * - 调用方必须读完 Output()，否则游戏会阻塞在输出上
 */
type GameProcess struct {
	Title string

	spec   *models.LaunchSpec
	cmd    *exec.Cmd
	output chan OutputLine
	done   chan struct{}

	mutex      sync.Mutex
	status     models.RunStatus
	startTime  time.Time
	exitTime   time.Time
	exitCode   int
	exitReason string
	waitErr    error
}

/**
 * Launch 启动游戏进程
 * @param {context.Context} ctx - 取消时停止游戏（整个进程组）
 * @param {LaunchSpec} spec - 启动参数
 * @returns {*GameProcess} 运行中的进程
 */
func Launch(ctx context.Context, spec *models.LaunchSpec) (*GameProcess, error) {
	if spec == nil || spec.JavaPath == "" {
		return nil, errors.New("launch spec without runtime")
	}
	if spec.WorkDir != "" {
		if err := os.MkdirAll(spec.WorkDir, 0755); err != nil {
			return nil, fmt.Errorf("create game directory: %w", err)
		}
	}

	args := spec.Args()
	cmd := exec.Command(spec.JavaPath, args...)
	cmd.Dir = spec.WorkDir
	cmd.Env = mergeEnv(os.Environ(), spec.Env)
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	gp := &GameProcess{
		Title:    spec.VersionID,
		spec:     spec,
		cmd:      cmd,
		output:   make(chan OutputLine, 256),
		done:     make(chan struct{}),
		exitCode: -1,
	}
	logger.Infof("Executing command: %s %s", spec.JavaPath, strings.Join(spec.RedactedArgs(), " "))
	if err := cmd.Start(); err != nil {
		gp.status = models.StatusError
		gp.exitReason = fmt.Sprintf("start failed: %v", err)
		logger.Errorf("Failed to start game '%s', error: %v", gp.Title, err)
		return nil, err
	}
	gp.status = models.StatusRunning
	gp.startTime = time.Now()
	logger.Infof("Game '%s' started (PID: %d)", gp.Title, cmd.Process.Pid)

	var readers sync.WaitGroup
	readers.Add(2)
	go gp.pump(&readers, stdout, StreamStdout)
	go gp.pump(&readers, stderr, StreamStderr)
	go gp.watch(&readers)
	go func() {
		select {
		case <-ctx.Done():
			gp.Stop()
		case <-gp.done:
		}
	}()
	return gp, nil
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(base)+len(keys))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, override := extra[name]; !override {
			out = append(out, kv)
		}
	}
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}

func (gp *GameProcess) pump(wg *sync.WaitGroup, r io.Reader, stream Stream) {
	defer wg.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		gp.output <- OutputLine{Stream: stream, Text: sc.Text(), Time: time.Now()}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Debugf("Game '%s' %s closed: %v", gp.Title, stream, err)
	}
}

// watch 等待输出读完、进程退出，然后记录退出状态
func (gp *GameProcess) watch(readers *sync.WaitGroup) {
	readers.Wait()
	err := gp.cmd.Wait()

	gp.mutex.Lock()
	gp.exitTime = time.Now()
	if ps := gp.cmd.ProcessState; ps != nil {
		gp.exitCode = ps.ExitCode()
	}
	var exitErr *exec.ExitError
	switch {
	case gp.status == models.StatusStopped:
		gp.exitReason = "stopped by user"
	case err == nil:
		gp.status = models.StatusExited
		gp.exitReason = "exited normally"
	case errors.As(err, &exitErr):
		gp.status = models.StatusExited
		gp.exitReason = fmt.Sprintf("exited with code %d", gp.exitCode)
	default:
		gp.status = models.StatusError
		gp.exitReason = fmt.Sprintf("wait failed: %v", err)
		gp.waitErr = err
	}
	logger.Infof("Game '%s' (PID: %d) %s", gp.Title, gp.cmd.Process.Pid, gp.exitReason)
	gp.mutex.Unlock()

	close(gp.output)
	close(gp.done)
}

// Output 返回游戏的逐行输出，进程退出后关闭
func (gp *GameProcess) Output() <-chan OutputLine { return gp.output }

// Done 在进程退出后关闭
func (gp *GameProcess) Done() <-chan struct{} { return gp.done }

func (gp *GameProcess) Pid() int {
	if gp.cmd == nil || gp.cmd.Process == nil {
		return 0
	}
	return gp.cmd.Process.Pid
}

/**
 * Wait 等待游戏退出
 * @returns {int, error} 退出码；只有无法等待进程时才返回错误
 */
func (gp *GameProcess) Wait() (int, error) {
	<-gp.done
	gp.mutex.Lock()
	defer gp.mutex.Unlock()
	return gp.exitCode, gp.waitErr
}

/**
 * Stop 停止游戏
 * @description
 * - 先向进程组发送终止信号，超过 stopGrace 仍未退出则强制结束
 */
func (gp *GameProcess) Stop() error {
	gp.mutex.Lock()
	if gp.status != models.StatusRunning {
		gp.mutex.Unlock()
		return nil
	}
	gp.status = models.StatusStopped
	pid := gp.Pid()
	gp.mutex.Unlock()

	if err := terminateGroup(gp.cmd.Process); err != nil {
		logger.Warnf("Failed to terminate game '%s' (PID: %d): %v", gp.Title, pid, err)
	}
	select {
	case <-gp.done:
		return nil
	case <-time.After(stopGrace):
	}
	if err := killGroup(gp.cmd.Process); err != nil {
		logger.Errorf("Failed to kill game '%s' (PID: %d): %v", gp.Title, pid, err)
		return err
	}
	<-gp.done
	return nil
}

func (gp *GameProcess) Detail() models.ProcessDetail {
	gp.mutex.Lock()
	defer gp.mutex.Unlock()
	return models.ProcessDetail{
		Title:      gp.Title,
		VersionID:  gp.spec.VersionID,
		Command:    gp.spec.JavaPath,
		Args:       gp.spec.RedactedArgs(),
		WorkDir:    gp.spec.WorkDir,
		Pid:        gp.Pid(),
		Status:     gp.status,
		StartTime:  gp.startTime,
		ExitTime:   gp.exitTime,
		ExitCode:   gp.exitCode,
		ExitReason: gp.exitReason,
	}
}
