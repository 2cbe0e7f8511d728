package daemon

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/sirupsen/logrus"
)

const DefaultStopTimeout = 5 * time.Second

// State 引擎进程状态
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// Options Supervisor 配置
type Options struct {
	Binary      string
	ConfigPath  string
	EngineName  string // 清理残留进程时匹配的名称，默认取 Binary 文件名
	StopTimeout time.Duration
	Launcher    Launcher
	Lister      ProcessLister
	// OnExit 进程非 Stop 触发的退出时调用
	OnExit func(code int)
}

type child struct {
	proc   Process
	exited chan struct{}
	stdout *lineWriter
	stderr *lineWriter
}

// counters 单独分配，输出转发和退出监听不持有 Supervisor 本身
type counters struct {
	healthy         atomic.Bool
	starts          atomic.Uint64
	stops           atomic.Uint64
	unexpectedExits atomic.Uint64
	failures        atomic.Uint64
	straysKilled    atomic.Uint64
}

// Supervisor 管理唯一的引擎子进程
type Supervisor struct {
	log  *logrus.Logger
	opts Options
	st   *counters

	mu       sync.Mutex
	state    State
	child    *child
	closed   bool
	lastExit int
}

func NewSupervisor(log *logrus.Logger, opts Options) *Supervisor {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if opts.Launcher == nil {
		opts.Launcher = ExecLauncher{}
	}
	if opts.EngineName == "" {
		opts.EngineName = strings.TrimSuffix(filepath.Base(opts.Binary), ".exe")
	}
	s := &Supervisor{log: log, opts: opts, st: &counters{}}
	runtime.SetFinalizer(s, func(s *Supervisor) { s.Close() })
	return s
}

// Start 启动引擎，已有子进程时直接返回
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &ProcessError{Op: "start", Err: ErrClosed}
	}
	if s.child != nil {
		return nil
	}
	s.state = StateStarting

	log, st := s.log, s.st
	st.healthy.Store(true)
	stdout := newLineWriter(func(line string) {
		log.Infof("[Engine] %s", line)
	})
	stderr := newLineWriter(func(line string) {
		st.healthy.Store(false)
		log.Warnf("[Engine] %s", line)
	})

	proc, err := s.opts.Launcher.Launch(ctx, LaunchSpec{
		Binary: s.opts.Binary,
		Args:   []string{"run", "-c", s.opts.ConfigPath},
		Stdout: stdout,
		Stderr: stderr,
	})
	if err != nil {
		s.state = StateStopped
		s.log.Errorf("[Engine] 启动失败: %v", err)
		return &ProcessError{Op: "start", Err: err}
	}

	c := &child{proc: proc, exited: make(chan struct{}), stdout: stdout, stderr: stderr}
	s.child = c
	s.state = StateRunning
	st.starts.Add(1)
	go watch(weak.Make(s), c)

	s.log.Infof("[Engine] 已启动，PID: %d", proc.Pid())
	return nil
}

func watch(ws weak.Pointer[Supervisor], c *child) {
	code, err := c.proc.Wait()
	c.stdout.Flush()
	c.stderr.Flush()
	close(c.exited)

	if s := ws.Value(); s != nil {
		s.onChildExit(c, code, err)
	}
}

func (s *Supervisor) onChildExit(c *child, code int, err error) {
	s.mu.Lock()
	owned := s.child == c
	if owned {
		s.child = nil
		s.state = StateStopped
	}
	s.lastExit = code
	s.mu.Unlock()

	if !owned {
		return
	}
	s.st.unexpectedExits.Add(1)
	if code != 0 {
		s.st.failures.Add(1)
		s.log.Errorf("[Engine] 进程异常退出，退出码 %d: %v", code, err)
	} else {
		s.log.Warnf("[Engine] 进程已退出")
	}
	if s.opts.OnExit != nil {
		s.opts.OnExit(code)
	}
}

// Stop 终止引擎并等待退出，终止失败时同样释放句柄
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(ctx)
}

func (s *Supervisor) stopLocked(ctx context.Context) error {
	c := s.child
	if c == nil {
		return nil
	}
	s.state = StateStopping

	pid := c.proc.Pid()
	killErr := c.proc.Kill()
	s.child = nil
	s.st.stops.Add(1)

	var waitErr error
	if killErr == nil {
		waitErr = waitExit(ctx, c.exited, s.opts.StopTimeout)
	}
	s.state = StateStopped

	if killErr != nil {
		s.log.Errorf("[Engine] 终止进程 %d 失败: %v", pid, killErr)
		return &ProcessError{Op: "kill", Err: killErr}
	}
	if waitErr != nil {
		s.log.Warnf("[Engine] 进程 %d 未确认退出: %v", pid, waitErr)
		return &ProcessError{Op: "stop", Err: waitErr}
	}
	s.log.Infof("[Engine] 已停止，PID: %d", pid)
	return nil
}

func waitExit(ctx context.Context, exited <-chan struct{}, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-exited:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status 是否持有子进程
func (s *Supervisor) Status() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.child != nil
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Healthy 本次运行期间 stderr 没有输出
func (s *Supervisor) Healthy() bool {
	return s.Status() && s.st.healthy.Load()
}

// Pid 当前子进程 PID，未运行时为 0
func (s *Supervisor) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.child == nil {
		return 0
	}
	return s.child.proc.Pid()
}

func (s *Supervisor) LastExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastExit
}

// Close 终止子进程并拒绝后续启动，可重复调用
func (s *Supervisor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	runtime.SetFinalizer(s, nil)
	return s.stopLocked(context.Background())
}

// Stats 运行计数快照
type Stats struct {
	Running         bool
	Healthy         bool
	Pid             int
	Starts          uint64
	Stops           uint64
	UnexpectedExits uint64
	Failures        uint64
	StraysKilled    uint64
}

func (s *Supervisor) Stats() Stats {
	pid := s.Pid()
	return Stats{
		Running:         pid != 0,
		Healthy:         pid != 0 && s.st.healthy.Load(),
		Pid:             pid,
		Starts:          s.st.starts.Load(),
		Stops:           s.st.stops.Load(),
		UnexpectedExits: s.st.unexpectedExits.Load(),
		Failures:        s.st.failures.Load(),
		StraysKilled:    s.st.straysKilled.Load(),
	}
}
