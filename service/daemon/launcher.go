package daemon

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/raydesk/raydesk/pkg/sysutil"
)

// Process 已启动的子进程句柄
type Process interface {
	Pid() int
	Kill() error
	// Wait 阻塞到进程退出，返回退出码
	Wait() (int, error)
}

// LaunchSpec 启动参数，Stdout/Stderr 由 supervisor 按行转发到日志
type LaunchSpec struct {
	Binary string
	Args   []string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// Launcher 创建子进程，测试中替换为假实现
type Launcher interface {
	Launch(ctx context.Context, spec LaunchSpec) (Process, error)
}

// ExecLauncher 通过 os/exec 启动真实进程
type ExecLauncher struct{}

func (ExecLauncher) Launch(ctx context.Context, spec LaunchSpec) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// 不带路径的名称从 PATH 查找
	binary, err := exec.LookPath(spec.Binary)
	if err != nil {
		return nil, err
	}

	// 进程生命周期不跟随调用方的 ctx，由 Kill 结束
	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, binary, spec.Args...)
	cmd.Dir = spec.Dir
	if cmd.Dir == "" {
		cmd.Dir = filepath.Dir(binary)
	}
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	sysutil.HideWindow(cmd)

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, err
	}
	return &execProcess{cmd: cmd, cancel: cancel}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

func (p *execProcess) Pid() int { return p.cmd.Process.Pid }

func (p *execProcess) Kill() error {
	p.cancel()
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	p.cancel()
	if p.cmd.ProcessState != nil {
		return p.cmd.ProcessState.ExitCode(), err
	}
	return -1, err
}
