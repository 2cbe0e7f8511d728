package sysproxy

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/raydesk/raydesk/pkg/sysutil"
)

// CommandRunner 执行系统命令并返回标准输出
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner 直接执行命令，失败时把 stderr 附加到错误中
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	sysutil.HideWindow(cmd)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "unknown error"
		}
		return stdout.String(), fmt.Errorf("%s %s 执行失败: %v (%s)", name, strings.Join(args, " "), err, msg)
	}
	return stdout.String(), nil
}
