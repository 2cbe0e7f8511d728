//go:build windows

package sysutil

import (
	"os/exec"
	"syscall"
)

// HideWindow 子进程不弹出控制台窗口
func HideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}
