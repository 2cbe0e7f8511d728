//go:build !windows

package sysutil

import "os/exec"

func HideWindow(cmd *exec.Cmd) {}
