//go:build !windows

package sysutil

import "os"

// IsAdmin 有效用户是否为 root
func IsAdmin() bool {
	return os.Geteuid() == 0
}
