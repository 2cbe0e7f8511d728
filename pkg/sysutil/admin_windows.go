//go:build windows

package sysutil

import (
	"golang.org/x/sys/windows"
)

// IsAdmin 当前进程令牌是否已提升
// UAC 开启时管理员组成员的普通令牌不算
func IsAdmin() bool {
	token := windows.GetCurrentProcessToken()
	if token.IsElevated() {
		return true
	}

	// UAC 关闭时令牌不会标记为已提升，再查 Administrators 组
	var sid *windows.SID
	if err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	); err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := windows.Token(0).IsMember(sid)
	return err == nil && member
}
