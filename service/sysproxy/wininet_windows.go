//go:build windows

package sysproxy

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/windows"
)

const (
	internetOptionSettingsChanged = 39
	internetOptionRefresh         = 37
)

var (
	modWininet             = windows.NewLazySystemDLL("wininet.dll")
	procInternetSetOptionW = modWininet.NewProc("InternetSetOptionW")
)

// notifyWinINet 通知 WinINet 立即重新读取代理设置
func notifyWinINet() error {
	for _, option := range []uintptr{internetOptionSettingsChanged, internetOptionRefresh} {
		ret, _, callErr := procInternetSetOptionW.Call(0, option, 0, 0)
		if ret == 0 {
			if callErr != syscall.Errno(0) {
				return callErr
			}
			return fmt.Errorf("InternetSetOptionW 调用失败 (option=%d)", option)
		}
	}
	return nil
}
