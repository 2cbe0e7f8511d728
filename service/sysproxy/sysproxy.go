// Package sysproxy 切换操作系统的代理设置：PAC、全局代理和手动（关闭）。
//
// 各平台的实现都通过 CommandRunner 调用系统命令（reg、networksetup、gsettings），
// 运行时按 runtime.GOOS 选择，测试中使用假的 CommandRunner 模拟系统状态。
package sysproxy

import (
	"context"
	"errors"
	"strconv"
)

var ErrUnsupportedPlatform = errors.New("当前平台不支持自动设置系统代理")

// GlobalProxy 全局代理参数
type GlobalProxy struct {
	Host      string
	HTTPPort  uint16
	SocksPort uint16
	Bypass    []string
}

func (g GlobalProxy) httpAddr() string {
	return g.Host + ":" + strconv.Itoa(int(g.HTTPPort))
}

func (g GlobalProxy) socksAddr() string {
	return g.Host + ":" + strconv.Itoa(int(g.SocksPort))
}

// Backend 单个平台的系统代理实现，所有操作都应可重复调用
type Backend interface {
	ApplyPAC(ctx context.Context, url string) error
	ClearPAC(ctx context.Context) error
	ApplyGlobal(ctx context.Context, g GlobalProxy) error
	ClearGlobal(ctx context.Context) error
}

// NewBackend 按操作系统选择实现，Linux 仅支持 GNOME
func NewBackend(goos string, runner CommandRunner) Backend {
	switch goos {
	case "windows":
		return NewWindowsBackend(runner)
	case "darwin":
		return NewDarwinBackend(runner)
	case "linux":
		return NewGnomeBackend(runner)
	default:
		return unsupportedBackend{}
	}
}

type unsupportedBackend struct{}

func (unsupportedBackend) ApplyPAC(context.Context, string) error         { return ErrUnsupportedPlatform }
func (unsupportedBackend) ClearPAC(context.Context) error                 { return nil }
func (unsupportedBackend) ApplyGlobal(context.Context, GlobalProxy) error { return ErrUnsupportedPlatform }
func (unsupportedBackend) ClearGlobal(context.Context) error              { return nil }
