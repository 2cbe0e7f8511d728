package sysproxy

import (
	"context"
	"strings"
)

const internetSettingsKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Internet Settings`

// WindowsBackend 通过 reg 修改当前用户的 Internet Settings
type WindowsBackend struct {
	runner  CommandRunner
	refresh func() error
}

func NewWindowsBackend(runner CommandRunner) *WindowsBackend {
	return &WindowsBackend{runner: runner, refresh: notifyWinINet}
}

func (b *WindowsBackend) regAdd(ctx context.Context, name, typ, data string) error {
	_, err := b.runner.Run(ctx, "reg", "add", internetSettingsKey, "/v", name, "/t", typ, "/d", data, "/f")
	return err
}

// regDelete 值不存在时 reg 也会报错，删除失败一律忽略
func (b *WindowsBackend) regDelete(ctx context.Context, name string) {
	b.runner.Run(ctx, "reg", "delete", internetSettingsKey, "/v", name, "/f")
}

func (b *WindowsBackend) ApplyPAC(ctx context.Context, url string) error {
	c := newCollector("apply-pac")
	c.add("AutoConfigURL", b.regAdd(ctx, "AutoConfigURL", "REG_SZ", url))
	c.add("ProxyEnable", b.regAdd(ctx, "ProxyEnable", "REG_DWORD", "0"))
	c.add("WinINet", b.refresh())
	return c.err()
}

func (b *WindowsBackend) ClearPAC(ctx context.Context) error {
	c := newCollector("clear-pac")
	b.regDelete(ctx, "AutoConfigURL")
	c.add("WinINet", b.refresh())
	return c.err()
}

func (b *WindowsBackend) ApplyGlobal(ctx context.Context, g GlobalProxy) error {
	server := "http=" + g.httpAddr() + ";https=" + g.httpAddr() + ";socks=" + g.socksAddr()

	c := newCollector("apply-global")
	c.add("ProxyEnable", b.regAdd(ctx, "ProxyEnable", "REG_DWORD", "1"))
	c.add("ProxyServer", b.regAdd(ctx, "ProxyServer", "REG_SZ", server))
	if len(g.Bypass) > 0 {
		c.add("ProxyOverride", b.regAdd(ctx, "ProxyOverride", "REG_SZ", strings.Join(g.Bypass, ";")))
	} else {
		b.regDelete(ctx, "ProxyOverride")
	}
	c.add("WinINet", b.refresh())
	return c.err()
}

func (b *WindowsBackend) ClearGlobal(ctx context.Context) error {
	c := newCollector("clear-global")
	c.add("ProxyEnable", b.regAdd(ctx, "ProxyEnable", "REG_DWORD", "0"))
	b.regDelete(ctx, "ProxyServer")
	b.regDelete(ctx, "ProxyOverride")
	c.add("WinINet", b.refresh())
	return c.err()
}
