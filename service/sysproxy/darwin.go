package sysproxy

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// DarwinBackend 通过 networksetup 对每个已启用的网络服务分别设置
type DarwinBackend struct {
	runner CommandRunner
}

func NewDarwinBackend(runner CommandRunner) *DarwinBackend {
	return &DarwinBackend{runner: runner}
}

func (b *DarwinBackend) services(ctx context.Context) ([]string, error) {
	out, err := b.runner.Run(ctx, "networksetup", "-listallnetworkservices")
	if err != nil {
		return nil, err
	}
	var services []string
	for _, line := range strings.Split(out, "\n") {
		s := strings.TrimSpace(line)
		// 首行为说明文字，* 开头的服务已停用
		if s == "" || strings.HasPrefix(s, "An asterisk") || strings.HasPrefix(s, "*") {
			continue
		}
		services = append(services, s)
	}
	if len(services) == 0 {
		return nil, errors.New("未找到可用的网络服务")
	}
	return services, nil
}

// forEachService 对每个服务依次执行命令，单个服务失败不影响其余服务
func (b *DarwinBackend) forEachService(ctx context.Context, op string, cmds func(svc string) [][]string) error {
	c := newCollector(op)
	services, err := b.services(ctx)
	if err != nil {
		c.add("-listallnetworkservices", err)
		return c.err()
	}
	for _, svc := range services {
		for _, args := range cmds(svc) {
			if _, err := b.runner.Run(ctx, "networksetup", args...); err != nil {
				c.add(svc, err)
				break
			}
		}
	}
	return c.err()
}

func (b *DarwinBackend) ApplyPAC(ctx context.Context, url string) error {
	return b.forEachService(ctx, "apply-pac", func(svc string) [][]string {
		return [][]string{
			{"-setautoproxyurl", svc, url},
			{"-setautoproxystate", svc, "on"},
		}
	})
}

func (b *DarwinBackend) ClearPAC(ctx context.Context) error {
	return b.forEachService(ctx, "clear-pac", func(svc string) [][]string {
		return [][]string{
			{"-setautoproxystate", svc, "off"},
		}
	})
}

func (b *DarwinBackend) ApplyGlobal(ctx context.Context, g GlobalProxy) error {
	httpPort := strconv.Itoa(int(g.HTTPPort))
	socksPort := strconv.Itoa(int(g.SocksPort))
	return b.forEachService(ctx, "apply-global", func(svc string) [][]string {
		cmds := [][]string{
			{"-setwebproxy", svc, g.Host, httpPort},
			{"-setsecurewebproxy", svc, g.Host, httpPort},
			{"-setsocksfirewallproxy", svc, g.Host, socksPort},
			{"-setwebproxystate", svc, "on"},
			{"-setsecurewebproxystate", svc, "on"},
			{"-setsocksfirewallproxystate", svc, "on"},
		}
		if len(g.Bypass) > 0 {
			cmds = append(cmds, append([]string{"-setproxybypassdomains", svc}, g.Bypass...))
		}
		return cmds
	})
}

func (b *DarwinBackend) ClearGlobal(ctx context.Context) error {
	return b.forEachService(ctx, "clear-global", func(svc string) [][]string {
		return [][]string{
			{"-setwebproxystate", svc, "off"},
			{"-setsecurewebproxystate", svc, "off"},
			{"-setsocksfirewallproxystate", svc, "off"},
			// networksetup 以 Empty 表示清空列表
			{"-setproxybypassdomains", svc, "Empty"},
		}
	})
}
