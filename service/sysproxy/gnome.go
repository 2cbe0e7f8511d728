package sysproxy

import (
	"context"
	"strconv"
	"strings"
)

const gnomeProxySchema = "org.gnome.system.proxy"

// GnomeBackend 通过 gsettings 修改 org.gnome.system.proxy
type GnomeBackend struct {
	runner CommandRunner
}

func NewGnomeBackend(runner CommandRunner) *GnomeBackend {
	return &GnomeBackend{runner: runner}
}

type gsetting struct {
	schema string
	key    string
	value  string // 为空表示 reset
}

func (b *GnomeBackend) apply(ctx context.Context, op string, settings []gsetting) error {
	c := newCollector(op)
	for _, s := range settings {
		args := []string{"reset", s.schema, s.key}
		if s.value != "" {
			args = []string{"set", s.schema, s.key, s.value}
		}
		_, err := b.runner.Run(ctx, "gsettings", args...)
		c.add(s.schema+" "+s.key, err)
	}
	return c.err()
}

func (b *GnomeBackend) ApplyPAC(ctx context.Context, url string) error {
	return b.apply(ctx, "apply-pac", []gsetting{
		{gnomeProxySchema, "mode", "'auto'"},
		{gnomeProxySchema, "autoconfig-url", quoteGVariant(url)},
	})
}

func (b *GnomeBackend) ClearPAC(ctx context.Context) error {
	return b.apply(ctx, "clear-pac", []gsetting{
		{gnomeProxySchema, "mode", "'none'"},
		{gnomeProxySchema, "autoconfig-url", ""},
	})
}

func (b *GnomeBackend) ApplyGlobal(ctx context.Context, g GlobalProxy) error {
	host := quoteGVariant(g.Host)
	httpPort := strconv.Itoa(int(g.HTTPPort))
	socksPort := strconv.Itoa(int(g.SocksPort))

	settings := []gsetting{
		{gnomeProxySchema, "mode", "'manual'"},
		{gnomeProxySchema + ".http", "host", host},
		{gnomeProxySchema + ".http", "port", httpPort},
		{gnomeProxySchema + ".https", "host", host},
		{gnomeProxySchema + ".https", "port", httpPort},
		{gnomeProxySchema + ".socks", "host", host},
		{gnomeProxySchema + ".socks", "port", socksPort},
	}
	if len(g.Bypass) > 0 {
		settings = append(settings, gsetting{gnomeProxySchema, "ignore-hosts", formatGVariantStringList(g.Bypass)})
	}
	return b.apply(ctx, "apply-global", settings)
}

func (b *GnomeBackend) ClearGlobal(ctx context.Context) error {
	settings := []gsetting{{gnomeProxySchema, "mode", "'none'"}}
	for _, section := range []string{".http", ".https", ".socks"} {
		settings = append(settings,
			gsetting{gnomeProxySchema + section, "host", ""},
			gsetting{gnomeProxySchema + section, "port", ""},
		)
	}
	settings = append(settings, gsetting{gnomeProxySchema, "ignore-hosts", ""})
	return b.apply(ctx, "clear-global", settings)
}

func quoteGVariant(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
}

func formatGVariantStringList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, it := range items {
		quoted = append(quoted, quoteGVariant(it))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
