package sysproxy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raydesk/raydesk/pkg/utils"
	"golang.org/x/net/idna"
)

// NormalizeBypass 去掉空白和尾随逗号，去重，非 ASCII 域名转为 punycode，IP/CIDR 原样保留
func NormalizeBypass(hosts []string) []string {
	seen := make(map[string]struct{}, len(hosts))
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.TrimRight(strings.TrimSpace(h), ",")
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if !utils.IsIPOrCIDR(h) && !isASCII(h) {
			if ascii, err := idna.Lookup.ToASCII(h); err == nil {
				h = ascii
			}
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// ParseBypassDomains 解析 AppSettings.BypassDomains 中的 {"bypass": [...]}
func ParseBypassDomains(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var doc struct {
		Bypass []string `json:"bypass"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("解析绕过列表失败: %w", err)
	}
	return NormalizeBypass(doc.Bypass), nil
}
