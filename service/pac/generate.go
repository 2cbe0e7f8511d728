// Package pac 生成 PAC 文件并在回环地址上提供下载
package pac

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/raydesk/raydesk/pkg/utils"
)

// ErrInvalidPAC 生成结果中缺少 FindProxyForURL
var ErrInvalidPAC = errors.New("生成的 PAC 内容无效")

const (
	placeholderRules = "__RULES__"
	placeholderHTTP  = "__HTTP__PORT__"
	placeholderSocks = "__SOCKS5__PORT__"
)

// GeneratePAC 合并自定义规则和 GFW 列表，填入模板。gfwListPath 为空时只使用自定义规则
func GeneratePAC(customRules, gfwListPath, templatePath string, httpPort, socksPort uint16) (string, error) {
	var gfwList string
	if gfwListPath != "" {
		data, err := os.ReadFile(gfwListPath)
		if err != nil {
			return "", fmt.Errorf("读取 GFW 列表失败: %w", err)
		}
		gfwList = string(data)
	}

	tpl, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("读取 PAC 模板失败: %w", err)
	}

	rules := CollectRules(customRules, gfwList)
	content := Render(string(tpl), rules, httpPort, socksPort)
	if !strings.Contains(content, "function FindProxyForURL") {
		return "", ErrInvalidPAC
	}
	return content, nil
}

// CollectRules 按顺序合并规则文本，跳过空行、! 注释和 [ 段头
func CollectRules(sources ...string) []string {
	var rules []string
	for _, src := range sources {
		for _, line := range utils.SplitLines(src) {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "!") || strings.HasPrefix(line, "[") {
				continue
			}
			rules = append(rules, line)
		}
	}
	return rules
}

// Render 替换模板中的规则数组和端口占位符
func Render(tpl string, rules []string, httpPort, socksPort uint16) string {
	return strings.NewReplacer(
		placeholderRules, rulesArray(rules),
		placeholderHTTP, strconv.Itoa(int(httpPort)),
		placeholderSocks, strconv.Itoa(int(socksPort)),
	).Replace(tpl)
}

func rulesArray(rules []string) string {
	quoted := make([]string, 0, len(rules))
	for _, r := range rules {
		b, _ := json.Marshal(r)
		quoted = append(quoted, string(b))
	}
	return "[\n" + strings.Join(quoted, ",\n") + "\n]"
}

// WritePAC 原子写入 PAC 文件
func WritePAC(path, content string) error {
	return utils.WriteFileAtomic(path, []byte(content), 0o644)
}
