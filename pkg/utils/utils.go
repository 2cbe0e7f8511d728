package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// GenerateKey 生成指定字节数的随机 key（十六进制编码）
func GenerateKey(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("生成随机 key 失败: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ValidatePort 验证端口号
func ValidatePort(port int) bool {
	return port >= 1 && port <= 65535
}

// ValidateIP 验证 IP 地址
func ValidateIP(ip string) bool {
	return net.ParseIP(ip) != nil
}

// ValidateCIDR 验证 CIDR
func ValidateCIDR(cidr string) bool {
	_, _, err := net.ParseCIDR(cidr)
	return err == nil
}

// IsIPOrCIDR 判断是否为 IP 或 CIDR
func IsIPOrCIDR(s string) bool {
	return ValidateIP(s) || ValidateCIDR(s)
}

// SplitLines 按行拆分，兼容 \r\n
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

// WriteFileAtomic 先写临时文件再重命名，读取方不会看到写了一半的内容
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("设置文件权限失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("替换 %s 失败: %w", path, err)
	}
	return nil
}
