package engine

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

var errEmptyValue = errors.New("值为空")

// toUint 数据库中数值可能以文本或整数存储
// 文本只按十进制解析，不接受符号、进制前缀和小数
func toUint(v any) (uint64, error) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, errEmptyValue
		}
		return strconv.ParseUint(s, 10, 64)
	case float32, float64:
		f := cast.ToFloat64(x)
		if f < 0 || f != math.Trunc(f) || f > math.MaxUint32 {
			return 0, fmt.Errorf("%v 不是有效整数", f)
		}
		return uint64(f), nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%d 为负数", n)
	}
	return uint64(n), nil
}

// ParsePort 转换为 1-65535 的端口
func ParsePort(v any) (uint16, error) {
	n, err := toUint(v)
	if err != nil {
		return 0, fmt.Errorf("无效端口 %q: %w", fmt.Sprint(v), err)
	}
	if n < 1 || n > math.MaxUint16 {
		return 0, fmt.Errorf("端口 %d 超出范围", n)
	}
	return uint16(n), nil
}

// ParseUint32 转换为非负 32 位整数
func ParseUint32(v any) (uint32, error) {
	n, err := toUint(v)
	if err != nil {
		return 0, fmt.Errorf("无效数值 %q: %w", fmt.Sprint(v), err)
	}
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("数值 %d 超出范围", n)
	}
	return uint32(n), nil
}

// ParseFlag 0/1 标志位转为 bool，文本也接受 true/false
func ParseFlag(v any) (bool, error) {
	n, err := toUint(v)
	if err == nil {
		switch n {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return false, fmt.Errorf("标志位只能为 0 或 1，实际为 %d", n)
	}
	if errors.Is(err, errEmptyValue) {
		return false, fmt.Errorf("无效标志位: %w", err)
	}
	if _, ok := v.(string); !ok {
		return false, fmt.Errorf("无效标志位 %q: %w", fmt.Sprint(v), err)
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, fmt.Errorf("无效标志位 %q: %w", fmt.Sprint(v), err)
	}
	return b, nil
}

// optionalUint32 字段缺失时返回默认值，存在但无效时报错
func optionalUint32(v *string, def uint32) (uint32, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return def, nil
	}
	return ParseUint32(*v)
}

func optionalString(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}
