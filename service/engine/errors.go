package engine

import (
	"errors"
	"fmt"
)

// ConfigError 配置合成失败：缺少记录、JSON 损坏或数值转换失败
type ConfigError struct {
	Section string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("生成引擎配置失败 [%s]: %v", e.Section, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// AssociationError 节点不属于该用户可访问的分组
type AssociationError struct {
	UserID     string
	EndpointID string
}

func (e *AssociationError) Error() string {
	return fmt.Sprintf("节点 %s 不属于用户 %s", e.EndpointID, e.UserID)
}

var (
	ErrUnsupportedProtocol = errors.New("不支持的协议")
	ErrUnsupportedNetwork  = errors.New("不支持的传输方式")
	ErrNoServers           = errors.New("未配置服务器")
)

func configErr(section string, err error) error {
	return &ConfigError{Section: section, Err: err}
}
