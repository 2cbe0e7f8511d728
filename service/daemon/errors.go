package daemon

import (
	"errors"
	"fmt"
)

// ProcessError 启动或终止引擎进程失败
type ProcessError struct {
	Op  string
	Err error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("引擎进程 %s 失败: %v", e.Op, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

var (
	ErrClosed      = errors.New("supervisor 已关闭")
	ErrStopTimeout = errors.New("等待进程退出超时")
)
