package sysproxy

import (
	"fmt"
	"strings"
)

// TargetError 单个网络服务或配置项的失败
type TargetError struct {
	Target string
	Err    error
}

func (e TargetError) Error() string {
	return fmt.Sprintf("%s: %v", e.Target, e.Err)
}

func (e TargetError) Unwrap() error { return e.Err }

// OsProxyError 汇总一次操作中所有失败的目标
type OsProxyError struct {
	Op       string
	Failures []TargetError
}

func (e *OsProxyError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("系统代理 %s 失败: %s", e.Op, strings.Join(parts, "; "))
}

func (e *OsProxyError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// collector 逐个目标尝试并记录失败
type collector struct {
	op       string
	failures []TargetError
}

func newCollector(op string) *collector {
	return &collector{op: op}
}

func (c *collector) add(target string, err error) {
	if err != nil {
		c.failures = append(c.failures, TargetError{Target: target, Err: err})
	}
}

func (c *collector) err() error {
	if len(c.failures) == 0 {
		return nil
	}
	return &OsProxyError{Op: c.op, Failures: c.failures}
}
