package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessInfo 进程表中的一项
type ProcessInfo struct {
	Pid     int32
	Cmdline string
}

// ProcessLister 枚举和终止系统进程
type ProcessLister interface {
	List(ctx context.Context) ([]ProcessInfo, error)
	Kill(ctx context.Context, pid int32) error
}

// PsutilLister 基于 gopsutil，屏蔽各平台 tasklist/pgrep 的差异
type PsutilLister struct{}

func (PsutilLister) List(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil || cmdline == "" {
			// 无权限读取的系统进程
			continue
		}
		infos = append(infos, ProcessInfo{Pid: p.Pid, Cmdline: cmdline})
	}
	return infos, nil
}

func (PsutilLister) Kill(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return err
	}
	return p.KillWithContext(ctx)
}

// matchesEngine 命令行必须是 "<engine> run -c ..."，程序名按路径最后一段整体比较
func matchesEngine(cmdline, engineName string) bool {
	argv := splitCmdline(cmdline)
	if len(argv) < 3 || argv[1] != "run" || argv[2] != "-c" {
		return false
	}
	name := argv[0]
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name == engineName || strings.EqualFold(name, engineName+".exe")
}

// splitCmdline 按空白拆分命令行，双引号内的空白不拆分，兼容 Windows 下带空格的路径
func splitCmdline(cmdline string) []string {
	var (
		args    []string
		cur     strings.Builder
		quoted  bool
		hasPart bool
	)
	for _, r := range cmdline {
		switch {
		case r == '"':
			quoted = !quoted
			hasPart = true
		case !quoted && (r == ' ' || r == '\t'):
			if hasPart {
				args = append(args, cur.String())
				cur.Reset()
				hasPart = false
			}
		default:
			cur.WriteRune(r)
			hasPart = true
		}
	}
	if hasPart {
		args = append(args, cur.String())
	}
	return args
}

// ClearStrayInstances 终止上次运行遗留的引擎进程，跳过当前持有的子进程
func (s *Supervisor) ClearStrayInstances(ctx context.Context) (int, error) {
	if s.opts.Lister == nil {
		return 0, nil
	}
	procs, err := s.opts.Lister.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("枚举进程失败: %w", err)
	}

	owned := s.Pid()
	self := os.Getpid()
	killed := 0
	var errs []error
	for _, p := range procs {
		if int(p.Pid) == owned || int(p.Pid) == self {
			continue
		}
		if !matchesEngine(p.Cmdline, s.opts.EngineName) {
			continue
		}
		if err := s.opts.Lister.Kill(ctx, p.Pid); err != nil {
			errs = append(errs, fmt.Errorf("终止残留进程 %d 失败: %w", p.Pid, err))
			continue
		}
		killed++
		s.log.Infof("[Engine] 已清理残留进程 %d", p.Pid)
	}
	s.st.straysKilled.Add(uint64(killed))
	return killed, errors.Join(errs...)
}
