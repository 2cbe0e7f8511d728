package sysproxy

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	ModeManual = "manual"
	ModePAC    = "pac"
	ModeGlobal = "global"
)

// Switch 串行化模式切换，应用新模式前总是先清除另一种模式
type Switch struct {
	backend Backend
	log     *logrus.Logger

	mu   sync.Mutex
	mode string
}

func NewSwitch(backend Backend, log *logrus.Logger) *Switch {
	return &Switch{backend: backend, log: log, mode: ModeManual}
}

// ApplyManual 清除 PAC 和全局代理
func (s *Switch) ApplyManual(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errPAC := s.backend.ClearPAC(ctx)
	errGlobal := s.backend.ClearGlobal(ctx)
	if errPAC != nil {
		return errPAC
	}
	if errGlobal != nil {
		return errGlobal
	}
	s.mode = ModeManual
	s.log.Info("[SysProxy] 已切换为手动模式")
	return nil
}

func (s *Switch) ApplyPAC(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.ClearGlobal(ctx); err != nil {
		s.log.Warnf("[SysProxy] 清除全局代理失败: %v", err)
	} else if s.mode == ModeGlobal {
		s.mode = ModeManual
	}
	if err := s.backend.ApplyPAC(ctx, url); err != nil {
		return err
	}
	s.mode = ModePAC
	s.log.Infof("[SysProxy] 已启用 PAC: %s", url)
	return nil
}

func (s *Switch) ApplyGlobal(ctx context.Context, g GlobalProxy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.ClearPAC(ctx); err != nil {
		s.log.Warnf("[SysProxy] 清除 PAC 失败: %v", err)
	} else if s.mode == ModePAC {
		s.mode = ModeManual
	}
	g.Bypass = NormalizeBypass(g.Bypass)
	if err := s.backend.ApplyGlobal(ctx, g); err != nil {
		return err
	}
	s.mode = ModeGlobal
	s.log.Infof("[SysProxy] 已启用全局代理 http=%s socks=%s", g.httpAddr(), g.socksAddr())
	return nil
}

func (s *Switch) ClearPAC(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.ClearPAC(ctx); err != nil {
		return err
	}
	if s.mode == ModePAC {
		s.mode = ModeManual
	}
	return nil
}

func (s *Switch) ClearGlobal(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.ClearGlobal(ctx); err != nil {
		return err
	}
	if s.mode == ModeGlobal {
		s.mode = ModeManual
	}
	return nil
}

// Mode 最近一次成功应用的模式
func (s *Switch) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}
