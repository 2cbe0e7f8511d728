package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/raydesk/raydesk/model"
	"github.com/raydesk/raydesk/service/sysproxy"
)

// SwitchEndpoint 切换激活节点。新节点的配置生成成功后才停止引擎，原本在运行时用新配置重启
func (c *Core) SwitchEndpoint(ctx context.Context, userID, endpointID string) error {
	data, err := c.renderConfig(ctx, endpointID, userID)
	if err != nil {
		return err
	}
	wasRunning := c.sup.Status()

	if err := c.StopDaemonE(ctx); err != nil {
		return err
	}
	if err := c.writeConfig(endpointID, data); err != nil {
		// 原配置文件未被改动，恢复原节点
		if wasRunning {
			if startErr := c.StartDaemonE(ctx); startErr != nil {
				err = errors.Join(err, startErr)
			}
		}
		c.persistRunningState(ctx, userID)
		return err
	}
	c.persistRunningState(ctx, userID)
	if err := c.activate(ctx, userID, endpointID); err != nil {
		return err
	}

	if wasRunning {
		err := c.StartDaemonE(ctx)
		c.persistRunningState(ctx, userID)
		if err != nil {
			return err
		}
	}
	c.log.Infof("[Core] 用户 %s 已切换到节点 %s", userID, endpointID)
	return nil
}

// SwitchMode 按数据库中的设置切换系统代理模式，成功后保存模式
func (c *Core) SwitchMode(ctx context.Context, userID, mode string) error {
	var err error
	switch mode {
	case model.ProxyModePAC:
		err = c.applyPACMode(ctx, userID)
	case model.ProxyModeGlobal:
		err = c.applyGlobalMode(ctx, userID)
	case model.ProxyModeManual:
		err = errors.Join(c.UnsetPACProxy(ctx), c.UnsetGlobalProxy(ctx))
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	if err != nil {
		c.log.Errorf("[Core] 切换到 %s 模式失败: %v", mode, err)
		return err
	}
	if err := c.setProxyMode(ctx, userID, mode); err != nil {
		return err
	}
	c.log.Infof("[Core] 代理模式已切换为 %s", mode)
	return nil
}

func (c *Core) applyPACMode(ctx context.Context, userID string) error {
	st, err := c.settings(ctx, userID)
	if err != nil {
		return err
	}
	addrs, err := c.inbounds(ctx, userID)
	if err != nil {
		return err
	}
	_, err = c.SetupPACProxy(ctx, st.PAC, addrs.HTTPPort, addrs.SocksPort)
	return err
}

func (c *Core) applyGlobalMode(ctx context.Context, userID string) error {
	st, err := c.settings(ctx, userID)
	if err != nil {
		return err
	}
	addrs, err := c.inbounds(ctx, userID)
	if err != nil {
		return err
	}
	bypass, err := sysproxy.ParseBypassDomains(st.BypassDomains)
	if err != nil {
		return err
	}
	return c.SetupGlobalProxy(ctx, addrs.Host, addrs.HTTPPort, addrs.SocksPort, bypass)
}

// ToggleService 运行中则停止，否则为激活节点生成配置后启动，返回切换后的状态
func (c *Core) ToggleService(ctx context.Context, userID string) (bool, error) {
	var err error
	if c.sup.Status() {
		err = c.StopDaemonE(ctx)
	} else {
		err = c.startActive(ctx, userID)
	}
	c.persistRunningState(ctx, userID)
	return c.sup.Status(), err
}

// Quit 退出前恢复系统代理并终止引擎，之后守护进程不再接受启动
func (c *Core) Quit(ctx context.Context, userID string) error {
	errs := c.teardown(ctx, userID)
	if err := c.pacSrv.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.sup.Close(); err != nil {
		errs = append(errs, err)
	}
	c.log.Info("[Core] 已退出")
	return errors.Join(errs...)
}

// Shutdown 以当前登录用户执行 Quit
func (c *Core) Shutdown(ctx context.Context) error {
	userID, err := c.loggedInUser(ctx)
	if err != nil {
		c.log.Debugf("[Core] 关闭时未找到登录用户: %v", err)
	}
	return c.Quit(ctx, userID)
}

// GracefulRestart 清理全部状态后重新执行启动校正
func (c *Core) GracefulRestart(ctx context.Context, userID string) error {
	errs := c.teardown(ctx, userID)
	NewReconciler(c).Run(ctx)
	return errors.Join(errs...)
}

// teardown 清除系统代理、模式改回手动、停止引擎
func (c *Core) teardown(ctx context.Context, userID string) []error {
	var errs []error
	if err := c.UnsetPACProxy(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.UnsetGlobalProxy(ctx); err != nil {
		errs = append(errs, err)
	}
	if userID != "" {
		if err := c.setProxyMode(ctx, userID, model.ProxyModeManual); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.StopDaemonE(ctx); err != nil {
		errs = append(errs, err)
	}
	if userID != "" {
		c.persistRunningState(ctx, userID)
	}
	return errs
}

// ProxyCommand 生成在终端中使用本地代理的命令
func (c *Core) ProxyCommand(ctx context.Context, userID string) (string, error) {
	addrs, err := c.inbounds(ctx, userID)
	if err != nil {
		return "", err
	}
	httpURL := fmt.Sprintf("http://%s:%d", addrs.Host, addrs.HTTPPort)
	socksURL := fmt.Sprintf("socks5://%s:%d", addrs.Host, addrs.SocksPort)
	if c.goos == "windows" {
		return fmt.Sprintf("set http_proxy=%s & set https_proxy=%s & set all_proxy=%s", httpURL, httpURL, socksURL), nil
	}
	return fmt.Sprintf("export https_proxy=%s http_proxy=%s all_proxy=%s", httpURL, httpURL, socksURL), nil
}
