package core

import (
	"context"
	"errors"

	"github.com/raydesk/raydesk/service/engine"
	"github.com/raydesk/raydesk/service/pac"
	"github.com/raydesk/raydesk/service/sysproxy"
)

// StartDaemonE 启动引擎，已在运行时直接成功
func (c *Core) StartDaemonE(ctx context.Context) error {
	err := c.sup.Start(ctx)
	if err != nil {
		c.log.Errorf("[Core] 启动引擎失败: %v", err)
	}
	c.persistRunningState(ctx, "")
	return err
}

func (c *Core) StartDaemon(ctx context.Context) bool {
	return c.StartDaemonE(ctx) == nil
}

// StopDaemonE 停止引擎，未运行时直接成功
func (c *Core) StopDaemonE(ctx context.Context) error {
	err := c.sup.Stop(ctx)
	if err != nil {
		c.log.Errorf("[Core] 停止引擎失败: %v", err)
	}
	c.persistRunningState(ctx, "")
	return err
}

func (c *Core) StopDaemon(ctx context.Context) bool {
	return c.StopDaemonE(ctx) == nil
}

func (c *Core) CheckDaemonStatus() bool {
	return c.sup.Status()
}

// InjectConfigE 为节点生成配置并写入配置文件，生成失败时不写任何内容
func (c *Core) InjectConfigE(ctx context.Context, endpointID, userID string) error {
	data, err := c.renderConfig(ctx, endpointID, userID)
	if err != nil {
		return err
	}
	return c.writeConfig(endpointID, data)
}

func (c *Core) renderConfig(ctx context.Context, endpointID, userID string) ([]byte, error) {
	data, err := c.synth.Render(ctx, userID, endpointID)
	if err != nil {
		c.log.Errorf("[Core] 生成节点 %s 的配置失败: %v", endpointID, err)
		return nil, err
	}
	return data, nil
}

func (c *Core) writeConfig(endpointID string, data []byte) error {
	if err := engine.WriteConfig(c.cfg.ConfigPath, data); err != nil {
		c.log.Errorf("[Core] 写入配置失败: %v", err)
		return err
	}
	c.log.Infof("[Core] 已写入节点 %s 的配置: %s", endpointID, c.cfg.ConfigPath)
	return nil
}

func (c *Core) InjectConfig(ctx context.Context, endpointID, userID string) bool {
	return c.InjectConfigE(ctx, endpointID, userID) == nil
}

// SetupPACProxy 生成 PAC 文件、启动 PAC 服务并把系统代理切到 PAC，返回 PAC 地址
func (c *Core) SetupPACProxy(ctx context.Context, customRules string, httpPort, socksPort uint16) (string, error) {
	content, err := pac.GeneratePAC(customRules, c.cfg.GfwListPath, c.cfg.TemplatePath, httpPort, socksPort)
	if err != nil {
		c.log.Errorf("[Core] 生成 PAC 失败: %v", err)
		return "", err
	}
	if err := pac.WritePAC(c.cfg.PACPath, content); err != nil {
		c.log.Errorf("[Core] 写入 PAC 失败: %v", err)
		return "", err
	}
	url, err := c.pacSrv.Start(c.cfg.PACPath)
	if err != nil {
		c.log.Errorf("[Core] 启动 PAC 服务失败: %v", err)
		return "", err
	}
	if err := c.proxy.ApplyPAC(ctx, url); err != nil {
		c.log.Errorf("[Core] 设置 PAC 代理失败: %v", err)
		if stopErr := c.pacSrv.Stop(ctx); stopErr != nil {
			c.log.Warnf("[Core] 停止 PAC 服务失败: %v", stopErr)
		}
		return "", err
	}
	return url, nil
}

// UnsetPACProxy 清除系统 PAC 设置并停止 PAC 服务
func (c *Core) UnsetPACProxy(ctx context.Context) error {
	return errors.Join(c.proxy.ClearPAC(ctx), c.pacSrv.Stop(ctx))
}

// SetupGlobalProxy 把系统代理指向本地入站，PAC 服务随之停止
func (c *Core) SetupGlobalProxy(ctx context.Context, host string, httpPort, socksPort uint16, bypass []string) error {
	err := c.proxy.ApplyGlobal(ctx, sysproxy.GlobalProxy{
		Host:      host,
		HTTPPort:  httpPort,
		SocksPort: socksPort,
		Bypass:    bypass,
	})
	if err != nil {
		c.log.Errorf("[Core] 设置全局代理失败: %v", err)
	}
	// 系统 PAC 设置已清除时 PAC 服务不再被引用
	if c.proxy.Mode() != sysproxy.ModePAC {
		if stopErr := c.pacSrv.Stop(ctx); stopErr != nil {
			c.log.Warnf("[Core] 停止 PAC 服务失败: %v", stopErr)
		}
	}
	return err
}

func (c *Core) UnsetGlobalProxy(ctx context.Context) error {
	return c.proxy.ClearGlobal(ctx)
}
