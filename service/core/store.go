package core

import (
	"context"
	"fmt"

	"github.com/raydesk/raydesk/model"
	"github.com/raydesk/raydesk/service/engine"
	"gorm.io/gorm"
)

// inboundAddrs 系统代理指向的本地入站
type inboundAddrs struct {
	Host      string
	HTTPPort  uint16
	SocksPort uint16
}

func (c *Core) loggedInUser(ctx context.Context) (string, error) {
	if c.db == nil {
		return "", ErrNoDB
	}
	var ids []string
	err := c.db.WithContext(ctx).Model(&model.AppStatus{}).
		Where("LoginState = ?", 1).
		Limit(1).
		Pluck("UserID", &ids).Error
	if err != nil {
		return "", fmt.Errorf("查询登录用户失败: %w", err)
	}
	if len(ids) == 0 {
		return "", ErrNoUser
	}
	return ids[0], nil
}

func (c *Core) settings(ctx context.Context, userID string) (model.AppSettings, error) {
	var st model.AppSettings
	if c.db == nil {
		return st, ErrNoDB
	}
	if err := c.db.WithContext(ctx).Where("UserID = ?", userID).First(&st).Error; err != nil {
		return st, fmt.Errorf("读取用户设置失败: %w", err)
	}
	return st, nil
}

func userGroups(db *gorm.DB, userID string) *gorm.DB {
	return db.Model(&model.EndpointsGroup{}).Select("GroupID").Where("UserID = ?", userID)
}

func (c *Core) activeEndpoint(ctx context.Context, userID string) (string, error) {
	if c.db == nil {
		return "", ErrNoDB
	}
	db := c.db.WithContext(ctx)
	var ids []string
	err := db.Model(&model.Endpoint{}).
		Where("Active = ? AND GroupID IN (?)", 1, userGroups(db, userID)).
		Limit(1).
		Pluck("EndpointID", &ids).Error
	if err != nil {
		return "", fmt.Errorf("查询激活节点失败: %w", err)
	}
	if len(ids) == 0 {
		return "", ErrNoActiveEndpoint
	}
	return ids[0], nil
}

// activate 在该用户的分组内把 endpointID 设为唯一激活节点
func (c *Core) activate(ctx context.Context, userID, endpointID string) error {
	if c.db == nil {
		return ErrNoDB
	}
	db := c.db.WithContext(ctx)
	err := db.Model(&model.Endpoint{}).
		Where("(Active = ? OR EndpointID = ?) AND GroupID IN (?)", 1, endpointID, userGroups(db, userID)).
		Update("Active", gorm.Expr("CASE WHEN EndpointID = ? THEN 1 ELSE 0 END", endpointID)).Error
	if err != nil {
		return fmt.Errorf("更新激活节点失败: %w", err)
	}
	return nil
}

// persistRunningState 把守护进程的实际状态写回 AppStatus，userID 为空时更新所有已登录用户
func (c *Core) persistRunningState(ctx context.Context, userID string) {
	if c.db == nil {
		return
	}
	state := 0
	if c.sup.Status() {
		state = 1
	}
	q := c.db.WithContext(ctx).Model(&model.AppStatus{})
	if userID != "" {
		q = q.Where("UserID = ?", userID)
	} else {
		q = q.Where("LoginState = ?", 1)
	}
	if err := q.Update("ServiceRunningState", state).Error; err != nil {
		c.log.Errorf("[Core] 更新运行状态失败: %v", err)
	}
}

func (c *Core) setProxyMode(ctx context.Context, userID, mode string) error {
	if c.db == nil {
		return ErrNoDB
	}
	err := c.db.WithContext(ctx).Model(&model.AppSettings{}).
		Where("UserID = ?", userID).
		Update("ProxyMode", mode).Error
	if err != nil {
		return fmt.Errorf("保存代理模式失败: %w", err)
	}
	return nil
}

func (c *Core) inbounds(ctx context.Context, userID string) (inboundAddrs, error) {
	var addrs inboundAddrs
	if c.db == nil {
		return addrs, ErrNoDB
	}
	var rows []model.Inbound
	err := c.db.WithContext(ctx).
		Where("UserID = ? AND Tag IN ?", userID, []string{model.TagHTTPInbound, model.TagSocksInbound}).
		Find(&rows).Error
	if err != nil {
		return addrs, fmt.Errorf("读取入站失败: %w", err)
	}

	var haveHTTP, haveSocks bool
	for _, in := range rows {
		port, err := engine.ParsePort(in.Port)
		if err != nil {
			return addrs, fmt.Errorf("入站 %s 端口无效: %w", in.Tag, err)
		}
		switch in.Tag {
		case model.TagHTTPInbound:
			addrs.Host = loopbackHost(in.Listen)
			addrs.HTTPPort = port
			haveHTTP = true
		case model.TagSocksInbound:
			addrs.SocksPort = port
			haveSocks = true
		}
	}
	if !haveHTTP {
		return addrs, fmt.Errorf("%w: %s", ErrInboundMissing, model.TagHTTPInbound)
	}
	if !haveSocks {
		return addrs, fmt.Errorf("%w: %s", ErrInboundMissing, model.TagSocksInbound)
	}
	return addrs, nil
}

// loopbackHost 监听所有地址时系统代理仍指向回环
func loopbackHost(listen string) string {
	switch listen {
	case "", "0.0.0.0", "::", "[::]":
		return "127.0.0.1"
	}
	return listen
}
