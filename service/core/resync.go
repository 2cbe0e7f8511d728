package core

import (
	"context"
	"fmt"
	"time"

	"github.com/raydesk/raydesk/model"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const resyncTimeout = 10 * time.Second

// Resync 把已登录用户的 ServiceRunningState 纠正为引擎的实际状态，返回被修改的行数
func (c *Core) Resync(ctx context.Context) (int64, error) {
	if c.db == nil {
		return 0, ErrNoDB
	}
	state := 0
	if c.sup.Status() {
		state = 1
	}
	res := c.db.WithContext(ctx).Model(&model.AppStatus{}).
		Where("LoginState = ? AND ServiceRunningState <> ?", 1, state).
		Update("ServiceRunningState", state)
	if res.Error != nil {
		return 0, fmt.Errorf("校正运行状态失败: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Resyncer 周期性执行 Resync
type Resyncer struct {
	core *Core
	log  *logrus.Logger
	cron *cron.Cron
}

// NewResyncer 按 cron 表达式注册任务并立即开始调度
func NewResyncer(c *Core, log *logrus.Logger, spec string) (*Resyncer, error) {
	r := &Resyncer{core: c, log: log, cron: cron.New(cron.WithSeconds())}
	if _, err := r.cron.AddFunc(spec, r.run); err != nil {
		return nil, fmt.Errorf("添加状态校正任务失败: %w", err)
	}
	r.cron.Start()
	log.Infof("[Resync] 状态校正任务已启动，表达式: %s", spec)
	return r, nil
}

func (r *Resyncer) run() {
	ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
	defer cancel()

	n, err := r.core.Resync(ctx)
	if err != nil {
		r.log.Warnf("[Resync] %v", err)
		return
	}
	if n > 0 {
		r.log.Infof("[Resync] 已校正 %d 条运行状态", n)
	}
}

// Stop 停止调度并等待正在执行的任务结束
func (r *Resyncer) Stop() {
	<-r.cron.Stop().Done()
}
