package syncer

import (
	"context"
)

// Service 同步引擎服务封装
type Service struct {
	engine *Engine
}

// NewService 创建同步服务
func NewService(engine *Engine) *Service {
	return &Service{engine: engine}
}

// Name 服务名称
func (s *Service) Name() string {
	return "syncer"
}

// Start 启动触发循环
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.engine == nil {
		return nil
	}
	// 启动即排空一次，消化上次运行遗留的积压
	s.engine.Trigger("startup")
	return s.engine.Run(ctx)
}

// Stop 停止服务（触发循环随 ctx 退出，排空在条目边界停下）
func (s *Service) Stop(ctx context.Context) error {
	return nil
}
