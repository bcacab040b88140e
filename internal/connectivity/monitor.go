package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/pocketshop-sync/internal/logger"
)

// Prober 连通性探针
type Prober interface {
	Probe(ctx context.Context) bool
}

// ProbeFunc 函数型探针适配
type ProbeFunc func(ctx context.Context) bool

// Probe 执行探测
func (f ProbeFunc) Probe(ctx context.Context) bool {
	return f(ctx)
}

// Monitor 连接监测器：周期探测远端可达性，仅在状态翻转时通知回调（边沿触发）
type Monitor struct {
	name     string
	prober   Prober
	interval time.Duration

	mu        sync.Mutex
	online    bool
	probed    bool
	callbacks []func(online bool)
}

// NewMonitor 创建连接监测器
func NewMonitor(prober Prober, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Monitor{
		name:     "connectivity",
		prober:   prober,
		interval: interval,
	}
}

// Name 服务名称
func (m *Monitor) Name() string {
	if m == nil || m.name == "" {
		return "connectivity"
	}
	return m.name
}

// Online 当前连接状态
func (m *Monitor) Online() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnChange 注册状态翻转回调（启动前注册）
func (m *Monitor) OnChange(fn func(online bool)) {
	if m == nil || fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Start 启动探测循环
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil || m.prober == nil {
		return nil
	}
	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

// Stop 停止服务
func (m *Monitor) Stop(ctx context.Context) error {
	return nil
}

func (m *Monitor) probe(ctx context.Context) {
	online := m.prober.Probe(ctx)

	m.mu.Lock()
	changed := !m.probed || online != m.online
	m.probed = true
	m.online = online
	callbacks := make([]func(bool), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	if !changed {
		return
	}
	logger.Infow("connectivity_changed", "online", online)
	for _, fn := range callbacks {
		fn(online)
	}
}
