package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pocketshop-sync/internal/constants"
	"github.com/pocketshop-sync/internal/logger"
	"github.com/pocketshop-sync/internal/models"
	"github.com/pocketshop-sync/internal/remote"
	"github.com/pocketshop-sync/internal/repository"
)

// OnlineChecker 连接状态查询
type OnlineChecker interface {
	Online() bool
}

// Progress 一轮排空的结果
type Progress struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int       `json:"processed"`         // 成功同步并移除的条目
	Retried    int       `json:"retried"`           // 失败但保留待重试的条目
	Quarantine int       `json:"quarantined"`       // 本轮被隔离的条目
	Reason     string    `json:"reason"`            // 触发来源
	Skipped    bool      `json:"skipped,omitempty"` // 离线跳过，未触碰队列
	Err        string    `json:"error,omitempty"`
}

// Engine 同步引擎
// 空闲/排空两态：触发信号把引擎从空闲推入排空；内部互斥保证
// 任意时刻至多一轮排空在执行，排空期间的触发合并为下一轮。
type Engine struct {
	outboxRepo repository.OutboxRepository
	orderRepo  repository.OrderRepository
	gateway    remote.Gateway
	online     OnlineChecker

	maxRetries int
	drainDelay time.Duration

	drainMu  sync.Mutex // 单一排空许可
	triggers chan string

	progressMu sync.Mutex
	last       *Progress

	subMu   sync.Mutex
	subs    map[int]chan Progress
	nextSub int
}

// NewEngine 创建同步引擎
func NewEngine(outboxRepo repository.OutboxRepository, orderRepo repository.OrderRepository, gateway remote.Gateway, online OnlineChecker, maxRetries int, drainDelay time.Duration, backlog int) *Engine {
	if maxRetries <= 0 {
		maxRetries = constants.OutboxMaxRetries
	}
	if backlog <= 0 {
		backlog = 8
	}
	return &Engine{
		outboxRepo: outboxRepo,
		orderRepo:  orderRepo,
		gateway:    gateway,
		online:     online,
		maxRetries: maxRetries,
		drainDelay: drainDelay,
		triggers:   make(chan string, backlog),
		subs:       make(map[int]chan Progress),
	}
}

// Trigger 请求一轮排空（非阻塞，触发通道满时合并丢弃）
func (e *Engine) Trigger(reason string) {
	select {
	case e.triggers <- reason:
	default:
	}
}

// LastProgress 最近一轮排空结果
func (e *Engine) LastProgress() *Progress {
	e.progressMu.Lock()
	defer e.progressMu.Unlock()
	if e.last == nil {
		return nil
	}
	snapshot := *e.last
	return &snapshot
}

// Subscribe 订阅排空结果事件
func (e *Engine) Subscribe() (int, <-chan Progress) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.nextSub++
	id := e.nextSub
	ch := make(chan Progress, 4)
	e.subs[id] = ch
	return id, ch
}

// Unsubscribe 取消订阅并关闭通道
func (e *Engine) Unsubscribe(id int) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if ch, ok := e.subs[id]; ok {
		delete(e.subs, id)
		close(ch)
	}
}

// Run 触发循环：收到触发信号后执行一轮排空，直到 ctx 取消
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case reason := <-e.triggers:
			e.Drain(ctx, reason)
		}
	}
}

// Drain 执行一轮排空
// 已有排空在进行时直接返回（触发已合并）；离线时跳过整轮。
// 每个条目独立成功或失败，条目之间检查停止信号。
func (e *Engine) Drain(ctx context.Context, reason string) Progress {
	if !e.drainMu.TryLock() {
		return Progress{Reason: reason}
	}
	defer e.drainMu.Unlock()

	progress := Progress{StartedAt: time.Now(), Reason: reason}

	if e.online != nil && !e.online.Online() {
		logger.Debugw("drain_skipped_offline", "reason", reason)
		progress.Skipped = true
		progress.FinishedAt = time.Now()
		e.record(progress)
		return progress
	}

	entries, err := e.outboxRepo.ListPending()
	if err != nil {
		logger.Errorw("drain_list_failed", "error", err)
		progress.Err = err.Error()
		progress.FinishedAt = time.Now()
		e.record(progress)
		return progress
	}
	if len(entries) == 0 {
		progress.FinishedAt = time.Now()
		e.record(progress)
		return progress
	}

	logger.Infow("drain_started", "reason", reason, "pending", len(entries))

	for i := range entries {
		if ctx.Err() != nil {
			logger.Infow("drain_stopped", "processed", progress.Processed)
			break
		}
		entry := entries[i]
		e.dispatch(ctx, &entry, &progress)

		if e.drainDelay > 0 && i < len(entries)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(e.drainDelay):
			}
		}
	}

	progress.FinishedAt = time.Now()
	e.record(progress)
	logger.Infow("drain_finished",
		"reason", reason,
		"processed", progress.Processed,
		"retried", progress.Retried,
		"quarantined", progress.Quarantine,
	)
	return progress
}

func (e *Engine) record(progress Progress) {
	e.progressMu.Lock()
	e.last = &progress
	e.progressMu.Unlock()

	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- progress:
		default:
			// 订阅方消费过慢时丢弃，LastProgress 仍可查询最新结果
		}
	}
}

// dispatch 同步单个条目并按错误分类推进其状态
func (e *Engine) dispatch(ctx context.Context, entry *models.OutboxEntry, progress *Progress) {
	err := e.apply(ctx, entry)
	if err == nil {
		if removeErr := e.outboxRepo.Remove(entry.ID); removeErr != nil {
			logger.Errorw("drain_remove_failed", "entry_id", entry.ID, "error", removeErr)
			progress.Retried++
			return
		}
		progress.Processed++
		return
	}

	if errors.Is(err, remote.ErrRejected) {
		// 服务端明确拒绝，重试无意义，直接隔离
		e.quarantine(entry, err, progress)
		return
	}

	entry.RetryCount++
	if entry.RetryCount >= e.maxRetries {
		e.quarantine(entry, err, progress)
		return
	}
	if updateErr := e.outboxRepo.UpdateRetry(entry.ID, entry.RetryCount, err.Error(), time.Now()); updateErr != nil {
		logger.Errorw("drain_retry_update_failed", "entry_id", entry.ID, "error", updateErr)
	}
	progress.Retried++
	logger.Warnw("drain_entry_retry",
		"entry_id", entry.ID,
		"entity_type", entry.EntityType,
		"entity_id", entry.EntityID,
		"retry_count", entry.RetryCount,
		"error", err,
	)
}

func (e *Engine) quarantine(entry *models.OutboxEntry, cause error, progress *Progress) {
	if err := e.outboxRepo.RecordQuarantine(entry, cause.Error(), time.Now()); err != nil {
		logger.Errorw("drain_quarantine_failed", "entry_id", entry.ID, "error", err)
		progress.Retried++
		return
	}
	progress.Quarantine++
	logger.Warnw("drain_entry_quarantined",
		"entry_id", entry.ID,
		"entity_type", entry.EntityType,
		"entity_id", entry.EntityID,
		"retry_count", entry.RetryCount,
		"error", cause,
	)
}

// apply 根据条目类型与动作执行远端调用
func (e *Engine) apply(ctx context.Context, entry *models.OutboxEntry) error {
	switch {
	case entry.EntityType == constants.OutboxEntityOrder && entry.Action == constants.OutboxActionCreate:
		return e.applyOrderCreate(ctx, entry)
	default:
		// 未知条目无法通过重试变得可识别
		return fmt.Errorf("%w: unsupported entry %s/%s", remote.ErrRejected, entry.EntityType, entry.Action)
	}
}

func (e *Engine) applyOrderCreate(ctx context.Context, entry *models.OutboxEntry) error {
	var req remote.CreateOrderRequest
	if err := json.Unmarshal(entry.Payload, &req); err != nil {
		return fmt.Errorf("%w: decode payload: %v", remote.ErrRejected, err)
	}

	remoteOrder, err := e.gateway.CreateOrder(ctx, req)
	if err != nil {
		return err
	}

	if err := e.orderRepo.MarkSynced(entry.EntityID, remoteOrder.ID, time.Now()); err != nil {
		// 远端已成功，本地标记失败则保留条目重试；
		// 远端以本地 ID 幂等去重，重复提交不会产生重复订单
		return fmt.Errorf("mark synced: %w", err)
	}
	logger.Infow("order_synced",
		"order_id", entry.EntityID,
		"remote_id", remoteOrder.ID,
	)
	return nil
}
