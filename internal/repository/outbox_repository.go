package repository

import (
	"errors"
	"time"

	"github.com/pocketshop-sync/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxRepository 同步队列数据访问接口
type OutboxRepository interface {
	Enqueue(entry *models.OutboxEntry) error
	ListPending() ([]models.OutboxEntry, error)
	Remove(id string) error
	UpdateRetry(id string, retryCount int, lastError string, at time.Time) error
	RecordQuarantine(entry *models.OutboxEntry, lastError string, at time.Time) error
	CountPending() (int64, error)
	CountQuarantined() (int64, error)
	RemoveByEntity(entityType, entityID string) error
	WithTx(tx *gorm.DB) *GormOutboxRepository
}

// GormOutboxRepository GORM 实现
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository 创建同步队列仓库
func NewOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOutboxRepository) WithTx(tx *gorm.DB) *GormOutboxRepository {
	if tx == nil {
		return r
	}
	return &GormOutboxRepository{db: tx}
}

// Enqueue 追加待同步条目（缺省时分配ID与创建时间）
func (r *GormOutboxRepository) Enqueue(entry *models.OutboxEntry) error {
	if entry == nil {
		return errors.New("outbox entry is nil")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.db.Create(entry).Error
}

// ListPending 按（优先级升序，创建时间升序）列出待同步条目
func (r *GormOutboxRepository) ListPending() ([]models.OutboxEntry, error) {
	var entries []models.OutboxEntry
	if err := r.db.Order("priority asc, created_at asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Remove 删除条目（同步成功后调用）
func (r *GormOutboxRepository) Remove(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.OutboxEntry{}).Error
}

// UpdateRetry 记录一次失败尝试
func (r *GormOutboxRepository) UpdateRetry(id string, retryCount int, lastError string, at time.Time) error {
	return r.db.Model(&models.OutboxEntry{}).Where("id = ?", id).Updates(map[string]interface{}{
		"retry_count":     retryCount,
		"last_error":      lastError,
		"last_attempt_at": at,
	}).Error
}

// RecordQuarantine 移除条目并留存隔离墓碑（单事务）
func (r *GormOutboxRepository) RecordQuarantine(entry *models.OutboxEntry, lastError string, at time.Time) error {
	if entry == nil {
		return errors.New("outbox entry is nil")
	}
	tombstone := models.QuarantinedEntry{
		ID:            entry.ID,
		EntityType:    entry.EntityType,
		EntityID:      entry.EntityID,
		Action:        entry.Action,
		Payload:       entry.Payload,
		RetryCount:    entry.RetryCount,
		LastError:     lastError,
		QuarantinedAt: at,
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tombstone).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", entry.ID).Delete(&models.OutboxEntry{}).Error
	})
}

// CountPending 待同步条目数量
func (r *GormOutboxRepository) CountPending() (int64, error) {
	var count int64
	if err := r.db.Model(&models.OutboxEntry{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountQuarantined 隔离条目数量
func (r *GormOutboxRepository) CountQuarantined() (int64, error) {
	var count int64
	if err := r.db.Model(&models.QuarantinedEntry{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// RemoveByEntity 删除指向某实体的全部待同步条目（本地取消时调用）
func (r *GormOutboxRepository) RemoveByEntity(entityType, entityID string) error {
	return r.db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Delete(&models.OutboxEntry{}).Error
}
