package models

import (
	"time"
)

// OutboxEntry 同步队列条目（待同步到服务端的本地变更）
type OutboxEntry struct {
	ID            string     `gorm:"type:varchar(36);primarykey" json:"id"`                       // 主键（uuid）
	EntityType    string     `gorm:"type:varchar(32);index;not null" json:"entity_type"`          // 实体类型（order 等）
	EntityID      string     `gorm:"type:varchar(64);index;not null" json:"entity_id"`            // 目标实体ID
	Action        string     `gorm:"type:varchar(16);not null" json:"action"`                     // 动作（create/update/delete）
	Payload       JSON       `gorm:"type:json" json:"payload"`                                    // 序列化载荷
	Priority      int        `gorm:"index:idx_outbox_drain,priority:1;not null;default:0" json:"priority"` // 优先级（小值先出）
	RetryCount    int        `gorm:"not null;default:0" json:"retry_count"`                       // 已重试次数（单调不减）
	CreatedAt     time.Time  `gorm:"index:idx_outbox_drain,priority:2" json:"created_at"`         // 创建时间
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`                                   // 最近尝试时间
	LastError     string     `gorm:"type:text" json:"last_error,omitempty"`                       // 最近错误
}

// TableName 指定表名
func (OutboxEntry) TableName() string {
	return "outbox_entries"
}

// QuarantinedEntry 隔离记录（重试耗尽后留存的诊断墓碑）
type QuarantinedEntry struct {
	ID            string    `gorm:"type:varchar(36);primarykey" json:"id"`              // 原条目ID
	EntityType    string    `gorm:"type:varchar(32);index;not null" json:"entity_type"` // 实体类型
	EntityID      string    `gorm:"type:varchar(64);index;not null" json:"entity_id"`   // 目标实体ID
	Action        string    `gorm:"type:varchar(16);not null" json:"action"`            // 动作
	Payload       JSON      `gorm:"type:json" json:"payload"`                           // 原载荷
	RetryCount    int       `gorm:"not null" json:"retry_count"`                        // 隔离时的重试次数
	LastError     string    `gorm:"type:text" json:"last_error"`                        // 终态错误
	QuarantinedAt time.Time `gorm:"index" json:"quarantined_at"`                        // 隔离时间
}

// TableName 指定表名
func (QuarantinedEntry) TableName() string {
	return "quarantined_entries"
}
