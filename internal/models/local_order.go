package models

import (
	"time"
)

// LocalOrder 本地订单（服务端确认前的设备侧镜像）
type LocalOrder struct {
	ID          string     `gorm:"type:varchar(36);primarykey" json:"id"`                   // 本地ID（uuid）
	RemoteID    string     `gorm:"type:varchar(64);index" json:"remote_id,omitempty"`       // 服务端ID（同步成功后写入）
	OwnerID     string     `gorm:"type:varchar(64);index;not null" json:"owner_id"`         // 归属
	TotalAmount Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 实付金额
	Status      string     `gorm:"type:varchar(32);index;not null" json:"status"`           // 订单状态
	Synced      bool       `gorm:"index;not null;default:false" json:"synced"`              // 是否已被服务端确认
	SyncedAt    *time.Time `json:"synced_at,omitempty"`                                     // 同步成功时间
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`                                 // 创建时间
	UpdatedAt   time.Time  `gorm:"index" json:"updated_at"`                                 // 更新时间

	// 配送在途字段（服务端下发，同步后刷新）
	CourierName      string     `gorm:"type:varchar(100)" json:"courier_name,omitempty"`      // 配送员
	LastPosition     string     `gorm:"type:varchar(100)" json:"last_position,omitempty"`     // 最近位置（lat,lng）
	EstimatedArrival *time.Time `json:"estimated_arrival,omitempty"`                          // 预计送达
	ArrivedAt        *time.Time `json:"arrived_at,omitempty"`                                 // 实际送达

	Lines []LocalOrderLine `gorm:"foreignKey:OrderID" json:"lines,omitempty"` // 订单行
}

// TableName 指定表名
func (LocalOrder) TableName() string {
	return "local_orders"
}

// LocalOrderLine 本地订单行
type LocalOrderLine struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                     // 主键
	OrderID     string    `gorm:"type:varchar(36);index;not null" json:"order_id"`          // 订单本地ID
	ProductID   uint      `gorm:"index;not null" json:"product_id"`                         // 商品ID
	ProductName string    `gorm:"type:varchar(200);not null" json:"product_name"`           // 商品名称快照
	UnitPrice   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`  // 单价
	Quantity    int       `gorm:"not null" json:"quantity"`                                 // 数量
	TotalPrice  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"` // 小计
	CreatedAt   time.Time `json:"created_at"`                                               // 创建时间
}

// TableName 指定表名
func (LocalOrderLine) TableName() string {
	return "local_order_lines"
}
