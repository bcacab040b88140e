package models

import (
	"time"
)

// CartLine 购物车行（同一 owner + product 唯一）
type CartLine struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                       // 主键
	OwnerID     string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_cart_owner_product" json:"owner_id"` // 归属（匿名购物车为 anonymous）
	ProductID   uint      `gorm:"not null;uniqueIndex:idx_cart_owner_product" json:"product_id"`                // 商品ID
	ProductName string    `gorm:"type:varchar(200);not null" json:"product_name"`             // 商品名称快照
	UnitPrice   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`    // 单价快照
	Quantity    int       `gorm:"not null" json:"quantity"`                                   // 数量（> 0）
	Dirty       bool      `gorm:"not null;default:true" json:"dirty"`                         // 本地变更未确认标记
	AddedAt     time.Time `gorm:"index" json:"added_at"`                                      // 加入时间
	UpdatedAt   time.Time `gorm:"index" json:"updated_at"`                                    // 更新时间
}

// TableName 指定表名
func (CartLine) TableName() string {
	return "cart_lines"
}

// LineTotal 行小计
func (l CartLine) LineTotal() Money {
	return NewMoneyFromDecimal(l.UnitPrice.Decimal.Mul(decimalFromInt(l.Quantity)))
}
