package repository

import (
	"errors"
	"time"

	"github.com/pocketshop-sync/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderRepository 本地订单数据访问接口
type OrderRepository interface {
	Save(order *models.LocalOrder, lines []models.LocalOrderLine) error
	GetByID(id string) (*models.LocalOrder, error)
	ListByOwner(ownerID string) ([]models.LocalOrder, error)
	ListUnsynced() ([]models.LocalOrder, error)
	ListUnsyncedByOwner(ownerID string) ([]models.LocalOrder, error)
	MarkSynced(id, remoteID string, at time.Time) error
	Delete(id string) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Save 保存订单与订单行（同一持久化操作，缺省时分配本地ID）
func (r *GormOrderRepository) Save(order *models.LocalOrder, lines []models.LocalOrderLine) error {
	if order == nil {
		return errors.New("order is nil")
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(order).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		for i := range lines {
			lines[i].OrderID = order.ID
		}
		return tx.Create(&lines).Error
	})
}

// GetByID 根据本地 ID 获取订单
func (r *GormOrderRepository) GetByID(id string) (*models.LocalOrder, error) {
	var order models.LocalOrder
	err := r.db.Preload("Lines").Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByOwner 获取归属方全部本地订单（创建时间倒序）
func (r *GormOrderRepository) ListByOwner(ownerID string) ([]models.LocalOrder, error) {
	var orders []models.LocalOrder
	if err := r.db.Preload("Lines").Where("owner_id = ?", ownerID).
		Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListUnsynced 获取所有未同步订单（喂给同步引擎）
func (r *GormOrderRepository) ListUnsynced() ([]models.LocalOrder, error) {
	var orders []models.LocalOrder
	if err := r.db.Preload("Lines").Where("synced = ?", false).
		Order("created_at asc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListUnsyncedByOwner 获取归属方未同步订单
func (r *GormOrderRepository) ListUnsyncedByOwner(ownerID string) ([]models.LocalOrder, error) {
	var orders []models.LocalOrder
	if err := r.db.Preload("Lines").Where("owner_id = ? AND synced = ?", ownerID, false).
		Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkSynced 标记订单已被服务端确认
func (r *GormOrderRepository) MarkSynced(id, remoteID string, at time.Time) error {
	return r.db.Model(&models.LocalOrder{}).Where("id = ?", id).Updates(map[string]interface{}{
		"synced":     true,
		"remote_id":  remoteID,
		"synced_at":  at,
		"updated_at": at,
	}).Error
}

// Delete 删除本地订单与订单行
func (r *GormOrderRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.LocalOrderLine{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.LocalOrder{}).Error
	})
}
