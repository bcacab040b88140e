package repository

import (
	"errors"

	"github.com/pocketshop-sync/internal/models"

	"gorm.io/gorm"
)

// CartRepository 购物车数据访问接口
type CartRepository interface {
	ListByOwner(ownerID string) ([]models.CartLine, error)
	GetByOwnerAndProduct(ownerID string, productID uint) (*models.CartLine, error)
	Upsert(line *models.CartLine) error
	DeleteByOwnerAndProduct(ownerID string, productID uint) error
	ClearByOwner(ownerID string) error
	Reassign(line *models.CartLine, ownerID string) error
	WithTx(tx *gorm.DB) CartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// ListByOwner 获取归属方购物车行（加入时间升序）
func (r *GormCartRepository) ListByOwner(ownerID string) ([]models.CartLine, error) {
	var lines []models.CartLine
	if err := r.db.Where("owner_id = ?", ownerID).Order("added_at asc").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// GetByOwnerAndProduct 获取指定商品的购物车行
func (r *GormCartRepository) GetByOwnerAndProduct(ownerID string, productID uint) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.Where("owner_id = ? AND product_id = ?", ownerID, productID).First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// Upsert 插入或更新购物车行
func (r *GormCartRepository) Upsert(line *models.CartLine) error {
	if line == nil {
		return nil
	}
	var existing models.CartLine
	err := r.db.Where("owner_id = ? AND product_id = ?", line.OwnerID, line.ProductID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(line).Error
	}
	if err != nil {
		return err
	}
	updates := map[string]interface{}{
		"quantity":     line.Quantity,
		"product_name": line.ProductName,
		"unit_price":   line.UnitPrice,
		"dirty":        line.Dirty,
		"updated_at":   line.UpdatedAt,
	}
	return r.db.Model(&existing).Updates(updates).Error
}

// DeleteByOwnerAndProduct 删除购物车行
func (r *GormCartRepository) DeleteByOwnerAndProduct(ownerID string, productID uint) error {
	return r.db.Where("owner_id = ? AND product_id = ?", ownerID, productID).Delete(&models.CartLine{}).Error
}

// ClearByOwner 清空购物车
func (r *GormCartRepository) ClearByOwner(ownerID string) error {
	return r.db.Where("owner_id = ?", ownerID).Delete(&models.CartLine{}).Error
}

// Reassign 将购物车行改挂到新的归属方（匿名购物车认领）
func (r *GormCartRepository) Reassign(line *models.CartLine, ownerID string) error {
	if line == nil || line.ID == 0 {
		return errors.New("invalid cart line")
	}
	return r.db.Model(&models.CartLine{}).Where("id = ?", line.ID).
		Update("owner_id", ownerID).Error
}
