package service

import (
	"strings"
	"sync"
	"time"

	"github.com/pocketshop-sync/internal/constants"
	"github.com/pocketshop-sync/internal/logger"
	"github.com/pocketshop-sync/internal/models"
	"github.com/pocketshop-sync/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 购物车变更字段标识
const (
	CartFieldLines = "lines"
	CartFieldTotal = "total"
	CartFieldCount = "count"
)

// CartChange 购物车变更事件（每次逻辑变更恰好发出一次）
type CartChange struct {
	OwnerID string       `json:"owner_id"`
	Fields  []string     `json:"fields"`
	Total   models.Money `json:"total"`
	Count   int          `json:"count"`
}

// AddCartLineInput 加入购物车输入
type AddCartLineInput struct {
	ProductID   uint
	ProductName string
	UnitPrice   models.Money
	Quantity    int
}

// CartSummary 购物车汇总（读取时重新计算，不冗余存储）
type CartSummary struct {
	Total models.Money `json:"total"`
	Count int          `json:"count"`
}

// CartService 购物车聚合服务
// 所有写操作经由内部互斥串行化，是本地存储购物车表的唯一写入方。
type CartService struct {
	db       *gorm.DB
	cartRepo repository.CartRepository

	mu sync.Mutex // 写操作串行化

	subMu   sync.Mutex
	subs    map[int]chan CartChange
	nextSub int
}

// NewCartService 创建购物车服务
func NewCartService(db *gorm.DB, cartRepo repository.CartRepository) *CartService {
	return &CartService{
		db:       db,
		cartRepo: cartRepo,
		subs:     make(map[int]chan CartChange),
	}
}

// NormalizeOwner 归一化归属标识（空值视为匿名）
func NormalizeOwner(ownerID string) string {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return constants.AnonymousOwner
	}
	return ownerID
}

// Subscribe 订阅购物车变更事件
func (s *CartService) Subscribe() (int, <-chan CartChange) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	ch := make(chan CartChange, 16)
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe 取消订阅并关闭通道
func (s *CartService) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *CartService) publish(change CartChange) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- change:
		default:
			// 订阅方消费过慢时丢弃，事件只描述最新状态
		}
	}
}

// List 获取归属方购物车行
func (s *CartService) List(ownerID string) ([]models.CartLine, error) {
	lines, err := s.cartRepo.ListByOwner(NormalizeOwner(ownerID))
	if err != nil {
		logger.Errorw("cart_list_failed", "owner_id", ownerID, "error", err)
		return nil, ErrStorageUnavailable
	}
	return lines, nil
}

// Add 加入购物车：已有同商品行则累加数量，否则新建行
// 数量小于 1 时按 1 处理；每次调用恰好发出一次变更事件。
func (s *CartService) Add(ownerID string, input AddCartLineInput) error {
	if input.ProductID == 0 || strings.TrimSpace(input.ProductName) == "" {
		return ErrInvalidCartLine
	}
	owner := NormalizeOwner(ownerID)
	quantity := input.Quantity
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.cartRepo.GetByOwnerAndProduct(owner, input.ProductID)
	if err != nil {
		logger.Errorw("cart_add_lookup_failed", "owner_id", owner, "product_id", input.ProductID, "error", err)
		return ErrStorageUnavailable
	}

	now := time.Now()
	line := &models.CartLine{
		OwnerID:     owner,
		ProductID:   input.ProductID,
		ProductName: input.ProductName,
		UnitPrice:   input.UnitPrice,
		Quantity:    quantity,
		Dirty:       true,
		AddedAt:     now,
		UpdatedAt:   now,
	}
	if existing != nil {
		line.Quantity = existing.Quantity + quantity
		line.AddedAt = existing.AddedAt
	}
	if err := s.cartRepo.Upsert(line); err != nil {
		logger.Errorw("cart_add_persist_failed", "owner_id", owner, "product_id", input.ProductID, "error", err)
		return ErrStorageUnavailable
	}

	s.publishFor(owner, CartFieldLines, CartFieldTotal, CartFieldCount)
	return nil
}

// UpdateQuantity 修改数量；数量小于等于 0 等价于删除
// 目标行不存在时为空操作，不发出事件。
func (s *CartService) UpdateQuantity(ownerID string, productID uint, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ownerID, productID)
	}
	owner := NormalizeOwner(ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.cartRepo.GetByOwnerAndProduct(owner, productID)
	if err != nil {
		logger.Errorw("cart_update_lookup_failed", "owner_id", owner, "product_id", productID, "error", err)
		return ErrStorageUnavailable
	}
	if existing == nil {
		return nil
	}

	existing.Quantity = quantity
	existing.Dirty = true
	existing.UpdatedAt = time.Now()
	if err := s.cartRepo.Upsert(existing); err != nil {
		logger.Errorw("cart_update_persist_failed", "owner_id", owner, "product_id", productID, "error", err)
		return ErrStorageUnavailable
	}

	s.publishFor(owner, CartFieldLines, CartFieldTotal, CartFieldCount)
	return nil
}

// Remove 删除购物车行；目标行不存在时为空操作，不发出事件
func (s *CartService) Remove(ownerID string, productID uint) error {
	owner := NormalizeOwner(ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.cartRepo.GetByOwnerAndProduct(owner, productID)
	if err != nil {
		logger.Errorw("cart_remove_lookup_failed", "owner_id", owner, "product_id", productID, "error", err)
		return ErrStorageUnavailable
	}
	if existing == nil {
		return nil
	}
	if err := s.cartRepo.DeleteByOwnerAndProduct(owner, productID); err != nil {
		logger.Errorw("cart_remove_failed", "owner_id", owner, "product_id", productID, "error", err)
		return ErrStorageUnavailable
	}

	s.publishFor(owner, CartFieldLines, CartFieldTotal, CartFieldCount)
	return nil
}

// Clear 清空购物车，单次事件
func (s *CartService) Clear(ownerID string) error {
	owner := NormalizeOwner(ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cartRepo.ClearByOwner(owner); err != nil {
		logger.Errorw("cart_clear_failed", "owner_id", owner, "error", err)
		return ErrStorageUnavailable
	}

	s.publishFor(owner, CartFieldLines, CartFieldTotal, CartFieldCount)
	return nil
}

// NotifyCleared 外部事务性清空后的事件补发（如结算成功后）
func (s *CartService) NotifyCleared(ownerID string) {
	s.publishFor(NormalizeOwner(ownerID), CartFieldLines, CartFieldTotal, CartFieldCount)
}

// Exclusive 在购物车写锁内执行 fn
// 供跨服务的复合操作（如结算的快照加清空）与其他购物车写入串行化。
func (s *CartService) Exclusive(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// Summary 汇总金额与件数（读取时计算）
func (s *CartService) Summary(ownerID string) (CartSummary, error) {
	lines, err := s.cartRepo.ListByOwner(NormalizeOwner(ownerID))
	if err != nil {
		logger.Errorw("cart_summary_failed", "owner_id", ownerID, "error", err)
		return CartSummary{}, ErrStorageUnavailable
	}
	return summarize(lines), nil
}

// Total 购物车合计金额
func (s *CartService) Total(ownerID string) (models.Money, error) {
	summary, err := s.Summary(ownerID)
	if err != nil {
		return models.Money{}, err
	}
	return summary.Total, nil
}

// Count 购物车合计件数
func (s *CartService) Count(ownerID string) (int, error) {
	summary, err := s.Summary(ownerID)
	if err != nil {
		return 0, err
	}
	return summary.Count, nil
}

// MergeAnonymousInto 将匿名购物车并入登录用户：
// 同商品行数量相加，否则整行改挂到该用户。幂等：无匿名行时为空操作。
// 整个合并在单个事务内完成，部分失败时回滚，重复执行不会重复累加。
func (s *CartService) MergeAnonymousInto(userID string) error {
	owner := NormalizeOwner(userID)
	if owner == constants.AnonymousOwner {
		return ErrInvalidOwner
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.cartRepo.WithTx(tx)

		anonLines, err := repo.ListByOwner(constants.AnonymousOwner)
		if err != nil {
			logger.Errorw("cart_merge_list_failed", "user_id", owner, "error", err)
			return ErrStorageUnavailable
		}
		if len(anonLines) == 0 {
			return nil
		}

		now := time.Now()
		for i := range anonLines {
			anon := anonLines[i]
			existing, err := repo.GetByOwnerAndProduct(owner, anon.ProductID)
			if err != nil {
				logger.Errorw("cart_merge_lookup_failed", "user_id", owner, "product_id", anon.ProductID, "error", err)
				return ErrStorageUnavailable
			}
			if existing == nil {
				if err := repo.Reassign(&anon, owner); err != nil {
					logger.Errorw("cart_merge_reassign_failed", "user_id", owner, "product_id", anon.ProductID, "error", err)
					return ErrStorageUnavailable
				}
				merged++
				continue
			}
			existing.Quantity += anon.Quantity
			existing.Dirty = true
			existing.UpdatedAt = now
			if err := repo.Upsert(existing); err != nil {
				logger.Errorw("cart_merge_combine_failed", "user_id", owner, "product_id", anon.ProductID, "error", err)
				return ErrStorageUnavailable
			}
			if err := repo.DeleteByOwnerAndProduct(constants.AnonymousOwner, anon.ProductID); err != nil {
				logger.Errorw("cart_merge_cleanup_failed", "user_id", owner, "product_id", anon.ProductID, "error", err)
				return ErrStorageUnavailable
			}
			merged++
		}
		return nil
	})
	if err != nil {
		return err
	}
	if merged == 0 {
		return nil
	}

	s.publishFor(owner, CartFieldLines, CartFieldTotal, CartFieldCount)
	return nil
}

// ToOrderLines 购物车行到订单行的纯投影（无副作用）
func (s *CartService) ToOrderLines(ownerID string) ([]models.LocalOrderLine, error) {
	lines, err := s.cartRepo.ListByOwner(NormalizeOwner(ownerID))
	if err != nil {
		logger.Errorw("cart_projection_failed", "owner_id", ownerID, "error", err)
		return nil, ErrStorageUnavailable
	}
	orderLines := make([]models.LocalOrderLine, 0, len(lines))
	for _, line := range lines {
		orderLines = append(orderLines, models.LocalOrderLine{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			TotalPrice:  line.LineTotal(),
		})
	}
	return orderLines, nil
}

func (s *CartService) publishFor(ownerID string, fields ...string) {
	lines, err := s.cartRepo.ListByOwner(ownerID)
	if err != nil {
		logger.Warnw("cart_change_snapshot_failed", "owner_id", ownerID, "error", err)
		lines = nil
	}
	summary := summarize(lines)
	s.publish(CartChange{
		OwnerID: ownerID,
		Fields:  fields,
		Total:   summary.Total,
		Count:   summary.Count,
	})
}

func summarize(lines []models.CartLine) CartSummary {
	total := decimal.Zero
	count := 0
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(line.Quantity))))
		count += line.Quantity
	}
	return CartSummary{
		Total: models.NewMoneyFromDecimal(total),
		Count: count,
	}
}
