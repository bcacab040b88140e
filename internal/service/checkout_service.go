package service

import (
	"encoding/json"
	"time"

	"github.com/pocketshop-sync/internal/constants"
	"github.com/pocketshop-sync/internal/logger"
	"github.com/pocketshop-sync/internal/models"
	"github.com/pocketshop-sync/internal/remote"
	"github.com/pocketshop-sync/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CheckoutService 结算服务：本地落单并排队等待同步
type CheckoutService struct {
	db          *gorm.DB
	cartService *CartService
	cartRepo    repository.CartRepository
	orderRepo   repository.OrderRepository
	outboxRepo  repository.OutboxRepository
}

// NewCheckoutService 创建结算服务
func NewCheckoutService(db *gorm.DB, cartService *CartService, cartRepo repository.CartRepository, orderRepo repository.OrderRepository, outboxRepo repository.OutboxRepository) *CheckoutService {
	return &CheckoutService{
		db:          db,
		cartService: cartService,
		cartRepo:    cartRepo,
		orderRepo:   orderRepo,
		outboxRepo:  outboxRepo,
	}
}

// Checkout 结算当前购物车：
// 持有购物车写锁做快照并落盘，并发加购只能排在结算之前或之后，
// 不会在快照与清空之间丢失。同一事务内写入本地订单与订单行、
// 追加同步队列条目并清空购物车，要么同时落盘要么都不落盘。
func (s *CheckoutService) Checkout(ownerID string) (*models.LocalOrder, error) {
	owner := NormalizeOwner(ownerID)

	var order *models.LocalOrder
	var lineCount int
	err := s.cartService.Exclusive(func() error {
		lines, err := s.cartService.ToOrderLines(owner)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrCartEmpty
		}
		lineCount = len(lines)

		total := decimal.Zero
		for _, line := range lines {
			total = total.Add(line.TotalPrice.Decimal)
		}

		now := time.Now()
		order = &models.LocalOrder{
			ID:          uuid.NewString(),
			OwnerID:     owner,
			TotalAmount: models.NewMoneyFromDecimal(total),
			Status:      constants.OrderStatusPendingSync,
			Synced:      false,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		payload, err := buildOrderCreatePayload(order, lines)
		if err != nil {
			logger.Errorw("checkout_payload_encode_failed", "owner_id", owner, "error", err)
			return ErrStorageUnavailable
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.orderRepo.WithTx(tx).Save(order, lines); err != nil {
				return err
			}
			entry := &models.OutboxEntry{
				ID:         uuid.NewString(),
				EntityType: constants.OutboxEntityOrder,
				EntityID:   order.ID,
				Action:     constants.OutboxActionCreate,
				Payload:    payload,
				Priority:   constants.OutboxPriorityNormal,
				CreatedAt:  now,
			}
			if err := s.outboxRepo.WithTx(tx).Enqueue(entry); err != nil {
				return err
			}
			return s.cartRepo.WithTx(tx).ClearByOwner(owner)
		})
		if err != nil {
			logger.Errorw("checkout_persist_failed", "owner_id", owner, "order_id", order.ID, "error", err)
			return ErrStorageUnavailable
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cartService.NotifyCleared(owner)
	logger.Infow("checkout_order_created",
		"owner_id", owner,
		"order_id", order.ID,
		"total", order.TotalAmount.String(),
		"lines", lineCount,
	)
	return order, nil
}

// CancelLocal 取消尚未同步的本地订单：
// 同一事务内删除订单与指向它的全部待同步条目。
func (s *CheckoutService) CancelLocal(orderID string) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		logger.Errorw("cancel_local_fetch_failed", "order_id", orderID, "error", err)
		return ErrStorageUnavailable
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.Synced {
		return ErrOrderAlreadySynced
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.outboxRepo.WithTx(tx).RemoveByEntity(constants.OutboxEntityOrder, order.ID); err != nil {
			return err
		}
		return s.orderRepo.WithTx(tx).Delete(order.ID)
	})
	if err != nil {
		logger.Errorw("cancel_local_failed", "order_id", orderID, "error", err)
		return ErrStorageUnavailable
	}
	logger.Infow("local_order_canceled", "order_id", orderID)
	return nil
}

func buildOrderCreatePayload(order *models.LocalOrder, lines []models.LocalOrderLine) (models.JSON, error) {
	payloadLines := make([]remote.OrderLine, 0, len(lines))
	for _, line := range lines {
		payloadLines = append(payloadLines, remote.OrderLine{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			TotalPrice:  line.TotalPrice,
		})
	}
	body, err := json.Marshal(remote.CreateOrderRequest{
		LocalID:     order.ID,
		OwnerID:     order.OwnerID,
		Lines:       payloadLines,
		TotalAmount: order.TotalAmount,
	})
	if err != nil {
		return nil, err
	}
	return models.JSON(body), nil
}
