package service

import (
	"context"
	"sort"
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

// OrderView 订单历史合并视图中的一项
type OrderView struct {
	LocalID          string       `json:"local_id,omitempty"`
	RemoteID         string       `json:"remote_id,omitempty"`
	OwnerID          string       `json:"owner_id"`
	Status           string       `json:"status"`
	TotalAmount      models.Money `json:"total_amount"`
	Source           string       `json:"source"` // remote / pending / offline
	CreatedAt        time.Time    `json:"created_at"`
	CourierName      string       `json:"courier_name,omitempty"`
	LastPosition     string       `json:"last_position,omitempty"`
	EstimatedArrival *time.Time   `json:"estimated_arrival,omitempty"`
	ArrivedAt        *time.Time   `json:"arrived_at,omitempty"`
}

// OrderViewService 订单视图服务：合并服务端订单与未同步本地订单
type OrderViewService struct {
	orderRepo repository.OrderRepository
	gateway   remote.Gateway
	online    OnlineChecker
}

// NewOrderViewService 创建订单视图服务
func NewOrderViewService(orderRepo repository.OrderRepository, gateway remote.Gateway, online OnlineChecker) *OrderViewService {
	return &OrderViewService{
		orderRepo: orderRepo,
		gateway:   gateway,
		online:    online,
	}
}

// List 订单历史合并视图：
// 在线时取「服务端订单 ∪ 未同步本地订单」，未同步项标注 pending；
// 离线时退化为仅本地订单并标注 offline。已同步的本地订单只展示服务端副本，
// 以 synced 标志作为去重键。统一按创建时间倒序。
func (s *OrderViewService) List(ctx context.Context, ownerID string) ([]OrderView, error) {
	owner := NormalizeOwner(ownerID)

	if s.online == nil || !s.online.Online() {
		return s.listOffline(owner)
	}

	remoteOrders, err := s.gateway.ListOrders(ctx, owner)
	if err != nil {
		// 在线标志与实际可达性可能短暂不一致，降级为离线视图
		logger.Warnw("order_view_remote_fetch_failed", "owner_id", owner, "error", err)
		return s.listOffline(owner)
	}

	views := make([]OrderView, 0, len(remoteOrders))
	for _, remoteOrder := range remoteOrders {
		views = append(views, OrderView{
			LocalID:          remoteOrder.LocalID,
			RemoteID:         remoteOrder.ID,
			OwnerID:          owner,
			Status:           remoteOrder.Status,
			TotalAmount:      remoteOrder.TotalAmount,
			Source:           constants.OrderSourceRemote,
			CreatedAt:        remoteOrder.CreatedAt,
			CourierName:      remoteOrder.CourierName,
			LastPosition:     remoteOrder.LastPosition,
			EstimatedArrival: remoteOrder.EstimatedArrival,
			ArrivedAt:        remoteOrder.ArrivedAt,
		})
	}

	pending, err := s.orderRepo.ListUnsyncedByOwner(owner)
	if err != nil {
		logger.Errorw("order_view_local_fetch_failed", "owner_id", owner, "error", err)
		return nil, ErrStorageUnavailable
	}
	for _, order := range pending {
		views = append(views, localOrderView(order, constants.OrderSourcePending))
	}

	sortViews(views)
	return views, nil
}

func (s *OrderViewService) listOffline(ownerID string) ([]OrderView, error) {
	orders, err := s.orderRepo.ListByOwner(ownerID)
	if err != nil {
		logger.Errorw("order_view_offline_fetch_failed", "owner_id", ownerID, "error", err)
		return nil, ErrStorageUnavailable
	}
	views := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, localOrderView(order, constants.OrderSourceOffline))
	}
	sortViews(views)
	return views, nil
}

func localOrderView(order models.LocalOrder, source string) OrderView {
	return OrderView{
		LocalID:          order.ID,
		RemoteID:         order.RemoteID,
		OwnerID:          order.OwnerID,
		Status:           order.Status,
		TotalAmount:      order.TotalAmount,
		Source:           source,
		CreatedAt:        order.CreatedAt,
		CourierName:      order.CourierName,
		LastPosition:     order.LastPosition,
		EstimatedArrival: order.EstimatedArrival,
		ArrivedAt:        order.ArrivedAt,
	}
}

func sortViews(views []OrderView) {
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
}
