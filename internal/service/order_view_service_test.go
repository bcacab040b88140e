package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pocketshop-sync/internal/constants"
	"github.com/pocketshop-sync/internal/models"
	"github.com/pocketshop-sync/internal/remote"
	"github.com/pocketshop-sync/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type stubOnline bool

func (s stubOnline) Online() bool { return bool(s) }

type listGateway struct {
	orders []remote.RemoteOrder
	err    error
}

func (g *listGateway) CreateOrder(ctx context.Context, req remote.CreateOrderRequest) (*remote.RemoteOrder, error) {
	return nil, errors.New("not implemented")
}

func (g *listGateway) ListOrders(ctx context.Context, ownerID string) ([]remote.RemoteOrder, error) {
	return g.orders, g.err
}

func (g *listGateway) Healthy(ctx context.Context) bool { return g.err == nil }

func setupOrderViewTest(t *testing.T) *repository.GormOrderRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.MigrateAll(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return repository.NewOrderRepository(db)
}

func saveLocalOrder(t *testing.T, repo *repository.GormOrderRepository, id string, synced bool, createdAt time.Time) {
	t.Helper()
	order := &models.LocalOrder{
		ID:        id,
		OwnerID:   "u1",
		Status:    constants.OrderStatusPendingSync,
		Synced:    synced,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := repo.Save(order, nil); err != nil {
		t.Fatalf("save order failed: %v", err)
	}
	if synced {
		if err := repo.MarkSynced(id, "srv-"+id, createdAt); err != nil {
			t.Fatalf("mark synced failed: %v", err)
		}
	}
}

func TestListMergesRemoteAndPendingWithoutDuplicates(t *testing.T) {
	repo := setupOrderViewTest(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// 已同步订单只应出现为服务端副本
	saveLocalOrder(t, repo, "o-synced", true, base.Add(1*time.Hour))
	saveLocalOrder(t, repo, "o-pending", false, base.Add(2*time.Hour))

	gateway := &listGateway{orders: []remote.RemoteOrder{
		{ID: "srv-o-synced", LocalID: "o-synced", OwnerID: "u1", Status: constants.OrderStatusCreated, CreatedAt: base.Add(1 * time.Hour)},
		{ID: "srv-old", OwnerID: "u1", Status: constants.OrderStatusDelivered, CreatedAt: base},
	}}

	svc := NewOrderViewService(repo, gateway, stubOnline(true))
	views, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("expected 3 views, got %d", len(views))
	}

	// 创建时间倒序
	want := []string{constants.OrderSourcePending, constants.OrderSourceRemote, constants.OrderSourceRemote}
	for i, source := range want {
		if views[i].Source != source {
			t.Fatalf("view %d: expected source %s, got %s", i, source, views[i].Source)
		}
	}
	if views[0].LocalID != "o-pending" {
		t.Fatalf("expected pending order first, got %s", views[0].LocalID)
	}

	// 本地已同步副本不再单独出现
	for _, view := range views {
		if view.LocalID == "o-synced" && view.Source != constants.OrderSourceRemote {
			t.Fatalf("synced order surfaced as %s", view.Source)
		}
	}
}

func TestListOfflineAnnotatesLocalOrders(t *testing.T) {
	repo := setupOrderViewTest(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	saveLocalOrder(t, repo, "o1", false, base)
	saveLocalOrder(t, repo, "o2", true, base.Add(time.Hour))

	svc := NewOrderViewService(repo, &listGateway{}, stubOnline(false))
	views, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	for _, view := range views {
		if view.Source != constants.OrderSourceOffline {
			t.Fatalf("expected offline source, got %s", view.Source)
		}
	}
}

func TestListDegradesToOfflineOnGatewayError(t *testing.T) {
	repo := setupOrderViewTest(t)
	saveLocalOrder(t, repo, "o1", false, time.Now())

	gateway := &listGateway{err: fmt.Errorf("%w: dial timeout", remote.ErrUnreachable)}
	svc := NewOrderViewService(repo, gateway, stubOnline(true))

	views, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected degraded view, got error: %v", err)
	}
	if len(views) != 1 || views[0].Source != constants.OrderSourceOffline {
		t.Fatalf("expected single offline view, got %+v", views)
	}
}
