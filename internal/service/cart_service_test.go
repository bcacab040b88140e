package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/pocketshop-sync/internal/constants"
	"github.com/pocketshop-sync/internal/models"
	"github.com/pocketshop-sync/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupCartServiceTest(t *testing.T) *CartService {
	t.Helper()
	db := openCartServiceDB(t)
	return NewCartService(db, repository.NewCartRepository(db))
}

func openCartServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.MigrateAll(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func money(t *testing.T, amount string) models.Money {
	t.Helper()
	m, err := models.NewMoneyFromString(amount)
	if err != nil {
		t.Fatalf("parse money %s failed: %v", amount, err)
	}
	return m
}

func TestAddAccumulatesQuantityForSameProduct(t *testing.T) {
	svc := setupCartServiceTest(t)

	input := AddCartLineInput{ProductID: 1, ProductName: "mug", UnitPrice: money(t, "9.90"), Quantity: 2}
	if err := svc.Add("u1", input); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	input.Quantity = 3
	if err := svc.Add("u1", input); err != nil {
		t.Fatalf("second add failed: %v", err)
	}

	lines, err := svc.List("u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected single line, got %d", len(lines))
	}
	if lines[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", lines[0].Quantity)
	}
}

func TestAddCoercesNonPositiveQuantityToOne(t *testing.T) {
	svc := setupCartServiceTest(t)

	if err := svc.Add("u1", AddCartLineInput{ProductID: 1, ProductName: "mug", UnitPrice: money(t, "9.90"), Quantity: -4}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	lines, err := svc.List("u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 1 {
		t.Fatalf("expected single line with quantity 1, got %+v", lines)
	}
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	svc := setupCartServiceTest(t)
	if err := svc.Add("u1", AddCartLineInput{ProductID: 1, ProductName: "mug", UnitPrice: money(t, "9.90"), Quantity: 2}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	id, events := svc.Subscribe()
	defer svc.Unsubscribe(id)

	if err := svc.UpdateQuantity("u1", 1, 0); err != nil {
		t.Fatalf("update quantity failed: %v", err)
	}

	lines, err := svc.List("u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(lines))
	}
	if got := len(events); got != 1 {
		t.Fatalf("expected exactly one change event, got %d", got)
	}
}

func TestUpdateQuantityMissingLineIsNoOp(t *testing.T) {
	svc := setupCartServiceTest(t)

	id, events := svc.Subscribe()
	defer svc.Unsubscribe(id)

	if err := svc.UpdateQuantity("u1", 42, 3); err != nil {
		t.Fatalf("update quantity failed: %v", err)
	}
	if err := svc.Remove("u1", 42); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if got := len(events); got != 0 {
		t.Fatalf("expected no events for no-op mutations, got %d", got)
	}
}

func TestSummaryDerivedFromLines(t *testing.T) {
	svc := setupCartServiceTest(t)
	if err := svc.Add("u1", AddCartLineInput{ProductID: 1, ProductName: "mug", UnitPrice: money(t, "9.90"), Quantity: 2}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := svc.Add("u1", AddCartLineInput{ProductID: 2, ProductName: "plate", UnitPrice: money(t, "15.00"), Quantity: 1}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	summary, err := svc.Summary("u1")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.Total.String() != "34.80" {
		t.Fatalf("expected total 34.80, got %s", summary.Total.String())
	}
	if summary.Count != 3 {
		t.Fatalf("expected count 3, got %d", summary.Count)
	}
}

func TestSummaryTracksQuantityChange(t *testing.T) {
	svc := setupCartServiceTest(t)
	if err := svc.Add("u1", AddCartLineInput{ProductID: 1, ProductName: "mug", UnitPrice: money(t, "20.00"), Quantity: 2}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	summary, err := svc.Summary("u1")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.Total.String() != "40.00" || summary.Count != 2 {
		t.Fatalf("expected 40.00/2, got %s/%d", summary.Total.String(), summary.Count)
	}

	if err := svc.UpdateQuantity("u1", 1, 1); err != nil {
		t.Fatalf("update quantity failed: %v", err)
	}
	summary, err = svc.Summary("u1")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.Total.String() != "20.00" || summary.Count != 1 {
		t.Fatalf("expected 20.00/1, got %s/%d", summary.Total.String(), summary.Count)
	}
}

func TestMergeAnonymousIntoUser(t *testing.T) {
	svc := setupCartServiceTest(t)

	// 匿名购物车：商品1 x2、商品2 x1
	if err := svc.Add("", AddCartLineInput{ProductID: 1, ProductName: "mug", UnitPrice: money(t, "9.90"), Quantity: 2}); err != nil {
		t.Fatalf("anonymous add failed: %v", err)
	}
	if err := svc.Add("", AddCartLineInput{ProductID: 2, ProductName: "plate", UnitPrice: money(t, "15.00"), Quantity: 1}); err != nil {
		t.Fatalf("anonymous add failed: %v", err)
	}
	// 用户购物车已有商品1 x1
	if err := svc.Add("u1", AddCartLineInput{ProductID: 1, ProductName: "mug", UnitPrice: money(t, "9.90"), Quantity: 1}); err != nil {
		t.Fatalf("user add failed: %v", err)
	}

	if err := svc.MergeAnonymousInto("u1"); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	userLines, err := svc.List("u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(userLines) != 2 {
		t.Fatalf("expected 2 user lines, got %d", len(userLines))
	}
	quantities := map[uint]int{}
	for _, line := range userLines {
		quantities[line.ProductID] = line.Quantity
	}
	if quantities[1] != 3 || quantities[2] != 1 {
		t.Fatalf("unexpected merged quantities: %v", quantities)
	}

	anonLines, err := svc.List(constants.AnonymousOwner)
	if err != nil {
		t.Fatalf("list anonymous failed: %v", err)
	}
	if len(anonLines) != 0 {
		t.Fatalf("expected anonymous cart emptied, got %d lines", len(anonLines))
	}
}

func TestMergeAnonymousIsIdempotent(t *testing.T) {
	svc := setupCartServiceTest(t)
	if err := svc.Add("", AddCartLineInput{ProductID: 1, ProductName: "mug", UnitPrice: money(t, "9.90"), Quantity: 2}); err != nil {
		t.Fatalf("anonymous add failed: %v", err)
	}
	if err := svc.MergeAnonymousInto("u1"); err != nil {
		t.Fatalf("first merge failed: %v", err)
	}
	if err := svc.MergeAnonymousInto("u1"); err != nil {
		t.Fatalf("second merge failed: %v", err)
	}

	lines, err := svc.List("u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 2 {
		t.Fatalf("expected unchanged single line x2 after repeat merge, got %+v", lines)
	}
}

// flakyCartRepository 包装真实仓储，按计划注入删除失败
type flakyCartRepository struct {
	repository.CartRepository
	state *flakyCartState
}

type flakyCartState struct {
	mu             sync.Mutex
	deleteFailures int
}

func (r *flakyCartRepository) DeleteByOwnerAndProduct(ownerID string, productID uint) error {
	r.state.mu.Lock()
	if r.state.deleteFailures > 0 {
		r.state.deleteFailures--
		r.state.mu.Unlock()
		return errors.New("disk I/O error")
	}
	r.state.mu.Unlock()
	return r.CartRepository.DeleteByOwnerAndProduct(ownerID, productID)
}

func (r *flakyCartRepository) WithTx(tx *gorm.DB) repository.CartRepository {
	return &flakyCartRepository{
		CartRepository: r.CartRepository.WithTx(tx),
		state:          r.state,
	}
}

func TestMergeRollsBackOnPartialFailure(t *testing.T) {
	db := openCartServiceDB(t)
	state := &flakyCartState{deleteFailures: 1}
	svc := NewCartService(db, &flakyCartRepository{
		CartRepository: repository.NewCartRepository(db),
		state:          state,
	})

	if err := svc.Add("", AddCartLineInput{ProductID: 1, ProductName: "mug", UnitPrice: money(t, "9.90"), Quantity: 3}); err != nil {
		t.Fatalf("anonymous add failed: %v", err)
	}
	if err := svc.Add("u1", AddCartLineInput{ProductID: 1, ProductName: "mug", UnitPrice: money(t, "9.90"), Quantity: 2}); err != nil {
		t.Fatalf("user add failed: %v", err)
	}

	if err := svc.MergeAnonymousInto("u1"); err != ErrStorageUnavailable {
		t.Fatalf("expected ErrStorageUnavailable on injected failure, got %v", err)
	}

	// 失败的合并整体回滚，重试后数量精确相加而不是重复累加
	if err := svc.MergeAnonymousInto("u1"); err != nil {
		t.Fatalf("retry merge failed: %v", err)
	}
	lines, err := svc.List("u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 5 {
		t.Fatalf("expected single user line x5 after retried merge, got %+v", lines)
	}
	anonLines, err := svc.List(constants.AnonymousOwner)
	if err != nil {
		t.Fatalf("list anonymous failed: %v", err)
	}
	if len(anonLines) != 0 {
		t.Fatalf("expected anonymous cart emptied, got %d lines", len(anonLines))
	}
}

func TestMergeRejectsAnonymousTarget(t *testing.T) {
	svc := setupCartServiceTest(t)
	if err := svc.MergeAnonymousInto(""); err != ErrInvalidOwner {
		t.Fatalf("expected ErrInvalidOwner, got %v", err)
	}
}

func TestToOrderLinesProjectsSnapshot(t *testing.T) {
	svc := setupCartServiceTest(t)
	if err := svc.Add("u1", AddCartLineInput{ProductID: 1, ProductName: "mug", UnitPrice: money(t, "9.90"), Quantity: 3}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	lines, err := svc.ToOrderLines("u1")
	if err != nil {
		t.Fatalf("projection failed: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 order line, got %d", len(lines))
	}
	if lines[0].TotalPrice.String() != "29.70" {
		t.Fatalf("expected line total 29.70, got %s", lines[0].TotalPrice.String())
	}

	// 纯投影，购物车保持不变
	cartLines, err := svc.List("u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(cartLines) != 1 {
		t.Fatalf("expected cart untouched, got %d lines", len(cartLines))
	}
}
