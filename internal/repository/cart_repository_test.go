package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pocketshop-sync/internal/constants"
	"github.com/pocketshop-sync/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCartRepositoryTest(t *testing.T) *GormCartRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.CartLine{}); err != nil {
		t.Fatalf("migrate cart models failed: %v", err)
	}
	return NewCartRepository(db)
}

func TestUpsertKeepsSingleLinePerOwnerAndProduct(t *testing.T) {
	repo := setupCartRepositoryTest(t)

	now := time.Now()
	line := &models.CartLine{
		OwnerID:     constants.AnonymousOwner,
		ProductID:   7,
		ProductName: "USB-C Cable",
		UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		Quantity:    1,
		Dirty:       true,
		AddedAt:     now,
		UpdatedAt:   now,
	}
	if err := repo.Upsert(line); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	update := &models.CartLine{
		OwnerID:     constants.AnonymousOwner,
		ProductID:   7,
		ProductName: "USB-C Cable",
		UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromInt(12)),
		Quantity:    3,
		Dirty:       true,
		UpdatedAt:   now.Add(time.Second),
	}
	if err := repo.Upsert(update); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	lines, err := repo.ListByOwner(constants.AnonymousOwner)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected single line, got %d", len(lines))
	}
	if lines[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", lines[0].Quantity)
	}
	if !lines[0].UnitPrice.Decimal.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("expected refreshed price, got %s", lines[0].UnitPrice.String())
	}
}

func TestReassignMovesLineToNewOwner(t *testing.T) {
	repo := setupCartRepositoryTest(t)

	now := time.Now()
	line := &models.CartLine{
		OwnerID:     constants.AnonymousOwner,
		ProductID:   3,
		ProductName: "Charger",
		UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromInt(20)),
		Quantity:    2,
		Dirty:       true,
		AddedAt:     now,
		UpdatedAt:   now,
	}
	if err := repo.Upsert(line); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if err := repo.Reassign(line, "user-42"); err != nil {
		t.Fatalf("reassign failed: %v", err)
	}

	anon, err := repo.ListByOwner(constants.AnonymousOwner)
	if err != nil {
		t.Fatalf("list anonymous failed: %v", err)
	}
	if len(anon) != 0 {
		t.Fatalf("expected no anonymous lines, got %d", len(anon))
	}
	owned, err := repo.ListByOwner("user-42")
	if err != nil {
		t.Fatalf("list owner failed: %v", err)
	}
	if len(owned) != 1 || owned[0].Quantity != 2 {
		t.Fatalf("unexpected reassigned lines: %+v", owned)
	}
}
