package main

import (
	"time"

	"github.com/pocketshop-sync/internal/config"
	"github.com/pocketshop-sync/internal/constants"
	"github.com/pocketshop-sync/internal/logger"
	"github.com/pocketshop-sync/internal/models"

	"github.com/shopspring/decimal"
)

// 向本地存储写入演示数据：购物车行与一笔历史订单，
// 便于在没有远端的环境里验证合并视图与同步队列。
func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	now := time.Now()

	// 匿名购物车演示数据
	cartLines := []models.CartLine{
		{
			OwnerID:     constants.AnonymousOwner,
			ProductID:   1001,
			ProductName: "Wireless Bluetooth Earphones",
			UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromFloat(99.99)),
			Quantity:    1,
			Dirty:       true,
			AddedAt:     now.Add(-2 * time.Hour),
			UpdatedAt:   now.Add(-2 * time.Hour),
		},
		{
			OwnerID:     constants.AnonymousOwner,
			ProductID:   1002,
			ProductName: "Smart Watch",
			UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromFloat(199.99)),
			Quantity:    2,
			Dirty:       true,
			AddedAt:     now.Add(-1 * time.Hour),
			UpdatedAt:   now.Add(-1 * time.Hour),
		},
	}
	for _, line := range cartLines {
		var existing models.CartLine
		err := models.DB.Where("owner_id = ? AND product_id = ?", line.OwnerID, line.ProductID).
			First(&existing).Error
		if err != nil {
			if err := models.DB.Create(&line).Error; err != nil {
				stdLog.Printf("Failed to create cart line %d: %v", line.ProductID, err)
			} else {
				stdLog.Printf("Created cart line: product %d", line.ProductID)
			}
			continue
		}
		stdLog.Printf("Cart line already exists: product %d", line.ProductID)
	}

	// 一笔已同步的历史订单，用于演示合并视图的去重
	orderID := "seed-order-0001"
	var existingOrder models.LocalOrder
	if err := models.DB.Where("id = ?", orderID).First(&existingOrder).Error; err != nil {
		syncedAt := now.Add(-20 * time.Hour)
		order := models.LocalOrder{
			ID:          orderID,
			RemoteID:    "srv-seed-0001",
			OwnerID:     constants.AnonymousOwner,
			TotalAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(49.99)),
			Status:      constants.OrderStatusDelivered,
			Synced:      true,
			SyncedAt:    &syncedAt,
			CreatedAt:   now.Add(-24 * time.Hour),
			UpdatedAt:   syncedAt,
		}
		lines := []models.LocalOrderLine{
			{
				OrderID:     orderID,
				ProductID:   1003,
				ProductName: "Portable Power Bank",
				UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromFloat(49.99)),
				Quantity:    1,
				TotalPrice:  models.NewMoneyFromDecimal(decimal.NewFromFloat(49.99)),
			},
		}
		if err := models.DB.Create(&order).Error; err != nil {
			stdLog.Printf("Failed to create seed order: %v", err)
		} else if err := models.DB.Create(&lines).Error; err != nil {
			stdLog.Printf("Failed to create seed order lines: %v", err)
		} else {
			stdLog.Printf("Created seed order: %s", orderID)
		}
	} else {
		stdLog.Printf("Seed order already exists: %s", orderID)
	}

	stdLog.Println("Seed data ready")
}
