package provider

import (
	"github.com/pocketshop-sync/internal/config"
	"github.com/pocketshop-sync/internal/connectivity"
	"github.com/pocketshop-sync/internal/remote"
	"github.com/pocketshop-sync/internal/repository"
	"github.com/pocketshop-sync/internal/service"
	"github.com/pocketshop-sync/internal/syncer"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config *config.Config

	db *gorm.DB

	// Repositories
	CartRepo   repository.CartRepository
	OrderRepo  repository.OrderRepository
	OutboxRepo repository.OutboxRepository

	// 远端与连接
	Gateway      remote.Gateway
	Connectivity *connectivity.Monitor

	// Services
	CartService      *service.CartService
	CheckoutService  *service.CheckoutService
	OrderViewService *service.OrderViewService
	SyncEngine       *syncer.Engine
}

// NewContainer 初始化容器；db 由组装入口传入
func NewContainer(cfg *config.Config, db *gorm.DB) *Container {
	c := &Container{Config: cfg, db: db}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化远端网关与连接监测
	c.initRemote()

	// 3. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	c.CartRepo = repository.NewCartRepository(c.db)
	c.OrderRepo = repository.NewOrderRepository(c.db)
	c.OutboxRepo = repository.NewOutboxRepository(c.db)
}

func (c *Container) initRemote() {
	gateway := remote.NewHTTPGateway(c.Config.Remote, c.Config.Connectivity.ProbePath)
	c.Gateway = gateway
	c.Connectivity = connectivity.NewMonitor(
		connectivity.ProbeFunc(gateway.Healthy),
		c.Config.Connectivity.ProbeInterval(),
	)
}

func (c *Container) initServices() {
	c.CartService = service.NewCartService(c.db, c.CartRepo)
	c.CheckoutService = service.NewCheckoutService(c.db, c.CartService, c.CartRepo, c.OrderRepo, c.OutboxRepo)
	c.SyncEngine = syncer.NewEngine(
		c.OutboxRepo,
		c.OrderRepo,
		c.Gateway,
		c.Connectivity,
		c.Config.Sync.MaxRetries,
		c.Config.Sync.DrainDelay(),
		c.Config.Sync.TriggerBacklog,
	)
	c.OrderViewService = service.NewOrderViewService(c.OrderRepo, c.Gateway, c.Connectivity)

	// 离线到在线的边沿触发一轮排空
	c.Connectivity.OnChange(func(online bool) {
		if online {
			c.SyncEngine.Trigger("connectivity_restored")
		}
	})
}
