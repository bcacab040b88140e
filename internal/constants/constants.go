package constants

// 匿名购物车归属标识
const (
	AnonymousOwner = "anonymous"
)

// 本地订单状态常量
const (
	OrderStatusPendingSync = "pending_sync"
	OrderStatusCreated     = "created"
	OrderStatusDelivered   = "delivered"
)

// 同步队列实体类型常量
const (
	OutboxEntityOrder = "order"
)

// 同步队列动作常量
const (
	OutboxActionCreate = "create"
)

// 同步队列优先级常量（数值越小优先级越高）
const (
	OutboxPriorityNormal = 0
)

// 同步重试策略常量
const (
	OutboxMaxRetries = 5
)

// 订单视图来源标注
const (
	OrderSourceRemote  = "remote"
	OrderSourcePending = "pending"
	OrderSourceOffline = "offline"
)
