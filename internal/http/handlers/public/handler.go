package public

import "github.com/pocketshop-sync/internal/provider"

// Handler 本地 API 处理器入口
// 说明：该处理器服务于设备上的 UI 层，全部路由绑定在回环地址。
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
