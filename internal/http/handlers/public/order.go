package public

import (
	"github.com/pocketshop-sync/internal/http/response"

	"github.com/gin-gonic/gin"
)

// Checkout 结算当前购物车为本地订单并排队同步
func (h *Handler) Checkout(c *gin.Context) {
	order, err := h.CheckoutService.Checkout(getOwner(c))
	if err != nil {
		respondCheckoutError(c, err)
		return
	}
	// 结算落盘即触发一次排空，在线时订单很快上行
	h.SyncEngine.Trigger("checkout")
	response.Success(c, order)
}

// ListOrders 订单历史合并视图
func (h *Handler) ListOrders(c *gin.Context) {
	views, err := h.OrderViewService.List(c.Request.Context(), getOwner(c))
	if err != nil {
		respondOrderError(c, err)
		return
	}
	response.Success(c, gin.H{"orders": views})
}

// CancelOrder 取消尚未同步的本地订单
func (h *Handler) CancelOrder(c *gin.Context) {
	orderID := c.Param("id")
	if orderID == "" {
		respondError(c, response.CodeBadRequest, "order id required", nil)
		return
	}
	if err := h.CheckoutService.CancelLocal(orderID); err != nil {
		respondOrderError(c, err)
		return
	}
	response.Success(c, gin.H{"canceled": true})
}
