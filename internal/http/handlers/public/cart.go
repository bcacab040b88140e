package public

import (
	"strconv"

	"github.com/pocketshop-sync/internal/http/response"
	"github.com/pocketshop-sync/internal/models"
	"github.com/pocketshop-sync/internal/service"

	"github.com/gin-gonic/gin"
)

// CartLineRequest 购物车行请求
type CartLineRequest struct {
	ProductID   uint         `json:"product_id" binding:"required"`
	ProductName string       `json:"product_name" binding:"required"`
	UnitPrice   models.Money `json:"unit_price"`
	Quantity    int          `json:"quantity"`
}

// CartQuantityRequest 数量修改请求
type CartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartLineResponse 购物车行响应
type CartLineResponse struct {
	ProductID   uint         `json:"product_id"`
	ProductName string       `json:"product_name"`
	UnitPrice   models.Money `json:"unit_price"`
	Quantity    int          `json:"quantity"`
	LineTotal   models.Money `json:"line_total"`
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	owner := getOwner(c)

	lines, err := h.CartService.List(owner)
	if err != nil {
		respondCartError(c, err)
		return
	}
	summary, err := h.CartService.Summary(owner)
	if err != nil {
		respondCartError(c, err)
		return
	}

	respLines := make([]CartLineResponse, 0, len(lines))
	for _, line := range lines {
		respLines = append(respLines, CartLineResponse{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			LineTotal:   line.LineTotal(),
		})
	}
	response.Success(c, gin.H{
		"lines": respLines,
		"total": summary.Total,
		"count": summary.Count,
	})
}

// GetCartSummary 获取购物车汇总
func (h *Handler) GetCartSummary(c *gin.Context) {
	summary, err := h.CartService.Summary(getOwner(c))
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, summary)
}

// AddCartLine 加入购物车
func (h *Handler) AddCartLine(c *gin.Context) {
	var req CartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	if err := h.CartService.Add(getOwner(c), service.AddCartLineInput{
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		UnitPrice:   req.UnitPrice,
		Quantity:    req.Quantity,
	}); err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, gin.H{"added": true})
}

// UpdateCartLine 修改购物车行数量（数量小于等于 0 等价删除）
func (h *Handler) UpdateCartLine(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}
	var req CartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	if err := h.CartService.UpdateQuantity(getOwner(c), productID, req.Quantity); err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, gin.H{"updated": true})
}

// DeleteCartLine 删除购物车行
func (h *Handler) DeleteCartLine(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}
	if err := h.CartService.Remove(getOwner(c), productID); err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	if err := h.CartService.Clear(getOwner(c)); err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, gin.H{"cleared": true})
}

// MergeCart 将匿名购物车并入当前登录用户
func (h *Handler) MergeCart(c *gin.Context) {
	owner := getOwner(c)
	if err := h.CartService.MergeAnonymousInto(owner); err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, gin.H{"merged": true})
}

func parseProductID(c *gin.Context) (uint, bool) {
	rawID := c.Param("product_id")
	productID, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || productID == 0 {
		respondError(c, response.CodeBadRequest, "cart line invalid", nil)
		return 0, false
	}
	return uint(productID), true
}
