package public

import (
	handlershared "github.com/pocketshop-sync/internal/http/handlers/shared"
	"github.com/pocketshop-sync/internal/service"

	"github.com/gin-gonic/gin"
)

// getOwner 解析请求归属方；未登录请求统一归入匿名购物车。
func getOwner(c *gin.Context) string {
	if owner, ok := handlershared.GetContextString(c, "owner_id"); ok {
		return owner
	}
	return service.NormalizeOwner("")
}
