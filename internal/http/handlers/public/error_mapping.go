package public

import (
	"errors"

	handlershared "github.com/pocketshop-sync/internal/http/handlers/shared"
	"github.com/pocketshop-sync/internal/http/response"
	"github.com/pocketshop-sync/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var cartErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidCartLine, code: response.CodeBadRequest, msg: "cart line invalid"},
	{target: service.ErrInvalidOwner, code: response.CodeBadRequest, msg: "owner invalid"},
	{target: service.ErrStorageUnavailable, code: response.CodeInternal, msg: "local storage unavailable"},
}

var checkoutErrorRules = []mappedHandlerError{
	{target: service.ErrCartEmpty, code: response.CodeBadRequest, msg: "cart is empty"},
	{target: service.ErrStorageUnavailable, code: response.CodeInternal, msg: "local storage unavailable"},
}

var orderErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "order not found"},
	{target: service.ErrOrderAlreadySynced, code: response.CodeConflict, msg: "order already synced"},
	{target: service.ErrStorageUnavailable, code: response.CodeInternal, msg: "local storage unavailable"},
}

func respondCartError(c *gin.Context, err error) {
	respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "cart operation failed")
}

func respondCheckoutError(c *gin.Context, err error) {
	respondWithMappedError(c, err, checkoutErrorRules, response.CodeInternal, "checkout failed")
}

func respondOrderError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderErrorRules, response.CodeInternal, "order operation failed")
}
