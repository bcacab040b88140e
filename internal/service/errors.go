package service

import "errors"

// 服务层统一哨兵错误
var (
	ErrStorageUnavailable = errors.New("local storage unavailable")
	ErrInvalidCartLine    = errors.New("invalid cart line")
	ErrInvalidOwner       = errors.New("invalid owner")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadySynced = errors.New("order already synced")
)
