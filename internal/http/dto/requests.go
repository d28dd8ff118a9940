package dto

import "github.com/shopspring/decimal"

type LoginRequest struct {
	Token string `json:"token" validate:"required"`
}

type LoginResponse struct {
	UserID int64 `json:"user_id"`
}

// AddItemRequest carries the product as the catalog screen showed it.
type AddItemRequest struct {
	ProductID     int64           `json:"product_id" validate:"required,gt=0"`
	Name          string          `json:"name" validate:"required"`
	Price         decimal.Decimal `json:"price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	ImageURL      string          `json:"image_url" validate:"omitempty,url"`
}

type ChangeQuantityRequest struct {
	Delta int `json:"delta" validate:"required,oneof=1 -1"`
}

type SelectAddressRequest struct {
	AddressID int64 `json:"address_id" validate:"required,gt=0"`
}

type SelectPaymentRequest struct {
	Method   string `json:"method" validate:"required,oneof=cash_on_delivery online"`
	Provider string `json:"provider" validate:"required_if=Method online"`
}
