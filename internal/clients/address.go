package clients

import (
	"context"
	"net/http"
	"strconv"
)

type AddressType string

const (
	AddressHome  AddressType = "Home"
	AddressWork  AddressType = "Work"
	AddressOther AddressType = "Other"
)

type Address struct {
	AddressID              int64       `json:"address_id"`
	UserID                 int64       `json:"user_id,omitempty"`
	Type                   AddressType `json:"address_type"`
	HouseNumber            string      `json:"house_number"`
	Apartment              string      `json:"apartment,omitempty"`
	Landmark               string      `json:"landmark,omitempty"`
	City                   string      `json:"city"`
	State                  string      `json:"state"`
	Zipcode                string      `json:"zipcode"`
	Country                string      `json:"country"`
	AlternativePhoneNumber string      `json:"alternative_phone_number,omitempty"`
}

type AddressClient struct{ c *Client }

func NewAddressClient(c *Client) *AddressClient { return &AddressClient{c: c} }

func (ac *AddressClient) ListByUser(ctx context.Context, userID int64) ([]Address, error) {
	var out []Address
	err := ac.c.doJSON(ctx, "list_addresses", http.MethodGet, "/api/v1/address/user/"+strconv.FormatInt(userID, 10), nil, nil, &out)
	return out, err
}
