package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of fractional digits kept for every price.
const PriceScale = 2

// NormalizePrice rounds p to the marketplace precision.
func NormalizePrice(p decimal.Decimal) decimal.Decimal {
	return p.Round(PriceScale)
}

// Account represents one registered customer
type Account struct {
	Name          string    `json:"name"`
	LedgerAccount string    `json:"ledger_account"`
	Bought        int       `json:"bought"`
	Sold          int       `json:"sold"`
	Listings      []Listing `json:"listings,omitempty"`
}

// User is the durable users row
type User struct {
	Name          string
	PasswordHash  string
	LedgerAccount string
	Bought        int
	Sold          int
}

// Listing is an item offered for sale. Name and Price identify it.
type Listing struct {
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Seller string          `json:"seller"`
}

// Same reports whether l and o share the (name, price) key.
func (l Listing) Same(name string, price decimal.Decimal) bool {
	return l.Name == name && l.Price.Equal(price)
}

// Less orders listings by price, then name.
func (l Listing) Less(o Listing) bool {
	if c := l.Price.Cmp(o.Price); c != 0 {
		return c < 0
	}
	return l.Name < o.Name
}

// Wish is a standing request to be told when Name is offered at Price.
type Wish struct {
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Wisher string          `json:"wisher"`
}

// Matches uses exact price equality.
func (w Wish) Matches(l Listing) bool {
	return l.Same(w.Name, w.Price)
}

// NotificationKind discriminates pushed events
type NotificationKind string

const (
	KindSale NotificationKind = "sale"
	KindWish NotificationKind = "wish"
)

// Notification is pushed to a connected customer and published on the event stream.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Recipient string           `json:"recipient"`
	Item      string           `json:"item"`
	Price     decimal.Decimal  `json:"price"`
	At        time.Time        `json:"at"`
}

// WSMessage represents a WebSocket message from the client
type WSMessage struct {
	ID     string          `json:"id,omitempty"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// WSResponse represents a WebSocket response to the client
type WSResponse struct {
	ID      string      `json:"id,omitempty"`
	Action  string      `json:"action,omitempty"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// WSPush carries a notification that was not requested by the client
type WSPush struct {
	Event        NotificationKind `json:"event"`
	Notification Notification     `json:"notification"`
}

// WSEnvelope is what a client decodes every inbound frame into; Event is set only for pushes.
type WSEnvelope struct {
	WSResponse
	Event        NotificationKind `json:"event,omitempty"`
	Notification *Notification    `json:"notification,omitempty"`
}

// Credentials is the payload of register and login
type Credentials struct {
	Name          string `json:"name"`
	Password      string `json:"password"`
	LedgerAccount string `json:"ledger_account,omitempty"`
}

// ItemRequest is the payload of offer, buy and wish
type ItemRequest struct {
	Item  string          `json:"item"`
	Price decimal.Decimal `json:"price"`
}
