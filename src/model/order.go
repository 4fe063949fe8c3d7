package model

const (
	OrderSideBuy  = "buy"
	OrderSideSell = "sell"

	OrderTypeMarket = "market"

	OrderStatusNew       = "new"
	OrderStatusSubmitted = "submitted"
	OrderStatusFilled    = "filled"
	OrderStatusRejected  = "rejected"
)

// Order represents an order the trade manager sends to the gateway.
type Order struct {
	ID            uint     `gorm:"primaryKey" json:"id"`
	ClientOrderID string   `gorm:"size:64;not null;uniqueIndex" json:"client_order_id"`
	Symbol        string   `gorm:"size:20;not null;index" json:"symbol"`
	Side          string   `gorm:"size:10;not null" json:"side"`
	OrderType     string   `gorm:"size:20;not null;default:market" json:"order_type"`
	Qty           float64  `gorm:"not null" json:"qty"`
	LimitPrice    *float64 `json:"limit_price,omitempty"`
	StopPrice     *float64 `json:"stop_price,omitempty"`
	TIF           string   `gorm:"size:10;default:day" json:"tif"`
	Status        string   `gorm:"size:20;not null;default:new" json:"status"`
	PlacedTs      string   `gorm:"size:32" json:"placed_ts"`
	UpdatedTs     string   `gorm:"size:32" json:"updated_ts"`
	Meta          string   `gorm:"type:text" json:"meta,omitempty"`
}

// TableName allows you to control the exact table name for orders.
func (Order) TableName() string {
	return "orders"
}

// Fill is one execution against an order.
type Fill struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	ClientOrderID string  `gorm:"size:64;not null;index" json:"client_order_id"`
	Ts            string  `gorm:"size:32;not null" json:"ts"`
	Qty           float64 `gorm:"not null" json:"qty"`
	Price         float64 `gorm:"not null" json:"price"`
}

func (Fill) TableName() string {
	return "fills"
}
