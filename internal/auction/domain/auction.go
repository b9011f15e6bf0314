package domain

import (
	"time"
)

// Status 拍卖状态
type Status int8

const (
	StatusLive          Status = 1 // 进行中
	StatusFinished      Status = 2 // 已成交
	StatusReserveNotMet Status = 3 // 未达保留价
)

func (s Status) String() string {
	switch s {
	case StatusLive:
		return "Live"
	case StatusFinished:
		return "Finished"
	case StatusReserveNotMet:
		return "ReserveNotMet"
	default:
		return "Unknown"
	}
}

// Auction 拍卖聚合根。结算结果（Winner/SoldAmount/Status）只由
// AuctionFinished 事件驱动变更，之后不再改写。
type Auction struct {
	ID string `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	// 保留价，货币最小单位
	ReservePrice int64  `gorm:"column:reserve_price;not null;default:0" json:"reservePrice"`
	Seller       string `gorm:"column:seller;type:varchar(64);index;not null" json:"seller"`
	Winner       string `gorm:"column:winner;type:varchar(64)" json:"winner,omitempty"`
	SoldAmount   *int64 `gorm:"column:sold_amount" json:"soldAmount,omitempty"`
	// 当前最高出价，冗余缓存，由 BidPlaced 事件维护
	CurrentHighBid *int64    `gorm:"column:current_high_bid" json:"currentHighBid,omitempty"`
	AuctionEnd     time.Time `gorm:"column:auction_end;index;not null" json:"auctionEnd"`
	Status         Status    `gorm:"column:status;type:tinyint;not null;default:1" json:"status"`

	// 拍品字段
	Make    string `gorm:"column:make;type:varchar(64);not null" json:"make"`
	Model   string `gorm:"column:model;type:varchar(64);not null" json:"model"`
	Color   string `gorm:"column:color;type:varchar(32)" json:"color"`
	Mileage int    `gorm:"column:mileage" json:"mileage"`
	Year    int    `gorm:"column:year" json:"year"`

	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName 表名
func (Auction) TableName() string {
	return "auctions"
}

// Settled 结算结果是否已落到本记录。
func (a *Auction) Settled() bool {
	return a.Status != StatusLive
}
