package domain

import (
	"time"
)

// AuctionStatus 快照上的拍卖终态
type AuctionStatus int8

const (
	AuctionStatusLive          AuctionStatus = 1 // 进行中
	AuctionStatusFinished      AuctionStatus = 2 // 已成交
	AuctionStatusReserveNotMet AuctionStatus = 3 // 未达保留价
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionStatusLive:
		return "Live"
	case AuctionStatusFinished:
		return "Finished"
	case AuctionStatusReserveNotMet:
		return "ReserveNotMet"
	default:
		return "Unknown"
	}
}

// AuctionSnapshot 拍卖本地快照，由 AuctionCreated/AuctionDeleted 事件维护。
// 出价校验与结算扫描都只依赖本快照，不回查拍卖服务。
// Finalized 是结算的一次性领取标记：CAS 置位后该拍卖不会被任何扫描重复处理。
type AuctionSnapshot struct {
	ID string `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	// 保留价，货币最小单位
	ReservePrice int64         `gorm:"column:reserve_price;not null;default:0" json:"reservePrice"`
	Seller       string        `gorm:"column:seller;type:varchar(64);not null" json:"seller"`
	AuctionEnd   time.Time     `gorm:"column:auction_end;index;not null" json:"auctionEnd"`
	Finalized    bool          `gorm:"column:finalized;not null;default:false" json:"finalized"`
	Status       AuctionStatus `gorm:"column:status;type:tinyint;not null;default:1" json:"status"`
	Winner       string        `gorm:"column:winner;type:varchar(64)" json:"winner,omitempty"`
	SoldAmount   *int64        `gorm:"column:sold_amount" json:"soldAmount,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName 表名
func (AuctionSnapshot) TableName() string {
	return "auction_snapshots"
}
