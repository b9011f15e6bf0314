package domain

import (
	"time"
)

// BidStatus 出价状态
type BidStatus int8

const (
	BidStatusAccepted             BidStatus = 1 // 已接受
	BidStatusAcceptedBelowReserve BidStatus = 2 // 已接受但低于保留价
)

func (s BidStatus) String() string {
	switch s {
	case BidStatusAccepted:
		return "Accepted"
	case BidStatusAcceptedBelowReserve:
		return "AcceptedBelowReserve"
	default:
		return "Unknown"
	}
}

// Bid 出价记录，创建后不可变。被拒绝的出价在校验阶段失败，不落库。
type Bid struct {
	ID        string `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	AuctionID string `gorm:"column:auction_id;type:varchar(36);index;not null" json:"auctionId"`
	Bidder    string `gorm:"column:bidder;type:varchar(64);not null" json:"bidder"`
	// 金额，货币最小单位
	Amount  int64     `gorm:"column:amount;not null" json:"amount"`
	BidTime time.Time `gorm:"column:bid_time;not null" json:"bidTime"`
	Status  BidStatus `gorm:"column:status;type:tinyint;not null" json:"bidStatus"`
}

// TableName 表名
func (Bid) TableName() string {
	return "bids"
}
