package domain

import (
	"errors"
	"fmt"
)

// 出价校验错误，逐项区分拒绝原因，同步返回给调用方，不重试。
var (
	// ErrAuctionNotFound 拍卖不存在
	ErrAuctionNotFound = errors.New("auction not found")
	// ErrSelfBid 卖家不能对自己的拍卖出价
	ErrSelfBid = errors.New("sellers cannot bid on their own auctions")
	// ErrAuctionEnded 拍卖已结束
	ErrAuctionEnded = errors.New("auction has ended")
	// ErrInvalidAmount 出价金额必须为正
	ErrInvalidAmount = errors.New("bid amount must be greater than zero")
	// ErrNoBids 该拍卖没有符合条件的出价
	ErrNoBids = errors.New("no bids for auction")
)

// BidTooLowError 出价不高于当前最高出价，携带当前最高价用于提示。
type BidTooLowError struct {
	CurrentHighest int64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid must be higher than current highest bid of %d", e.CurrentHighest)
}
