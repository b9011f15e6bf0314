package domain

import (
	"context"
	"time"
)

// BidRepository 出价账本存储
type BidRepository interface {
	// InsertIfHighest 原子插入：同一拍卖的出价写入串行化，
	// 金额不高于现有最高出价（无论状态）时返回 *BidTooLowError。
	InsertIfHighest(ctx context.Context, bid *Bid) error
	// HighestAccepted 返回状态为 Accepted 的最高出价，金额相同时取最早出价。
	// 无符合条件的出价返回 ErrNoBids。
	HighestAccepted(ctx context.Context, auctionID string) (*Bid, error)
	// ListByAuction 按出价时间倒序返回拍卖的全部出价。
	ListByAuction(ctx context.Context, auctionID string) ([]*Bid, error)
}

// AuctionSnapshotRepository 拍卖快照存储
type AuctionSnapshotRepository interface {
	// Upsert 幂等写入快照（按 id），重复事件投递安全。
	Upsert(ctx context.Context, snapshot *AuctionSnapshot) error
	// Get 快照不存在返回 ErrAuctionNotFound。
	Get(ctx context.Context, id string) (*AuctionSnapshot, error)
	Delete(ctx context.Context, id string) error
	// FindExpiredUnfinalized 返回 auction_end <= now 且未结算的快照。
	FindExpiredUnfinalized(ctx context.Context, now time.Time, limit int) ([]*AuctionSnapshot, error)
	// MarkFinalized 一次性领取标记的 CAS 写：仅当 finalized=false 时置位，
	// 返回是否由本次调用完成置位。必须在存储层原子执行。
	MarkFinalized(ctx context.Context, id string) (bool, error)
	// RecordOutcome 落地结算终态（status/winner/sold_amount）。
	RecordOutcome(ctx context.Context, id string, status AuctionStatus, winner string, soldAmount *int64) error
}

// EventPublisher 领域事件发布
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
