package domain

import (
	"context"
	"errors"
)

// ErrNotFound 拍卖不存在
var ErrNotFound = errors.New("auction not found")

// ErrNotSeller 非卖家操作自己的拍卖
var ErrNotSeller = errors.New("only the seller may modify this auction")

// AuctionRepository 拍卖记录存储
type AuctionRepository interface {
	Create(ctx context.Context, auction *Auction) error
	Update(ctx context.Context, auction *Auction) error
	// Delete 物理删除，记录不存在返回 ErrNotFound。
	Delete(ctx context.Context, id string) error
	// Get 记录不存在返回 ErrNotFound。
	Get(ctx context.Context, id string) (*Auction, error)
	List(ctx context.Context, limit, offset int) ([]*Auction, error)
	// UpdateHighBid 条件更新当前最高价：仅当 amount 严格大于现值时生效。
	UpdateHighBid(ctx context.Context, id string, amount int64) error
}

// EventPublisher 领域事件发布
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
