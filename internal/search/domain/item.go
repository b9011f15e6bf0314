package domain

import (
	"context"
	"time"
)

// Item 搜索读模型中的拍卖条目，对事件流的去范式化副本。
type Item struct {
	ID             string    `bson:"_id" json:"id"`
	Make           string    `bson:"make" json:"make"`
	Model          string    `bson:"model" json:"model"`
	Color          string    `bson:"color" json:"color"`
	Mileage        int       `bson:"mileage" json:"mileage"`
	Year           int       `bson:"year" json:"year"`
	ReservePrice   int64     `bson:"reservePrice" json:"reservePrice"`
	Seller         string    `bson:"seller" json:"seller"`
	Winner         string    `bson:"winner,omitempty" json:"winner,omitempty"`
	SoldAmount     int64     `bson:"soldAmount,omitempty" json:"soldAmount,omitempty"`
	CurrentHighBid int64     `bson:"currentHighBid" json:"currentHighBid"`
	Status         string    `bson:"status" json:"status"`
	AuctionEnd     time.Time `bson:"auctionEnd" json:"auctionEnd"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ItemFields AuctionUpdated 携带的拍品可变字段。
type ItemFields struct {
	Make    string
	Model   string
	Color   string
	Mileage int
	Year    int
}

// SearchQuery 搜索条件
type SearchQuery struct {
	// 对 make/model/color 的自由文本匹配
	Term   string
	Seller string
	Winner string
	// orderBy: make | new | 默认按结束时间升序
	OrderBy string
	// filterBy: finished | endingSoon | 默认 live
	FilterBy string
	Page     int
	PageSize int
}

// ItemRepository 读模型存储。所有写入对重复投递幂等。
type ItemRepository interface {
	// Upsert 按 id 整体写入，重复的 AuctionCreated 不产生第二条记录。
	Upsert(ctx context.Context, item *Item) error
	// UpdateItemFields 部分更新拍品字段；基础记录缺失（Updated 先于 Created
	// 到达）时以 upsert 落地部分记录，等待 Created 补全。
	UpdateItemFields(ctx context.Context, id string, fields ItemFields) error
	// ApplyOutcome 落地结算结果。
	ApplyOutcome(ctx context.Context, id string, itemSold bool, winner string, amount int64) error
	// Delete 幂等删除。
	Delete(ctx context.Context, id string) error
	// UpdateHighBidIfGreater 条件更新当前最高价：仅当 amount 严格大于现值时生效；
	// 记录缺失时静默跳过。
	UpdateHighBidIfGreater(ctx context.Context, id string, amount int64) error
	Search(ctx context.Context, q SearchQuery) ([]*Item, int64, error)
}
