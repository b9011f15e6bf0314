// Package contracts 定义跨服务的事件契约（Kafka topic 与消息载荷）。
// 所有消息以 JSON 编码，字段一旦发布不可做不兼容变更。
package contracts

import "time"

// Topic 常量，每种事件一个 topic，按服务间约定命名。
const (
	TopicAuctionCreated  = "auction.created"
	TopicAuctionUpdated  = "auction.updated"
	TopicAuctionDeleted  = "auction.deleted"
	TopicBidPlaced       = "bid.placed"
	TopicAuctionFinished = "auction.finished"
	// TopicDeadLetter 死信通道：消费重试耗尽后的消息落点。
	TopicDeadLetter = "auction.dead-letter"
)

// AuctionCreated 拍卖创建事件。
type AuctionCreated struct {
	ID           string    `json:"id"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Color        string    `json:"color"`
	Mileage      int       `json:"mileage"`
	Year         int       `json:"year"`
	ReservePrice int64     `json:"reservePrice"`
	Seller       string    `json:"seller"`
	AuctionEnd   time.Time `json:"auctionEnd"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AuctionUpdated 拍卖可变字段更新事件。
type AuctionUpdated struct {
	ID      string `json:"id"`
	Make    string `json:"make"`
	Model   string `json:"model"`
	Color   string `json:"color"`
	Mileage int    `json:"mileage"`
	Year    int    `json:"year"`
}

// AuctionDeleted 拍卖删除墓碑事件。
type AuctionDeleted struct {
	ID string `json:"id"`
}

// BidPlaced 出价成功事件。BidStatus 为出价状态的字符串形式
// （Accepted / AcceptedBelowReserve）。
type BidPlaced struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auctionId"`
	Bidder    string    `json:"bidder"`
	Amount    int64     `json:"amount"`
	BidStatus string    `json:"bidStatus"`
	BidTime   time.Time `json:"bidTime"`
}

// AuctionFinished 结算结果事件，每个拍卖最多发布一次。
// ItemSold 为 false 时 Winner 为空、Amount 为 0。
type AuctionFinished struct {
	AuctionID string `json:"auctionId"`
	ItemSold  bool   `json:"itemSold"`
	Winner    string `json:"winner"`
	Seller    string `json:"seller"`
	Amount    int64  `json:"amount"`
}

// Fault 死信信封：重试耗尽的消息连同失败原因进入死信 topic，
// 供各服务的故障处理器做补偿或人工排查。
type Fault struct {
	OriginalTopic string    `json:"originalTopic"`
	OriginalKey   string    `json:"originalKey"`
	OriginalValue []byte    `json:"originalValue"`
	Reason        string    `json:"reason"`
	Error         string    `json:"error"`
	FailedAt      time.Time `json:"failedAt"`
}
