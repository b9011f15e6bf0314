package consumer

import (
	"context"
	"log/slog"

	"github.com/gavelworks/auctionhouse/internal/bidding/application"
	"github.com/gavelworks/auctionhouse/pkg/contracts"
	"github.com/gavelworks/auctionhouse/pkg/mq"
)

// EventHandler 维护出价服务的拍卖本地快照。
// AuctionUpdated 只携带拍品字段，快照不关心，不消费。
type EventHandler struct {
	app    *application.BiddingService
	logger *slog.Logger
}

func NewEventHandler(app *application.BiddingService, logger *slog.Logger) *EventHandler {
	return &EventHandler{app: app, logger: logger}
}

// Register 将处理函数挂到消费运行时。
func (h *EventHandler) Register(dispatcher *mq.Dispatcher) {
	dispatcher.Register(contracts.TopicAuctionCreated, mq.HandlerFunc(h.handleAuctionCreated))
	dispatcher.Register(contracts.TopicAuctionDeleted, mq.HandlerFunc(h.handleAuctionDeleted))
}

func (h *EventHandler) handleAuctionCreated(ctx context.Context, msg *mq.Message) error {
	var event contracts.AuctionCreated
	if err := msg.UnmarshalPayload(&event); err != nil {
		return mq.Permanent(err)
	}

	h.logger.InfoContext(ctx, "consuming AuctionCreated", "auction_id", event.ID)
	return h.app.ApplyAuctionCreated(ctx, event)
}

func (h *EventHandler) handleAuctionDeleted(ctx context.Context, msg *mq.Message) error {
	var event contracts.AuctionDeleted
	if err := msg.UnmarshalPayload(&event); err != nil {
		return mq.Permanent(err)
	}

	h.logger.InfoContext(ctx, "consuming AuctionDeleted", "auction_id", event.ID)
	return h.app.ApplyAuctionDeleted(ctx, event)
}
