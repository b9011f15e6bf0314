package consumer

import (
	"context"
	"log/slog"

	"github.com/gavelworks/auctionhouse/internal/search/application"
	"github.com/gavelworks/auctionhouse/pkg/contracts"
	"github.com/gavelworks/auctionhouse/pkg/mq"
)

// ProjectionHandler 把五类生命周期/出价事件接入投影服务。
type ProjectionHandler struct {
	projector *application.Projector
	logger    *slog.Logger
}

func NewProjectionHandler(projector *application.Projector, logger *slog.Logger) *ProjectionHandler {
	return &ProjectionHandler{projector: projector, logger: logger}
}

// Register 将处理函数挂到消费运行时。
func (h *ProjectionHandler) Register(dispatcher *mq.Dispatcher) {
	dispatcher.Register(contracts.TopicAuctionCreated, mq.HandlerFunc(h.handleAuctionCreated))
	dispatcher.Register(contracts.TopicAuctionUpdated, mq.HandlerFunc(h.handleAuctionUpdated))
	dispatcher.Register(contracts.TopicAuctionDeleted, mq.HandlerFunc(h.handleAuctionDeleted))
	dispatcher.Register(contracts.TopicBidPlaced, mq.HandlerFunc(h.handleBidPlaced))
	dispatcher.Register(contracts.TopicAuctionFinished, mq.HandlerFunc(h.handleAuctionFinished))
}

func (h *ProjectionHandler) handleAuctionCreated(ctx context.Context, msg *mq.Message) error {
	var event contracts.AuctionCreated
	if err := msg.UnmarshalPayload(&event); err != nil {
		return mq.Permanent(err)
	}
	h.logger.InfoContext(ctx, "consuming AuctionCreated", "auction_id", event.ID)
	return h.projector.ApplyAuctionCreated(ctx, event)
}

func (h *ProjectionHandler) handleAuctionUpdated(ctx context.Context, msg *mq.Message) error {
	var event contracts.AuctionUpdated
	if err := msg.UnmarshalPayload(&event); err != nil {
		return mq.Permanent(err)
	}
	return h.projector.ApplyAuctionUpdated(ctx, event)
}

func (h *ProjectionHandler) handleAuctionDeleted(ctx context.Context, msg *mq.Message) error {
	var event contracts.AuctionDeleted
	if err := msg.UnmarshalPayload(&event); err != nil {
		return mq.Permanent(err)
	}
	h.logger.InfoContext(ctx, "consuming AuctionDeleted", "auction_id", event.ID)
	return h.projector.ApplyAuctionDeleted(ctx, event)
}

func (h *ProjectionHandler) handleBidPlaced(ctx context.Context, msg *mq.Message) error {
	var event contracts.BidPlaced
	if err := msg.UnmarshalPayload(&event); err != nil {
		return mq.Permanent(err)
	}
	return h.projector.ApplyBidPlaced(ctx, event)
}

func (h *ProjectionHandler) handleAuctionFinished(ctx context.Context, msg *mq.Message) error {
	var event contracts.AuctionFinished
	if err := msg.UnmarshalPayload(&event); err != nil {
		return mq.Permanent(err)
	}
	h.logger.InfoContext(ctx, "consuming AuctionFinished", "auction_id", event.AuctionID)
	return h.projector.ApplyAuctionFinished(ctx, event)
}
