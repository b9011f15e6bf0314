package consumer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gavelworks/auctionhouse/internal/auction/application"
	"github.com/gavelworks/auctionhouse/internal/auction/domain"
	"github.com/gavelworks/auctionhouse/pkg/contracts"
	"github.com/gavelworks/auctionhouse/pkg/mq"
)

// EventHandler 消费拍卖服务关心的事件：
// AuctionFinished 落地结算结果，BidPlaced 维护最高价缓存。
type EventHandler struct {
	app    *application.AuctionService
	logger *slog.Logger
}

func NewEventHandler(app *application.AuctionService, logger *slog.Logger) *EventHandler {
	return &EventHandler{app: app, logger: logger}
}

// Register 将处理函数挂到消费运行时。
func (h *EventHandler) Register(dispatcher *mq.Dispatcher) {
	dispatcher.Register(contracts.TopicAuctionFinished, mq.HandlerFunc(h.handleAuctionFinished))
	dispatcher.Register(contracts.TopicBidPlaced, mq.HandlerFunc(h.handleBidPlaced))
}

func (h *EventHandler) handleAuctionFinished(ctx context.Context, msg *mq.Message) error {
	var event contracts.AuctionFinished
	if err := msg.UnmarshalPayload(&event); err != nil {
		return mq.Permanent(err)
	}

	h.logger.InfoContext(ctx, "consuming AuctionFinished", "auction_id", event.AuctionID, "item_sold", event.ItemSold)

	err := h.app.ApplyOutcome(ctx, event)
	if errors.Is(err, domain.ErrNotFound) {
		// 记录已被删除：结果无处可落，重试无意义。
		return mq.Permanent(err)
	}
	return err
}

func (h *EventHandler) handleBidPlaced(ctx context.Context, msg *mq.Message) error {
	var event contracts.BidPlaced
	if err := msg.UnmarshalPayload(&event); err != nil {
		return mq.Permanent(err)
	}
	return h.app.ApplyHighBid(ctx, event)
}

// NewFaultRouter 构建死信路由。AuctionCreated 的死信只做记录：
// 读模型缺失该拍卖需人工介入或等待重放，不做自动改写补偿。
func NewFaultRouter(logger *slog.Logger) *mq.FaultRouter {
	router := mq.NewFaultRouter()
	router.Register(contracts.TopicAuctionCreated, mq.FaultHandlerFunc(
		func(ctx context.Context, fault *contracts.Fault) error {
			logger.ErrorContext(ctx, "AuctionCreated consumption faulted downstream",
				"key", fault.OriginalKey, "reason", fault.Reason, "error", fault.Error)
			return nil
		}))
	return router
}
