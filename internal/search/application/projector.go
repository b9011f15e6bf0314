package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gavelworks/auctionhouse/internal/search/domain"
	"github.com/gavelworks/auctionhouse/pkg/contracts"
)

// Projector 读模型投影服务。消费方投递语义为 at-least-once 且无跨
// topic 顺序保证，所有应用方法都必须容忍重复与乱序。
type Projector struct {
	items  domain.ItemRepository
	logger *slog.Logger
}

func NewProjector(items domain.ItemRepository, logger *slog.Logger) *Projector {
	return &Projector{items: items, logger: logger}
}

// ApplyAuctionCreated 按 id upsert，重复投递只保留一条记录。
func (p *Projector) ApplyAuctionCreated(ctx context.Context, event contracts.AuctionCreated) error {
	item := &domain.Item{
		ID:           event.ID,
		Make:         event.Make,
		Model:        event.Model,
		Color:        event.Color,
		Mileage:      event.Mileage,
		Year:         event.Year,
		ReservePrice: event.ReservePrice,
		Seller:       event.Seller,
		AuctionEnd:   event.AuctionEnd,
		Status:       "Live",
		CreatedAt:    event.CreatedAt,
	}
	if err := p.items.Upsert(ctx, item); err != nil {
		return fmt.Errorf("failed to project AuctionCreated: %w", err)
	}
	return nil
}

// ApplyAuctionUpdated 更新拍品字段。Updated 先于 Created 到达时
// 落地部分记录，后续 Created 补全，不报错。
func (p *Projector) ApplyAuctionUpdated(ctx context.Context, event contracts.AuctionUpdated) error {
	return p.items.UpdateItemFields(ctx, event.ID, domain.ItemFields{
		Make:    event.Make,
		Model:   event.Model,
		Color:   event.Color,
		Mileage: event.Mileage,
		Year:    event.Year,
	})
}

// ApplyAuctionDeleted 幂等删除。
func (p *Projector) ApplyAuctionDeleted(ctx context.Context, event contracts.AuctionDeleted) error {
	return p.items.Delete(ctx, event.ID)
}

// ApplyBidPlaced 维护当前最高价缓存。投影方拿不到账本的权威排序，
// 只依据事件独立复刻接受规则：状态为接受且金额严格大于现值才更新。
func (p *Projector) ApplyBidPlaced(ctx context.Context, event contracts.BidPlaced) error {
	if !bidAccepted(event.BidStatus) {
		return nil
	}
	return p.items.UpdateHighBidIfGreater(ctx, event.AuctionID, event.Amount)
}

// ApplyAuctionFinished 落地结算结果。
func (p *Projector) ApplyAuctionFinished(ctx context.Context, event contracts.AuctionFinished) error {
	return p.items.ApplyOutcome(ctx, event.AuctionID, event.ItemSold, event.Winner, event.Amount)
}

func bidAccepted(status string) bool {
	return status == "Accepted" || status == "AcceptedBelowReserve"
}
