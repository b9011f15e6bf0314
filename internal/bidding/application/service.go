package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gavelworks/auctionhouse/internal/bidding/domain"
	"github.com/gavelworks/auctionhouse/pkg/cache"
	"github.com/gavelworks/auctionhouse/pkg/contracts"
)

// HighBidCache 最高价查询路径上的读穿缓存，pkg/cache 的 Redis 实现满足该接口。
type HighBidCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const highBidCacheTTL = 10 * time.Second

// BiddingService 出价账本应用服务。
type BiddingService struct {
	bids      domain.BidRepository
	snapshots domain.AuctionSnapshotRepository
	publisher domain.EventPublisher
	cache     HighBidCache // 可为 nil，仅影响查询路径
	logger    *slog.Logger
	now       func() time.Time
}

func NewBiddingService(
	bids domain.BidRepository,
	snapshots domain.AuctionSnapshotRepository,
	publisher domain.EventPublisher,
	highBidCache HighBidCache,
	logger *slog.Logger,
) *BiddingService {
	return &BiddingService{
		bids:      bids,
		snapshots: snapshots,
		publisher: publisher,
		cache:     highBidCache,
		logger:    logger,
		now:       time.Now,
	}
}

// PlaceBid 校验并记录出价。校验逐项区分拒绝原因：拍卖必须存在、
// 出价者不能是卖家、拍卖未结束、金额必须高于当前最高出价。
// 出价持久化成功后发布 BidPlaced；发布失败不回滚，出价记录是事实来源。
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidder string, amount int64) (*domain.Bid, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	snapshot, err := s.snapshots.Get(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if snapshot.Seller == bidder {
		return nil, domain.ErrSelfBid
	}

	now := s.now().UTC()
	if !now.Before(snapshot.AuctionEnd) || snapshot.Finalized {
		return nil, domain.ErrAuctionEnded
	}

	status := domain.BidStatusAcceptedBelowReserve
	if amount >= snapshot.ReservePrice {
		status = domain.BidStatusAccepted
	}

	bid := &domain.Bid{
		ID:        uuid.NewString(),
		AuctionID: auctionID,
		Bidder:    bidder,
		Amount:    amount,
		BidTime:   now,
		Status:    status,
	}

	// 金额与当前最高价的比较在存储层串行化，并发出价只有一个能赢。
	if err := s.bids.InsertIfHighest(ctx, bid); err != nil {
		return nil, err
	}

	event := contracts.BidPlaced{
		ID:        bid.ID,
		AuctionID: bid.AuctionID,
		Bidder:    bid.Bidder,
		Amount:    bid.Amount,
		BidStatus: bid.Status.String(),
		BidTime:   bid.BidTime,
	}
	if err := s.publisher.Publish(ctx, contracts.TopicBidPlaced, bid.AuctionID, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish BidPlaced", "bid_id", bid.ID, "error", err)
	}

	s.invalidateHighBid(ctx, auctionID)

	s.logger.InfoContext(ctx, "bid placed",
		"auction_id", auctionID, "bidder", bidder, "amount", amount, "status", bid.Status.String())
	return bid, nil
}

// GetHighestBid 返回当前获胜出价：状态为 Accepted 的最高金额，
// 金额相同取最早出价。无符合条件的出价返回 ErrNoBids。
func (s *BiddingService) GetHighestBid(ctx context.Context, auctionID string) (*domain.Bid, error) {
	if s.cache != nil {
		var cached domain.Bid
		if err := s.cache.Get(ctx, highBidKey(auctionID), &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			s.logger.WarnContext(ctx, "high bid cache read failed", "auction_id", auctionID, "error", err)
		}
	}

	bid, err := s.bids.HighestAccepted(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, highBidKey(auctionID), bid, highBidCacheTTL); err != nil {
			s.logger.WarnContext(ctx, "high bid cache write failed", "auction_id", auctionID, "error", err)
		}
	}
	return bid, nil
}

// ListBids 按出价时间倒序返回拍卖的全部出价。
func (s *BiddingService) ListBids(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	return s.bids.ListByAuction(ctx, auctionID)
}

// ApplyAuctionCreated 依据 AuctionCreated 事件维护本地快照，幂等。
func (s *BiddingService) ApplyAuctionCreated(ctx context.Context, event contracts.AuctionCreated) error {
	snapshot := &domain.AuctionSnapshot{
		ID:           event.ID,
		ReservePrice: event.ReservePrice,
		Seller:       event.Seller,
		AuctionEnd:   event.AuctionEnd,
		Status:       domain.AuctionStatusLive,
	}
	if err := s.snapshots.Upsert(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to upsert auction snapshot: %w", err)
	}
	return nil
}

// ApplyAuctionDeleted 删除本地快照，快照本就不存在时视为已完成。
func (s *BiddingService) ApplyAuctionDeleted(ctx context.Context, event contracts.AuctionDeleted) error {
	err := s.snapshots.Delete(ctx, event.ID)
	if errors.Is(err, domain.ErrAuctionNotFound) {
		return nil
	}
	return err
}

func (s *BiddingService) invalidateHighBid(ctx context.Context, auctionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, highBidKey(auctionID)); err != nil {
		s.logger.WarnContext(ctx, "high bid cache invalidation failed", "auction_id", auctionID, "error", err)
	}
}

func highBidKey(auctionID string) string {
	return "bidding:highest:" + auctionID
}
