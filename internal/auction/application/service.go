package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gavelworks/auctionhouse/internal/auction/domain"
	"github.com/gavelworks/auctionhouse/pkg/contracts"
)

// AuctionService 拍卖记录应用服务。事件在持久化成功后发布；
// 发布失败不回滚，数据库记录是事实来源，读模型最终一致。
type AuctionService struct {
	repo      domain.AuctionRepository
	publisher domain.EventPublisher
	logger    *slog.Logger
}

func NewAuctionService(repo domain.AuctionRepository, publisher domain.EventPublisher, logger *slog.Logger) *AuctionService {
	return &AuctionService{repo: repo, publisher: publisher, logger: logger}
}

// CreateAuctionCommand 创建拍卖命令
type CreateAuctionCommand struct {
	Make         string
	Model        string
	Color        string
	Mileage      int
	Year         int
	ReservePrice int64
	Seller       string
	AuctionEnd   time.Time
}

func (s *AuctionService) CreateAuction(ctx context.Context, cmd CreateAuctionCommand) (*domain.Auction, error) {
	auction := &domain.Auction{
		ID:           uuid.NewString(),
		Make:         cmd.Make,
		Model:        cmd.Model,
		Color:        cmd.Color,
		Mileage:      cmd.Mileage,
		Year:         cmd.Year,
		ReservePrice: cmd.ReservePrice,
		Seller:       cmd.Seller,
		AuctionEnd:   cmd.AuctionEnd,
		Status:       domain.StatusLive,
	}

	if err := s.repo.Create(ctx, auction); err != nil {
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}

	event := contracts.AuctionCreated{
		ID:           auction.ID,
		Make:         auction.Make,
		Model:        auction.Model,
		Color:        auction.Color,
		Mileage:      auction.Mileage,
		Year:         auction.Year,
		ReservePrice: auction.ReservePrice,
		Seller:       auction.Seller,
		AuctionEnd:   auction.AuctionEnd,
		CreatedAt:    auction.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, contracts.TopicAuctionCreated, auction.ID, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish AuctionCreated", "auction_id", auction.ID, "error", err)
	}

	s.logger.InfoContext(ctx, "auction created", "auction_id", auction.ID, "seller", auction.Seller)
	return auction, nil
}

// UpdateAuctionCommand 更新拍品可变字段命令
type UpdateAuctionCommand struct {
	Make    string
	Model   string
	Color   string
	Mileage int
	Year    int
}

func (s *AuctionService) UpdateAuction(ctx context.Context, id, actor string, cmd UpdateAuctionCommand) (*domain.Auction, error) {
	auction, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if auction.Seller != actor {
		return nil, domain.ErrNotSeller
	}

	auction.Make = cmd.Make
	auction.Model = cmd.Model
	auction.Color = cmd.Color
	auction.Mileage = cmd.Mileage
	auction.Year = cmd.Year

	if err := s.repo.Update(ctx, auction); err != nil {
		return nil, fmt.Errorf("failed to update auction: %w", err)
	}

	event := contracts.AuctionUpdated{
		ID:      auction.ID,
		Make:    auction.Make,
		Model:   auction.Model,
		Color:   auction.Color,
		Mileage: auction.Mileage,
		Year:    auction.Year,
	}
	if err := s.publisher.Publish(ctx, contracts.TopicAuctionUpdated, auction.ID, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish AuctionUpdated", "auction_id", auction.ID, "error", err)
	}
	return auction, nil
}

// DeleteAuction 删除拍卖并发布墓碑事件。
func (s *AuctionService) DeleteAuction(ctx context.Context, id, actor string) error {
	auction, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if auction.Seller != actor {
		return domain.ErrNotSeller
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete auction: %w", err)
	}

	if err := s.publisher.Publish(ctx, contracts.TopicAuctionDeleted, id, contracts.AuctionDeleted{ID: id}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish AuctionDeleted", "auction_id", id, "error", err)
	}

	s.logger.InfoContext(ctx, "auction deleted", "auction_id", id)
	return nil
}

func (s *AuctionService) GetAuction(ctx context.Context, id string) (*domain.Auction, error) {
	return s.repo.Get(ctx, id)
}

func (s *AuctionService) ListAuctions(ctx context.Context, limit, offset int) ([]*domain.Auction, error) {
	return s.repo.List(ctx, limit, offset)
}

// ApplyOutcome 应用结算结果。重复投递幂等：记录已离开 Live 状态时不再改写，
// 保证 finalized 后 status/winner 不变的不变量。
func (s *AuctionService) ApplyOutcome(ctx context.Context, outcome contracts.AuctionFinished) error {
	auction, err := s.repo.Get(ctx, outcome.AuctionID)
	if err != nil {
		return err
	}
	if auction.Settled() {
		s.logger.DebugContext(ctx, "outcome already applied, skipping", "auction_id", auction.ID)
		return nil
	}

	if outcome.ItemSold {
		auction.Winner = outcome.Winner
		amount := outcome.Amount
		auction.SoldAmount = &amount
		auction.Status = domain.StatusFinished
	} else {
		auction.Status = domain.StatusReserveNotMet
	}

	if err := s.repo.Update(ctx, auction); err != nil {
		return fmt.Errorf("failed to apply settlement outcome: %w", err)
	}

	s.logger.InfoContext(ctx, "settlement outcome applied",
		"auction_id", auction.ID, "status", auction.Status.String(), "winner", auction.Winner)
	return nil
}

// ApplyHighBid 根据 BidPlaced 维护冗余的当前最高价缓存。
// 只有被接受的出价且金额严格大于现值时才更新。
func (s *AuctionService) ApplyHighBid(ctx context.Context, event contracts.BidPlaced) error {
	if !bidAccepted(event.BidStatus) {
		return nil
	}
	return s.repo.UpdateHighBid(ctx, event.AuctionID, event.Amount)
}

func bidAccepted(status string) bool {
	return status == "Accepted" || status == "AcceptedBelowReserve"
}
