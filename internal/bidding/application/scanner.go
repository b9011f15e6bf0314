package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gavelworks/auctionhouse/internal/bidding/domain"
	"github.com/gavelworks/auctionhouse/pkg/contracts"
)

// Scanner 结算扫描器：单线程周期循环，找出已到期未结算的拍卖，
// 判定成交结果并发布 AuctionFinished。
//
// 每个拍卖独立处理，顺序固定：
//  1. CAS 置位 finalized —— 一次性领取标记，置位成功即保证不会被任何
//     扫描（包括水平扩容的其他实例）重复处理；
//  2. 查询状态为 Accepted 的最高出价（低于保留价的出价不构成成交）；
//  3. 落地终态；
//  4. 发布结算事件。
//
// 已知缺口：第 1 步之后崩溃会留下 finalized 但未发布结果的拍卖，
// 加固方向是把结果事件与 finalize 写入同事务落地（事务性发件箱）。
type Scanner struct {
	snapshots domain.AuctionSnapshotRepository
	bids      domain.BidRepository
	publisher domain.EventPublisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	now       func() time.Time

	// OnScanPass / OnSettled 为可选观测钩子（指标埋点）。
	OnScanPass func()
	OnSettled  func(itemSold bool)
}

func NewScanner(
	snapshots domain.AuctionSnapshotRepository,
	bids domain.BidRepository,
	publisher domain.EventPublisher,
	logger *slog.Logger,
	interval time.Duration,
	batchSize int,
) *Scanner {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Scanner{
		snapshots: snapshots,
		bids:      bids,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run 启动扫描循环，阻塞直到 ctx 取消。进行中的扫描批次会做完当前
// 拍卖再退出；尚未 finalize 的拍卖留给下一次启动处理。
func (s *Scanner) Run(ctx context.Context) {
	s.logger.InfoContext(ctx, "settlement scanner started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.ScanAndSettle(ctx); err != nil {
			s.logger.ErrorContext(ctx, "scan pass failed", "error", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "settlement scanner stopped")
			return
		}
	}
}

// ScanAndSettle 执行一次扫描，返回本次发布的结算结果。
// 单个拍卖的失败不中断其余拍卖的处理。
func (s *Scanner) ScanAndSettle(ctx context.Context) ([]contracts.AuctionFinished, error) {
	if s.OnScanPass != nil {
		s.OnScanPass()
	}

	now := s.now().UTC()
	expired, err := s.snapshots.FindExpiredUnfinalized(ctx, now, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired auctions: %w", err)
	}
	if len(expired) == 0 {
		s.logger.DebugContext(ctx, "no finished auctions found", "at", now)
		return nil, nil
	}

	s.logger.InfoContext(ctx, "found finished auctions", "count", len(expired), "at", now)

	outcomes := make([]contracts.AuctionFinished, 0, len(expired))
	for _, snapshot := range expired {
		if ctx.Err() != nil {
			break
		}
		outcome, err := s.settle(ctx, snapshot)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to settle auction",
				"auction_id", snapshot.ID, "error", err)
			continue
		}
		if outcome != nil {
			outcomes = append(outcomes, *outcome)
		}
	}
	return outcomes, nil
}

// settle 结算单个拍卖。返回 (nil, nil) 表示本实例未赢得领取标记。
func (s *Scanner) settle(ctx context.Context, snapshot *domain.AuctionSnapshot) (*contracts.AuctionFinished, error) {
	claimed, err := s.snapshots.MarkFinalized(ctx, snapshot.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark auction finalized: %w", err)
	}
	if !claimed {
		s.logger.DebugContext(ctx, "auction already claimed by another pass", "auction_id", snapshot.ID)
		return nil, nil
	}

	outcome := contracts.AuctionFinished{
		AuctionID: snapshot.ID,
		Seller:    snapshot.Seller,
	}

	status := domain.AuctionStatusReserveNotMet
	var soldAmount *int64

	winning, err := s.bids.HighestAccepted(ctx, snapshot.ID)
	switch {
	case err == nil:
		outcome.ItemSold = true
		outcome.Winner = winning.Bidder
		outcome.Amount = winning.Amount
		status = domain.AuctionStatusFinished
		soldAmount = &winning.Amount
	case errors.Is(err, domain.ErrNoBids):
		// 无 Accepted 出价：流拍。
	default:
		return nil, fmt.Errorf("failed to determine winning bid: %w", err)
	}

	if err := s.snapshots.RecordOutcome(ctx, snapshot.ID, status, outcome.Winner, soldAmount); err != nil {
		return nil, fmt.Errorf("failed to record outcome: %w", err)
	}

	if err := s.publisher.Publish(ctx, contracts.TopicAuctionFinished, snapshot.ID, outcome); err != nil {
		return nil, fmt.Errorf("failed to publish AuctionFinished: %w", err)
	}

	if s.OnSettled != nil {
		s.OnSettled(outcome.ItemSold)
	}
	s.logger.InfoContext(ctx, "auction settled",
		"auction_id", snapshot.ID, "item_sold", outcome.ItemSold,
		"winner", outcome.Winner, "amount", outcome.Amount)
	return &outcome, nil
}
