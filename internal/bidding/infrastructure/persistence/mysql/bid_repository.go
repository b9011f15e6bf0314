package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gavelworks/auctionhouse/internal/bidding/domain"
)

type BidRepo struct {
	db *gorm.DB
}

func NewBidRepo(db *gorm.DB) domain.BidRepository {
	return &BidRepo{db: db}
}

// InsertIfHighest 在事务内对拍卖快照行加排他锁，串行化同一拍卖的出价写入，
// 再在锁内复核最高价。两个并发出价不可能都认为自己是最高的。
func (r *BidRepo) InsertIfHighest(ctx context.Context, bid *domain.Bid) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var snapshot domain.AuctionSnapshot
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", bid.AuctionID).
			First(&snapshot).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrAuctionNotFound
			}
			return err
		}

		var highest domain.Bid
		err = tx.Where("auction_id = ?", bid.AuctionID).
			Order("amount DESC, bid_time ASC").
			First(&highest).Error
		switch {
		case err == nil:
			if bid.Amount <= highest.Amount {
				return &domain.BidTooLowError{CurrentHighest: highest.Amount}
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		return tx.Create(bid).Error
	})
}

func (r *BidRepo) HighestAccepted(ctx context.Context, auctionID string) (*domain.Bid, error) {
	var bid domain.Bid
	err := r.db.WithContext(ctx).
		Where("auction_id = ? AND status = ?", auctionID, domain.BidStatusAccepted).
		Order("amount DESC, bid_time ASC").
		First(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoBids
		}
		return nil, err
	}
	return &bid, nil
}

func (r *BidRepo) ListByAuction(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	var bids []*domain.Bid
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("bid_time DESC").
		Find(&bids).Error
	return bids, err
}
