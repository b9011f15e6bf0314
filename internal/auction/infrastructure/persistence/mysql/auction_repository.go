package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gavelworks/auctionhouse/internal/auction/domain"
)

type AuctionRepo struct {
	db *gorm.DB
}

func NewAuctionRepo(db *gorm.DB) domain.AuctionRepository {
	return &AuctionRepo{db: db}
}

func (r *AuctionRepo) Create(ctx context.Context, auction *domain.Auction) error {
	return r.db.WithContext(ctx).Create(auction).Error
}

func (r *AuctionRepo) Update(ctx context.Context, auction *domain.Auction) error {
	return r.db.WithContext(ctx).Save(auction).Error
}

func (r *AuctionRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Auction{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AuctionRepo) Get(ctx context.Context, id string) (*domain.Auction, error) {
	var auction domain.Auction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&auction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &auction, nil
}

func (r *AuctionRepo) List(ctx context.Context, limit, offset int) ([]*domain.Auction, error) {
	var auctions []*domain.Auction
	err := r.db.WithContext(ctx).
		Order("auction_end ASC").
		Limit(limit).
		Offset(offset).
		Find(&auctions).Error
	return auctions, err
}

func (r *AuctionRepo) UpdateHighBid(ctx context.Context, id string, amount int64) error {
	// 条件写：并发 BidPlaced 乱序到达时只保留更高值。
	return r.db.WithContext(ctx).Model(&domain.Auction{}).
		Where("id = ? AND (current_high_bid IS NULL OR current_high_bid < ?)", id, amount).
		Update("current_high_bid", amount).Error
}
