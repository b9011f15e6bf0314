package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gavelworks/auctionhouse/internal/bidding/domain"
)

type SnapshotRepo struct {
	db *gorm.DB
}

func NewSnapshotRepo(db *gorm.DB) domain.AuctionSnapshotRepository {
	return &SnapshotRepo{db: db}
}

// Upsert 按 id 幂等写入。已结算的快照不回写基础字段，
// 避免重复投递的 AuctionCreated 复活终态。
func (r *SnapshotRepo) Upsert(ctx context.Context, snapshot *domain.AuctionSnapshot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"reserve_price": snapshot.ReservePrice,
			"seller":        snapshot.Seller,
			"auction_end":   snapshot.AuctionEnd,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "auction_snapshots", Name: "finalized"}, Value: false},
		}},
	}).Create(snapshot).Error
}

func (r *SnapshotRepo) Get(ctx context.Context, id string) (*domain.AuctionSnapshot, error) {
	var snapshot domain.AuctionSnapshot
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&snapshot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}

func (r *SnapshotRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.AuctionSnapshot{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrAuctionNotFound
	}
	return nil
}

func (r *SnapshotRepo) FindExpiredUnfinalized(ctx context.Context, now time.Time, limit int) ([]*domain.AuctionSnapshot, error) {
	var snapshots []*domain.AuctionSnapshot
	err := r.db.WithContext(ctx).
		Where("auction_end <= ? AND finalized = ?", now, false).
		Order("auction_end ASC").
		Limit(limit).
		Find(&snapshots).Error
	return snapshots, err
}

// MarkFinalized 存储层原子 CAS：仅当 finalized 仍为 false 时置位。
// 多实例并发扫描同一拍卖时至多一个实例返回 true。
func (r *SnapshotRepo) MarkFinalized(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.AuctionSnapshot{}).
		Where("id = ? AND finalized = ?", id, false).
		Update("finalized", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *SnapshotRepo) RecordOutcome(ctx context.Context, id string, status domain.AuctionStatus, winner string, soldAmount *int64) error {
	updates := map[string]any{
		"status": status,
		"winner": winner,
	}
	if soldAmount != nil {
		updates["sold_amount"] = *soldAmount
	}
	return r.db.WithContext(ctx).Model(&domain.AuctionSnapshot{}).
		Where("id = ?", id).
		Updates(updates).Error
}
