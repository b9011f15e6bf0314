package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gavelworks/auctionhouse/internal/bidding/domain"
)

// fakeBidRepo 按 BidRepository 的契约实现的内存账本。
type fakeBidRepo struct {
	mu   sync.Mutex
	bids []*domain.Bid
	// highestAcceptedErr 按拍卖 id 注入查询错误
	highestAcceptedErr map[string]error
}

func newFakeBidRepo() *fakeBidRepo {
	return &fakeBidRepo{highestAcceptedErr: make(map[string]error)}
}

func (r *fakeBidRepo) InsertIfHighest(_ context.Context, bid *domain.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var highest *domain.Bid
	for _, b := range r.bids {
		if b.AuctionID != bid.AuctionID {
			continue
		}
		if highest == nil || b.Amount > highest.Amount {
			highest = b
		}
	}
	if highest != nil && bid.Amount <= highest.Amount {
		return &domain.BidTooLowError{CurrentHighest: highest.Amount}
	}
	r.bids = append(r.bids, bid)
	return nil
}

func (r *fakeBidRepo) HighestAccepted(_ context.Context, auctionID string) (*domain.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.highestAcceptedErr[auctionID]; err != nil {
		return nil, err
	}

	var candidates []*domain.Bid
	for _, b := range r.bids {
		if b.AuctionID == auctionID && b.Status == domain.BidStatusAccepted {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNoBids
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Amount != candidates[j].Amount {
			return candidates[i].Amount > candidates[j].Amount
		}
		return candidates[i].BidTime.Before(candidates[j].BidTime)
	})
	return candidates[0], nil
}

func (r *fakeBidRepo) ListByAuction(_ context.Context, auctionID string) ([]*domain.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var bids []*domain.Bid
	for _, b := range r.bids {
		if b.AuctionID == auctionID {
			bids = append(bids, b)
		}
	}
	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].BidTime.After(bids[j].BidTime)
	})
	return bids, nil
}

// seed 绕过校验直接写入账本
func (r *fakeBidRepo) seed(bid *domain.Bid) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bids = append(r.bids, bid)
}

// fakeSnapshotRepo 内存快照存储。
type fakeSnapshotRepo struct {
	mu        sync.Mutex
	snapshots map[string]*domain.AuctionSnapshot
	// claimDenied 置位后 MarkFinalized 返回 false，模拟被其它实例抢先
	claimDenied map[string]bool
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{
		snapshots:   make(map[string]*domain.AuctionSnapshot),
		claimDenied: make(map[string]bool),
	}
}

func (r *fakeSnapshotRepo) Upsert(_ context.Context, snapshot *domain.AuctionSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.snapshots[snapshot.ID]; ok {
		if existing.Finalized {
			return nil
		}
		existing.ReservePrice = snapshot.ReservePrice
		existing.Seller = snapshot.Seller
		existing.AuctionEnd = snapshot.AuctionEnd
		return nil
	}
	copied := *snapshot
	r.snapshots[snapshot.ID] = &copied
	return nil
}

func (r *fakeSnapshotRepo) Get(_ context.Context, id string) (*domain.AuctionSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot, ok := r.snapshots[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	copied := *snapshot
	return &copied, nil
}

func (r *fakeSnapshotRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.snapshots[id]; !ok {
		return domain.ErrAuctionNotFound
	}
	delete(r.snapshots, id)
	return nil
}

func (r *fakeSnapshotRepo) FindExpiredUnfinalized(_ context.Context, now time.Time, limit int) ([]*domain.AuctionSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []*domain.AuctionSnapshot
	for _, s := range r.snapshots {
		if !s.Finalized && !s.AuctionEnd.After(now) {
			copied := *s
			expired = append(expired, &copied)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].AuctionEnd.Before(expired[j].AuctionEnd)
	})
	if len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (r *fakeSnapshotRepo) MarkFinalized(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.claimDenied[id] {
		return false, nil
	}
	snapshot, ok := r.snapshots[id]
	if !ok || snapshot.Finalized {
		return false, nil
	}
	snapshot.Finalized = true
	return true, nil
}

func (r *fakeSnapshotRepo) RecordOutcome(_ context.Context, id string, status domain.AuctionStatus, winner string, soldAmount *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot, ok := r.snapshots[id]
	if !ok {
		return domain.ErrAuctionNotFound
	}
	snapshot.Status = status
	snapshot.Winner = winner
	if soldAmount != nil {
		amount := *soldAmount
		snapshot.SoldAmount = &amount
	}
	return nil
}

func (r *fakeSnapshotRepo) seed(snapshot *domain.AuctionSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *snapshot
	r.snapshots[snapshot.ID] = &copied
}

// publishedEvent 记录一次发布调用
type publishedEvent struct {
	Topic string
	Key   string
	Event any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *fakePublisher) byTopic(topic string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}
