package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavelworks/auctionhouse/internal/auction/domain"
	"github.com/gavelworks/auctionhouse/pkg/contracts"
)

// fakeAuctionRepo 按 AuctionRepository 契约实现的内存存储。
type fakeAuctionRepo struct {
	mu       sync.Mutex
	auctions map[string]*domain.Auction
}

func newFakeAuctionRepo() *fakeAuctionRepo {
	return &fakeAuctionRepo{auctions: make(map[string]*domain.Auction)}
}

func (r *fakeAuctionRepo) Create(_ context.Context, auction *domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *auction
	r.auctions[auction.ID] = &copied
	return nil
}

func (r *fakeAuctionRepo) Update(_ context.Context, auction *domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.auctions[auction.ID]; !ok {
		return domain.ErrNotFound
	}
	copied := *auction
	r.auctions[auction.ID] = &copied
	return nil
}

func (r *fakeAuctionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.auctions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.auctions, id)
	return nil
}

func (r *fakeAuctionRepo) Get(_ context.Context, id string) (*domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	auction, ok := r.auctions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *auction
	return &copied, nil
}

func (r *fakeAuctionRepo) List(_ context.Context, limit, offset int) ([]*domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		copied := *a
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeAuctionRepo) UpdateHighBid(_ context.Context, id string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	auction, ok := r.auctions[id]
	if !ok {
		return nil
	}
	if auction.CurrentHighBid == nil || *auction.CurrentHighBid < amount {
		auction.CurrentHighBid = &amount
	}
	return nil
}

func (r *fakeAuctionRepo) seed(auction *domain.Auction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *auction
	r.auctions[auction.ID] = &copied
}

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

func newTestService() (*AuctionService, *fakeAuctionRepo, *fakePublisher) {
	repo := newFakeAuctionRepo()
	publisher := &fakePublisher{}
	return NewAuctionService(repo, publisher, slog.Default()), repo, publisher
}

func liveAuction(id string) *domain.Auction {
	return &domain.Auction{
		ID:           id,
		Make:         "Ford",
		Model:        "GT",
		Color:        "White",
		Mileage:      50000,
		Year:         2020,
		ReservePrice: 20000,
		Seller:       "alice",
		AuctionEnd:   time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
		Status:       domain.StatusLive,
	}
}

func TestCreateAuction(t *testing.T) {
	svc, repo, publisher := newTestService()

	auction, err := svc.CreateAuction(context.Background(), CreateAuctionCommand{
		Make:         "Ford",
		Model:        "GT",
		Color:        "White",
		Mileage:      50000,
		Year:         2020,
		ReservePrice: 20000,
		Seller:       "alice",
		AuctionEnd:   time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, auction.ID)
	assert.Equal(t, domain.StatusLive, auction.Status)

	stored, err := repo.Get(context.Background(), auction.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Seller)

	events := publisher.byTopic(contracts.TopicAuctionCreated)
	require.Len(t, events, 1)
	created := events[0].Event.(contracts.AuctionCreated)
	assert.Equal(t, auction.ID, created.ID)
	assert.Equal(t, int64(20000), created.ReservePrice)
	assert.Equal(t, auction.ID, events[0].Key)
}

func TestCreateAuction_PublishFailureDoesNotRollBack(t *testing.T) {
	svc, repo, publisher := newTestService()
	publisher.err = errors.New("broker unavailable")

	auction, err := svc.CreateAuction(context.Background(), CreateAuctionCommand{
		Make: "Ford", Model: "GT", Seller: "alice",
	})

	require.NoError(t, err)
	_, err = repo.Get(context.Background(), auction.ID)
	require.NoError(t, err, "auction record is the source of truth")
}

func TestUpdateAuction(t *testing.T) {
	svc, repo, publisher := newTestService()
	repo.seed(liveAuction("a1"))

	updated, err := svc.UpdateAuction(context.Background(), "a1", "alice", UpdateAuctionCommand{
		Make: "Ford", Model: "GT", Color: "Red", Mileage: 45000, Year: 2020,
	})

	require.NoError(t, err)
	assert.Equal(t, "Red", updated.Color)

	events := publisher.byTopic(contracts.TopicAuctionUpdated)
	require.Len(t, events, 1)
	assert.Equal(t, "Red", events[0].Event.(contracts.AuctionUpdated).Color)
}

func TestUpdateAuction_OnlySeller(t *testing.T) {
	svc, repo, publisher := newTestService()
	repo.seed(liveAuction("a1"))

	_, err := svc.UpdateAuction(context.Background(), "a1", "mallory", UpdateAuctionCommand{Color: "Red"})

	require.ErrorIs(t, err, domain.ErrNotSeller)
	assert.Empty(t, publisher.events)

	stored, err := repo.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "White", stored.Color)
}

func TestUpdateAuction_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.UpdateAuction(context.Background(), "missing", "alice", UpdateAuctionCommand{})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteAuction(t *testing.T) {
	svc, repo, publisher := newTestService()
	repo.seed(liveAuction("a1"))

	require.NoError(t, svc.DeleteAuction(context.Background(), "a1", "alice"))

	_, err := repo.Get(context.Background(), "a1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	events := publisher.byTopic(contracts.TopicAuctionDeleted)
	require.Len(t, events, 1)
	assert.Equal(t, "a1", events[0].Event.(contracts.AuctionDeleted).ID)
}

func TestDeleteAuction_OnlySeller(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.seed(liveAuction("a1"))

	err := svc.DeleteAuction(context.Background(), "a1", "mallory")
	require.ErrorIs(t, err, domain.ErrNotSeller)

	_, err = repo.Get(context.Background(), "a1")
	require.NoError(t, err)
}

func TestApplyOutcome_Sold(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.seed(liveAuction("a1"))

	err := svc.ApplyOutcome(context.Background(), contracts.AuctionFinished{
		AuctionID: "a1", ItemSold: true, Winner: "carol", Seller: "alice", Amount: 25000,
	})

	require.NoError(t, err)
	stored, err := repo.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, stored.Status)
	assert.Equal(t, "carol", stored.Winner)
	require.NotNil(t, stored.SoldAmount)
	assert.Equal(t, int64(25000), *stored.SoldAmount)
}

func TestApplyOutcome_ReserveNotMet(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.seed(liveAuction("a1"))

	err := svc.ApplyOutcome(context.Background(), contracts.AuctionFinished{
		AuctionID: "a1", ItemSold: false, Seller: "alice",
	})

	require.NoError(t, err)
	stored, err := repo.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReserveNotMet, stored.Status)
	assert.Empty(t, stored.Winner)
	assert.Nil(t, stored.SoldAmount)
}

func TestApplyOutcome_DuplicateDeliveryIsNoOp(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.seed(liveAuction("a1"))

	sold := contracts.AuctionFinished{
		AuctionID: "a1", ItemSold: true, Winner: "carol", Seller: "alice", Amount: 25000,
	}
	require.NoError(t, svc.ApplyOutcome(context.Background(), sold))

	// 重复投递携带不同结果也不得改写已落地的终态。
	require.NoError(t, svc.ApplyOutcome(context.Background(), contracts.AuctionFinished{
		AuctionID: "a1", ItemSold: false, Seller: "alice",
	}))

	stored, err := repo.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, stored.Status)
	assert.Equal(t, "carol", stored.Winner)
}

func TestApplyHighBid(t *testing.T) {
	tests := []struct {
		name      string
		existing  *int64
		bidStatus string
		amount    int64
		want      *int64
	}{
		{name: "first accepted bid", existing: nil, bidStatus: "Accepted", amount: 100, want: int64Ptr(100)},
		{name: "higher accepted bid", existing: int64Ptr(100), bidStatus: "Accepted", amount: 200, want: int64Ptr(200)},
		{name: "below reserve still tracked", existing: nil, bidStatus: "AcceptedBelowReserve", amount: 50, want: int64Ptr(50)},
		{name: "lower bid ignored", existing: int64Ptr(300), bidStatus: "Accepted", amount: 200, want: int64Ptr(300)},
		{name: "rejected status ignored", existing: int64Ptr(100), bidStatus: "TooLow", amount: 500, want: int64Ptr(100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService()
			auction := liveAuction("a1")
			auction.CurrentHighBid = tt.existing
			repo.seed(auction)

			err := svc.ApplyHighBid(context.Background(), contracts.BidPlaced{
				AuctionID: "a1", Bidder: "bob", Amount: tt.amount, BidStatus: tt.bidStatus,
			})

			require.NoError(t, err)
			stored, err := repo.Get(context.Background(), "a1")
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, stored.CurrentHighBid)
			} else {
				require.NotNil(t, stored.CurrentHighBid)
				assert.Equal(t, *tt.want, *stored.CurrentHighBid)
			}
		})
	}
}

func int64Ptr(v int64) *int64 { return &v }
