package application

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavelworks/auctionhouse/internal/bidding/domain"
	"github.com/gavelworks/auctionhouse/pkg/contracts"
)

func newTestScanner(bidRepo *fakeBidRepo, snapshotRepo *fakeSnapshotRepo, publisher *fakePublisher) *Scanner {
	scanner := NewScanner(snapshotRepo, bidRepo, publisher, slog.Default(), time.Minute, 100)
	scanner.now = func() time.Time { return testTime }
	return scanner
}

func expiredSnapshot(id string) *domain.AuctionSnapshot {
	return &domain.AuctionSnapshot{
		ID:           id,
		ReservePrice: 1000,
		Seller:       "alice",
		AuctionEnd:   testTime.Add(-time.Minute),
		Status:       domain.AuctionStatusLive,
	}
}

func TestScanAndSettle_WinnerAboveReserve(t *testing.T) {
	bidRepo := newFakeBidRepo()
	snapshotRepo := newFakeSnapshotRepo()
	publisher := &fakePublisher{}
	snapshotRepo.seed(expiredSnapshot("a1"))

	bidRepo.seed(&domain.Bid{ID: "b1", AuctionID: "a1", Bidder: "bob", Amount: 500,
		BidTime: testTime.Add(-3 * time.Minute), Status: domain.BidStatusAcceptedBelowReserve})
	bidRepo.seed(&domain.Bid{ID: "b2", AuctionID: "a1", Bidder: "carol", Amount: 1200,
		BidTime: testTime.Add(-2 * time.Minute), Status: domain.BidStatusAccepted})

	scanner := newTestScanner(bidRepo, snapshotRepo, publisher)
	var settled []bool
	scanner.OnSettled = func(itemSold bool) { settled = append(settled, itemSold) }

	outcomes, err := scanner.ScanAndSettle(context.Background())

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].ItemSold)
	assert.Equal(t, "carol", outcomes[0].Winner)
	assert.Equal(t, "alice", outcomes[0].Seller)
	assert.Equal(t, int64(1200), outcomes[0].Amount)
	assert.Equal(t, []bool{true}, settled)

	snapshot, err := snapshotRepo.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.True(t, snapshot.Finalized)
	assert.Equal(t, domain.AuctionStatusFinished, snapshot.Status)
	assert.Equal(t, "carol", snapshot.Winner)
	require.NotNil(t, snapshot.SoldAmount)
	assert.Equal(t, int64(1200), *snapshot.SoldAmount)

	events := publisher.byTopic(contracts.TopicAuctionFinished)
	require.Len(t, events, 1)
	assert.Equal(t, "a1", events[0].Key)
}

func TestScanAndSettle_NoBidsIsReserveNotMet(t *testing.T) {
	bidRepo := newFakeBidRepo()
	snapshotRepo := newFakeSnapshotRepo()
	publisher := &fakePublisher{}
	snapshotRepo.seed(expiredSnapshot("a1"))

	scanner := newTestScanner(bidRepo, snapshotRepo, publisher)
	outcomes, err := scanner.ScanAndSettle(context.Background())

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].ItemSold)
	assert.Empty(t, outcomes[0].Winner)

	snapshot, err := snapshotRepo.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionStatusReserveNotMet, snapshot.Status)
	assert.Nil(t, snapshot.SoldAmount)
}

func TestScanAndSettle_OnlyBelowReserveBidsIsReserveNotMet(t *testing.T) {
	bidRepo := newFakeBidRepo()
	snapshotRepo := newFakeSnapshotRepo()
	publisher := &fakePublisher{}
	snapshotRepo.seed(expiredSnapshot("a1"))

	bidRepo.seed(&domain.Bid{ID: "b1", AuctionID: "a1", Bidder: "bob", Amount: 900,
		BidTime: testTime.Add(-2 * time.Minute), Status: domain.BidStatusAcceptedBelowReserve})

	scanner := newTestScanner(bidRepo, snapshotRepo, publisher)
	outcomes, err := scanner.ScanAndSettle(context.Background())

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].ItemSold, "bids below reserve never produce a sale")
}

func TestScanAndSettle_SecondPassIsNoOp(t *testing.T) {
	bidRepo := newFakeBidRepo()
	snapshotRepo := newFakeSnapshotRepo()
	publisher := &fakePublisher{}
	snapshotRepo.seed(expiredSnapshot("a1"))

	scanner := newTestScanner(bidRepo, snapshotRepo, publisher)

	first, err := scanner.ScanAndSettle(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := scanner.ScanAndSettle(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Len(t, publisher.byTopic(contracts.TopicAuctionFinished), 1,
		"a settled auction must never be settled again")
}

func TestScanAndSettle_LostClaimSkipsPublish(t *testing.T) {
	bidRepo := newFakeBidRepo()
	snapshotRepo := newFakeSnapshotRepo()
	publisher := &fakePublisher{}
	snapshotRepo.seed(expiredSnapshot("a1"))
	snapshotRepo.claimDenied["a1"] = true

	scanner := newTestScanner(bidRepo, snapshotRepo, publisher)
	outcomes, err := scanner.ScanAndSettle(context.Background())

	require.NoError(t, err)
	assert.Empty(t, outcomes)
	assert.Empty(t, publisher.events)
}

func TestScanAndSettle_FailureIsolatedPerAuction(t *testing.T) {
	bidRepo := newFakeBidRepo()
	snapshotRepo := newFakeSnapshotRepo()
	publisher := &fakePublisher{}

	bad := expiredSnapshot("bad")
	bad.AuctionEnd = testTime.Add(-2 * time.Minute)
	snapshotRepo.seed(bad)
	snapshotRepo.seed(expiredSnapshot("good"))
	bidRepo.highestAcceptedErr["bad"] = errors.New("connection reset")

	scanner := newTestScanner(bidRepo, snapshotRepo, publisher)
	outcomes, err := scanner.ScanAndSettle(context.Background())

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "good", outcomes[0].AuctionID)
}

func TestScanAndSettle_SkipsFutureAuctions(t *testing.T) {
	bidRepo := newFakeBidRepo()
	snapshotRepo := newFakeSnapshotRepo()
	publisher := &fakePublisher{}

	snapshotRepo.seed(liveSnapshot("live"))
	snapshotRepo.seed(expiredSnapshot("ended"))

	scanner := newTestScanner(bidRepo, snapshotRepo, publisher)
	outcomes, err := scanner.ScanAndSettle(context.Background())

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "ended", outcomes[0].AuctionID)

	live, err := snapshotRepo.Get(context.Background(), "live")
	require.NoError(t, err)
	assert.False(t, live.Finalized)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	bidRepo := newFakeBidRepo()
	snapshotRepo := newFakeSnapshotRepo()
	publisher := &fakePublisher{}

	scanner := newTestScanner(bidRepo, snapshotRepo, publisher)
	scanner.interval = 5 * time.Millisecond

	passes := make(chan struct{}, 16)
	scanner.OnScanPass = func() { passes <- struct{}{} }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scanner.Run(ctx)
		close(done)
	}()

	<-passes
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scanner did not stop after cancellation")
	}
}
