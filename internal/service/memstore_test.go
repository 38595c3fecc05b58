package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/auction-engine/internal/model"
	"github.com/iliyamo/auction-engine/internal/notify"
	"github.com/iliyamo/auction-engine/internal/repository"
)

// memStore mirrors the MySQL repositories: every auction write is a
// compare-and-swap on Version and a failed swap returns
// repository.ErrVersionConflict.
type memStore struct {
	mu       sync.Mutex
	auctions map[uint64]model.Auction
	bids     []model.Bid
	users    map[uint64]model.User
	items    map[uint64]model.Item
	payments map[string]model.Payment

	getErr      error
	listErr     error
	beforeApply func(w model.BidWrite)
	beforeEnd   func(id uint64)
	markEnded   int
}

func newMemStore() *memStore {
	return &memStore{
		auctions: map[uint64]model.Auction{},
		users:    map[uint64]model.User{},
		items:    map[uint64]model.Item{},
		payments: map[string]model.Payment{},
	}
}

func (m *memStore) store() Store {
	return Store{
		Auctions: memAuctions{m},
		Bids:     memBids{m},
		Users:    memUsers{m},
		Items:    memItems{m},
		Payments: memPayments{m},
	}
}

func (m *memStore) putAuction(a model.Auction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auctions[a.ID] = a
}

func (m *memStore) auction(id uint64) model.Auction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auctions[id]
}

func (m *memStore) putUser(u model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *memStore) putItem(it model.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = it
}

func (m *memStore) deleteItem(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
}

// seedBid writes a bid the way ApplyBid would, bypassing validation.
func (m *memStore) seedBid(auctionID, bidderID uint64, amount int64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.auctions[auctionID]
	m.bids = append(m.bids, model.Bid{ID: uint64(len(m.bids) + 1), AuctionID: auctionID, BidderID: bidderID, Amount: amount, PlacedAt: at})
	if amount > a.CurrentPrice {
		b := bidderID
		a.CurrentPrice, a.HighestBidderID = amount, &b
	}
	a.Version++
	a.UpdatedAt = at
	m.auctions[auctionID] = a
}

func (m *memStore) bidsFor(auctionID uint64) []model.Bid {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Bid
	for _, b := range m.bids {
		if b.AuctionID == auctionID {
			out = append(out, b)
		}
	}
	return out
}

type memAuctions struct{ m *memStore }

func (s memAuctions) GetByID(_ context.Context, id uint64) (*model.Auction, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.getErr != nil {
		return nil, s.m.getErr
	}
	a, ok := s.m.auctions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (s memAuctions) ListExpired(_ context.Context, now time.Time) ([]model.Auction, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.listErr != nil {
		return nil, s.m.listErr
	}
	var out []model.Auction
	for _, a := range s.m.auctions {
		if a.Expired(now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memAuctions) ApplyBid(_ context.Context, w model.BidWrite) (*model.Bid, error) {
	if s.m.beforeApply != nil {
		s.m.beforeApply(w)
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	a, ok := s.m.auctions[w.AuctionID]
	if !ok || a.Version != w.ExpectedVersion || a.Status != model.AuctionOngoing || a.CurrentPrice >= w.Amount {
		return nil, repository.ErrVersionConflict
	}
	bidder := w.BidderID
	a.CurrentPrice, a.HighestBidderID = w.Amount, &bidder
	a.Version++
	a.UpdatedAt = w.PlacedAt
	s.m.auctions[a.ID] = a
	b := model.Bid{ID: uint64(len(s.m.bids) + 1), AuctionID: w.AuctionID, BidderID: w.BidderID, Amount: w.Amount, PlacedAt: w.PlacedAt}
	s.m.bids = append(s.m.bids, b)
	return &b, nil
}

func (s memAuctions) MarkEnded(_ context.Context, id, version uint64, at time.Time) error {
	if s.m.beforeEnd != nil {
		s.m.beforeEnd(id)
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	a, ok := s.m.auctions[id]
	if !ok || a.Version != version || a.Status != model.AuctionOngoing {
		return repository.ErrVersionConflict
	}
	a.Status = model.AuctionEnded
	a.Version++
	a.UpdatedAt = at
	s.m.auctions[id] = a
	s.m.markEnded++
	return nil
}

type memBids struct{ m *memStore }

func (s memBids) ListByAuction(_ context.Context, auctionID uint64) ([]model.Bid, error) {
	out := s.m.bidsFor(auctionID)
	if out == nil {
		out = []model.Bid{}
	}
	return out, nil
}

func (s memBids) SummariesByBidder(_ context.Context, bidderID uint64) ([]model.BidSummary, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	byAuction := map[uint64]*model.BidSummary{}
	var order []uint64
	for _, b := range s.m.bids {
		if b.BidderID != bidderID {
			continue
		}
		sum, ok := byAuction[b.AuctionID]
		if !ok {
			a := s.m.auctions[b.AuctionID]
			sum = &model.BidSummary{
				AuctionID:       a.ID,
				ItemID:          a.ItemID,
				ItemName:        s.m.items[a.ItemID].Name,
				CurrentPrice:    a.CurrentPrice,
				HighestBidderID: a.HighestBidderID,
				Status:          a.Status,
				EndsAt:          a.EndsAt,
			}
			byAuction[b.AuctionID] = sum
			order = append(order, b.AuctionID)
		}
		if b.Amount > sum.MaxAmount {
			sum.MaxAmount = b.Amount
		}
		if b.PlacedAt.After(sum.LastBidAt) {
			sum.LastBidAt = b.PlacedAt
		}
	}
	out := make([]model.BidSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byAuction[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastBidAt.After(out[j].LastBidAt) })
	return out, nil
}

type memUsers struct{ m *memStore }

func (s memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

type memItems struct{ m *memStore }

func (s memItems) GetByID(_ context.Context, id uint64) (*model.Item, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	it, ok := s.m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &it, nil
}

type memPayments struct{ m *memStore }

func (s memPayments) Create(_ context.Context, p *model.Payment) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.payments {
		if existing.AuctionID == p.AuctionID {
			return repository.ErrDuplicate
		}
	}
	s.m.payments[p.ID] = *p
	return nil
}

func (s memPayments) GetByID(_ context.Context, id string) (*model.Payment, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

// recorder is a notify.Publisher that remembers every event.
type recorder struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, _ uint64, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) count(t notify.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// fixedClock returns a clock frozen at *now so tests can move it.
func fixedClock(now *time.Time) Clock { return func() time.Time { return *now } }

// fixture seeds one ONGOING auction (id 1, item 10, price 150, ends in two
// hours) and users 1..3.
type fixture struct {
	mem   *memStore
	pub   *recorder
	now   time.Time
	opts  Options
	store Store
}

func newFixture() *fixture {
	f := &fixture{mem: newMemStore(), pub: &recorder{}, now: t0}
	f.opts = Options{Clock: fixedClock(&f.now)}
	f.store = f.mem.store()
	f.mem.putItem(model.Item{
		ID: 10, SellerID: 9, Name: "Vintage camera", Description: "Leica M3", Type: "FORWARD",
		BaseShipCost: decimal.RequireFromString("18.50"), ExpeditedCost: decimal.RequireFromString("32.00"),
	})
	for id, name := range map[uint64][2]string{1: {"Ada", "Lovelace"}, 2: {"Alan", "Turing"}, 3: {"Grace", "Hopper"}} {
		f.mem.putUser(model.User{ID: id, FirstName: name[0], LastName: name[1], Address: model.Address{
			StreetNumber: "12", StreetName: "Main St", City: "Toronto", Country: "CA", PostalCode: "M5V 2T6",
		}})
	}
	f.mem.putAuction(model.Auction{
		ID: 1, ItemID: 10, StartPrice: 150, CurrentPrice: 150,
		StartsAt: t0.Add(-time.Hour), EndsAt: t0.Add(2 * time.Hour),
		Status: model.AuctionOngoing, CreatedAt: t0.Add(-time.Hour), UpdatedAt: t0.Add(-time.Hour),
	})
	return f
}
