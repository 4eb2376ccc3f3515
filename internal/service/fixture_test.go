package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/Strob0t/TourBridge/internal/config"
	"github.com/Strob0t/TourBridge/internal/domain/activity"
	"github.com/Strob0t/TourBridge/internal/domain/partnership"
	"github.com/Strob0t/TourBridge/internal/domain/request"
	"github.com/Strob0t/TourBridge/internal/domain/tenant"
	"github.com/Strob0t/TourBridge/internal/port/messagequeue"
	"github.com/Strob0t/TourBridge/internal/port/notifier"
	"github.com/Strob0t/TourBridge/internal/resilience"
)

// --- Fakes ---

type published struct {
	subject string
	data    []byte
}

type mockQueue struct {
	mu         sync.Mutex
	published  []published
	handlers   map[string]messagequeue.Handler
	publishErr error
}

var _ messagequeue.Queue = (*mockQueue)(nil)

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, published{subject: subject, data: data})
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.handlers == nil {
		q.handlers = map[string]messagequeue.Handler{}
	}
	q.handlers[subject] = h
	return func() {
		q.mu.Lock()
		delete(q.handlers, subject)
		q.mu.Unlock()
	}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

func (q *mockQueue) subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.published))
	for _, p := range q.published {
		out = append(out, p.subject)
	}
	return out
}

type hubEvent struct {
	eventType string
	payload   any
	tenants   []int64
}

type mockHub struct {
	mu     sync.Mutex
	events []hubEvent
}

func (h *mockHub) BroadcastToTenants(_ context.Context, eventType string, payload any, tenantIDs ...int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, hubEvent{eventType: eventType, payload: payload, tenants: tenantIDs})
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []notifier.Message
	err  error
}

func (n *mockNotifier) Name() string { return "mock" }

func (n *mockNotifier) Send(_ context.Context, msg notifier.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *mockNotifier) messages() []notifier.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifier.Message(nil), n.sent...)
}

// --- Fixture ---

const (
	testDate = "2026-06-01"
	testTime = "06:00"
)

// fixture wires every service on one mockStore with an owner tenant whose
// balloon flight is shared with an active partner, plus an outsider.
type fixture struct {
	store *mockStore
	queue *mockQueue
	hub   *mockHub
	sms   *mockNotifier

	tenants      *TenantService
	activities   *ActivityService
	capacity     *CapacityService
	partnerships *PartnershipService
	requests     *RequestService
	settlement   *SettlementService
	reservations *ReservationService
	tracking     *TrackingService
	fulfillment  *FulfillmentService

	owner, sender, outsider int64
	flight                  *activity.Activity
	partnership             *partnership.Partnership
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{store: newMockStore(), queue: &mockQueue{}, hub: &mockHub{}, sms: &mockNotifier{}}
	events := NewEvents(f.queue, f.hub)
	notify := NewNotificationService(f.sms, resilience.NewBreaker(3, time.Minute), config.Notifier{MaxInFlight: 2, Timeout: time.Second}, nil)

	f.tenants = NewTenantService(f.store, nil, config.Auth{BcryptCost: bcrypt.MinCost})
	f.activities = NewActivityService(f.store)
	f.capacity = NewCapacityService(f.store, events, nil)
	f.partnerships = NewPartnershipService(f.store, events)
	f.requests = NewRequestService(f.store, events, notify, "https://tourbridge.test/track/", nil)
	f.settlement = NewSettlementService(f.store, events)
	f.tracking = NewTrackingService(f.store, nil, time.Minute, nil)
	f.reservations = NewReservationService(f.store, events, f.tracking, nil)
	var err error
	f.fulfillment, err = NewFulfillmentService(f.store, "lenient", nil)
	if err != nil {
		t.Fatal(err)
	}

	f.owner = mustTenant(t, f.tenants, "Kapadokya Balloons", "kapadokya-balloons", "+905320000001")
	f.sender = mustTenant(t, f.tenants, "Göreme Travel", "goreme-travel", "+905320000002")
	f.outsider = mustTenant(t, f.tenants, "Ürgüp Tours", "urgup-tours", "")

	f.flight, err = f.activities.Create(ctx, f.owner, activity.CreateRequest{
		Name: "Sunrise Balloon Flight", UnitPrice: decimal.NewFromInt(1000), Currency: "TRY", DefaultCapacity: 10,
	})
	if err != nil {
		t.Fatal(err)
	}

	p, err := f.partnerships.Create(ctx, f.sender, partnership.CreateRequest{PartnerTenantID: f.owner})
	if err != nil {
		t.Fatal(err)
	}
	if p, err = f.partnerships.Accept(ctx, f.owner, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.partnerships.Share(ctx, f.owner, p.ID, partnership.ShareRequest{ActivityID: f.flight.ID}); err != nil {
		t.Fatal(err)
	}
	f.partnership = p
	return f
}

func mustTenant(t *testing.T, s *TenantService, name, slug, phone string) int64 {
	t.Helper()
	tn, err := s.Create(context.Background(), tenant.CreateRequest{Name: name, Slug: slug, ContactPhone: phone})
	if err != nil {
		t.Fatal(err)
	}
	return tn.ID
}

// newRequest files a receiver_full request from the partner for guests.
func (f *fixture) newRequest(t *testing.T, guests int) *request.Request {
	t.Helper()
	res, err := f.requests.Create(context.Background(), f.sender, f.createReq(guests))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return res.Request
}

func (f *fixture) createReq(guests int) request.CreateRequest {
	return request.CreateRequest{
		OwnerTenantID: f.owner,
		ActivityID:    f.flight.ID,
		Date:          testDate,
		Time:          testTime,
		CustomerName:  "Ayşe Demir",
		CustomerPhone: "+905551112233",
		Guests:        guests,
	}
}

// approved files and approves a request.
func (f *fixture) approved(t *testing.T, guests int) *request.Request {
	t.Helper()
	r := f.newRequest(t, guests)
	res, err := f.requests.Approve(context.Background(), f.owner, r.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	return res.Request
}

func (f *fixture) available(t *testing.T) int {
	t.Helper()
	v, err := f.capacity.Get(context.Background(), f.owner, f.flight.ID, testDate, testTime)
	if err != nil {
		t.Fatal(err)
	}
	return v.AvailableSlots
}

// memCache is an in-memory cache.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.get(key)
	return v, ok, nil
}

func (m *memCache) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
