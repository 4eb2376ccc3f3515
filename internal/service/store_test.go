package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/activity"
	"github.com/Strob0t/TourBridge/internal/domain/capacity"
	"github.com/Strob0t/TourBridge/internal/domain/fulfillment"
	"github.com/Strob0t/TourBridge/internal/domain/partnership"
	"github.com/Strob0t/TourBridge/internal/domain/request"
	"github.com/Strob0t/TourBridge/internal/domain/reservation"
	"github.com/Strob0t/TourBridge/internal/domain/settlement"
	"github.com/Strob0t/TourBridge/internal/domain/tenant"
	"github.com/Strob0t/TourBridge/internal/port/database"
)

// Ensure mockStore implements database.Store at compile time.
var (
	_ database.Store  = (*mockStore)(nil)
	_ database.SlotTx = (*mockTx)(nil)
)

// mockStore is an in-memory database.Store. Slot transactions serialise on a
// per-slot mutex and buffer their writes until the callback returns nil, so
// concurrent approvals and duplicate conversions behave like the real store.
type mockStore struct {
	mu     sync.Mutex
	nextID int64

	tenants      map[int64]tenant.Tenant
	keys         map[int64]tenant.APIKey
	activities   map[int64]activity.Activity
	slots        map[capacity.Key]capacity.Slot
	partnerships map[int64]partnership.Partnership
	shares       map[[2]int64]partnership.Share
	requests     map[int64]request.Request
	reservations map[int64]reservation.Reservation
	transactions map[int64]settlement.Transaction
	dispatches   []fulfillment.DispatchRecord

	slotLocks map[capacity.Key]*sync.Mutex

	// Counters and error hooks.
	keyLookups       int
	createRequestErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		tenants:      map[int64]tenant.Tenant{},
		keys:         map[int64]tenant.APIKey{},
		activities:   map[int64]activity.Activity{},
		slots:        map[capacity.Key]capacity.Slot{},
		partnerships: map[int64]partnership.Partnership{},
		shares:       map[[2]int64]partnership.Share{},
		requests:     map[int64]request.Request{},
		reservations: map[int64]reservation.Reservation{},
		transactions: map[int64]settlement.Transaction{},
		slotLocks:    map[capacity.Key]*sync.Mutex{},
	}
}

func (m *mockStore) id() int64 {
	m.nextID++
	return m.nextID
}

// booked derives the booked count of key. Callers hold m.mu.
func (m *mockStore) booked(key capacity.Key) int {
	n := 0
	for _, r := range m.reservations {
		if r.SlotKey() == key && r.Status == reservation.StatusConfirmed {
			n += r.Guests
		}
	}
	for _, r := range m.requests {
		if r.SlotKey() == key && r.HoldsCapacity() {
			n += r.Guests
		}
	}
	return n
}

// --- Tenants ---

func (m *mockStore) CreateTenant(_ context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.Slug == req.Slug {
			return nil, fmt.Errorf("create tenant %s: %w", req.Slug, domain.ErrConflict)
		}
	}
	t := tenant.Tenant{ID: m.id(), Name: req.Name, Slug: req.Slug, ContactPhone: req.ContactPhone, Enabled: true, CreatedAt: time.Now()}
	m.tenants[t.ID] = t
	return &t, nil
}

func (m *mockStore) GetTenant(_ context.Context, id int64) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (m *mockStore) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]tenant.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) UpdateTenant(_ context.Context, id int64, req tenant.UpdateRequest) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if req.Name != "" {
		t.Name = req.Name
	}
	if req.ContactPhone != nil {
		t.ContactPhone = *req.ContactPhone
	}
	if req.Enabled != nil {
		t.Enabled = *req.Enabled
	}
	m.tenants[id] = t
	return &t, nil
}

func (m *mockStore) CreateAPIKey(_ context.Context, tenantID int64, prefix, hash string) (*tenant.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := tenant.APIKey{ID: m.id(), TenantID: tenantID, Prefix: prefix, Hash: hash, CreatedAt: time.Now()}
	m.keys[k.ID] = k
	return &k, nil
}

func (m *mockStore) GetAPIKeyByPrefix(_ context.Context, prefix string) (*tenant.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keyLookups++
	for _, k := range m.keys {
		if k.Prefix == prefix {
			return &k, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) RevokeAPIKey(_ context.Context, tenantID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[id]
	if !ok || k.TenantID != tenantID || k.RevokedAt != nil {
		return domain.ErrNotFound
	}
	now := time.Now()
	k.RevokedAt = &now
	m.keys[id] = k
	return nil
}

// --- Activities and capacity ---

func (m *mockStore) CreateActivity(_ context.Context, tenantID int64, req activity.CreateRequest) (*activity.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := activity.Activity{
		ID: m.id(), TenantID: tenantID, Name: req.Name, UnitPrice: req.UnitPrice,
		Currency: req.Currency, DefaultCapacity: req.DefaultCapacity, CreatedAt: time.Now(),
	}
	m.activities[a.ID] = a
	return &a, nil
}

func (m *mockStore) GetActivity(_ context.Context, id int64) (*activity.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (m *mockStore) ListActivities(_ context.Context, tenantID int64) ([]activity.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []activity.Activity
	for _, a := range m.activities {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) ListSlots(_ context.Context, tenantID, activityID int64, from, to string) ([]capacity.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []capacity.Slot
	for k, sl := range m.slots {
		if k.TenantID == tenantID && k.ActivityID == activityID && k.Date >= from && k.Date <= to {
			sl.BookedSlots = m.booked(k)
			out = append(out, sl)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (m *mockStore) InSlotTx(_ context.Context, key capacity.Key, fn func(tx database.SlotTx) error) error {
	m.mu.Lock()
	lock, ok := m.slotLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.slotLocks[key] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	a, ok := m.activities[key.ActivityID]
	if !ok || a.TenantID != key.TenantID {
		m.mu.Unlock()
		return fmt.Errorf("lock slot %s: %w", key, domain.ErrNotFound)
	}
	sl, ok := m.slots[key]
	if !ok {
		sl = capacity.Slot{Key: key, TotalSlots: a.DefaultCapacity}
		m.slots[key] = sl
	}
	sl.BookedSlots = m.booked(key)
	m.mu.Unlock()

	tx := &mockTx{m: m, slot: sl, requests: map[int64]request.Request{}, statuses: map[int64]reservation.Status{}}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// --- Partnerships ---

func (m *mockStore) CreatePartnership(_ context.Context, requesterID, partnerID int64) (*partnership.Partnership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.partnerships {
		if p.IsParty(requesterID) && p.IsParty(partnerID) {
			return nil, domain.ErrConflict
		}
	}
	p := partnership.Partnership{ID: m.id(), RequesterTenantID: requesterID, PartnerTenantID: partnerID, Status: partnership.StatusPending}
	m.partnerships[p.ID] = p
	return &p, nil
}

func (m *mockStore) GetPartnership(_ context.Context, id int64) (*partnership.Partnership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.partnerships[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *mockStore) FindPartnership(_ context.Context, a, b int64) (*partnership.Partnership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.partnerships {
		if p.IsParty(a) && p.IsParty(b) {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListPartnerships(_ context.Context, tenantID int64) ([]partnership.Partnership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []partnership.Partnership
	for _, p := range m.partnerships {
		if p.IsParty(tenantID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockStore) UpdatePartnership(_ context.Context, p *partnership.Partnership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.partnerships[p.ID]
	if !ok || cur.Version != p.Version {
		return domain.ErrConflict
	}
	p.Version++
	m.partnerships[p.ID] = *p
	return nil
}

func (m *mockStore) UpsertShare(_ context.Context, s *partnership.Share) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shares[[2]int64{s.ActivityID, s.PartnershipID}] = *s
	return nil
}

func (m *mockStore) DeleteShare(_ context.Context, activityID, partnershipID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [2]int64{activityID, partnershipID}
	if _, ok := m.shares[k]; !ok {
		return domain.ErrNotFound
	}
	delete(m.shares, k)
	return nil
}

func (m *mockStore) ListShares(_ context.Context, partnershipID int64) ([]partnership.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []partnership.Share
	for _, s := range m.shares {
		if s.PartnershipID == partnershipID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActivityID < out[j].ActivityID })
	return out, nil
}

// visible reports whether viewerID sees s. Callers hold m.mu.
func (m *mockStore) visible(s partnership.Share, viewerID int64) bool {
	p, ok := m.partnerships[s.PartnershipID]
	return ok && p.Status == partnership.StatusActive && p.IsParty(viewerID) && s.OwnerTenantID != viewerID
}

func (m *mockStore) ListVisibleShares(_ context.Context, viewerID int64) ([]database.VisibleShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.VisibleShare
	for _, s := range m.shares {
		if !m.visible(s, viewerID) {
			continue
		}
		out = append(out, database.VisibleShare{
			Share:     s,
			Activity:  m.activities[s.ActivityID],
			OwnerName: m.tenants[s.OwnerTenantID].Name,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OwnerName != out[j].OwnerName {
			return out[i].OwnerName < out[j].OwnerName
		}
		return out[i].Activity.Name < out[j].Activity.Name
	})
	return out, nil
}

func (m *mockStore) FindVisibleShare(_ context.Context, activityID, viewerID int64) (*partnership.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shares {
		if s.ActivityID == activityID && m.visible(s, viewerID) {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

// --- Requests ---

func (m *mockStore) CreateRequest(_ context.Context, r *request.Request) error {
	if m.createRequestErr != nil {
		return m.createRequestErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id()
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	m.requests[r.ID] = *r
	return nil
}

func (m *mockStore) GetRequest(_ context.Context, id int64) (*request.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m *mockStore) ListRequests(_ context.Context, f database.RequestFilter) ([]request.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []request.Request
	for _, r := range m.requests {
		if f.OwnerTenantID != 0 && r.OwnerTenantID != f.OwnerTenantID {
			continue
		}
		if f.OriginTenantID != 0 && r.OriginTenantID != f.OriginTenantID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) UpdateRequest(_ context.Context, r *request.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.requests[r.ID]
	if !ok || cur.Version != r.Version {
		return fmt.Errorf("update request %d: %w", r.ID, domain.ErrConflict)
	}
	r.Version++
	m.requests[r.ID] = *r
	return nil
}

// --- Reservations ---

func (m *mockStore) GetReservation(_ context.Context, id int64) (*reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m *mockStore) GetReservationByToken(_ context.Context, token string) (*reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.TrackingToken == token {
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListReservations(_ context.Context, tenantID int64, from, to string) ([]reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []reservation.Reservation
	for _, r := range m.reservations {
		if r.TenantID == tenantID && r.Date >= from && r.Date <= to {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Settlement ---

func (m *mockStore) GetTransaction(_ context.Context, id int64) (*settlement.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (m *mockStore) ListTransactions(_ context.Context, tenantID int64, includeRetired bool) ([]settlement.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []settlement.Transaction
	for _, t := range m.transactions {
		if !t.IsParty(tenantID) || (!includeRetired && t.Status == settlement.StatusRetired) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) UpdateTransaction(_ context.Context, t *settlement.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.transactions[t.ID]
	if !ok || cur.Version != t.Version {
		return fmt.Errorf("update transaction %d: %w", t.ID, domain.ErrConflict)
	}
	t.Version++
	m.transactions[t.ID] = *t
	return nil
}

// --- Fulfillment ---

func (m *mockStore) CreateDispatch(_ context.Context, d *fulfillment.DispatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = m.id()
	m.dispatches = append(m.dispatches, *d)
	return nil
}

func (m *mockStore) ListDispatches(_ context.Context, tenantID int64, date string) ([]fulfillment.DispatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []fulfillment.DispatchRecord
	for _, d := range m.dispatches {
		if d.TenantID == tenantID && d.Date == date {
			out = append(out, d)
		}
	}
	return out, nil
}

// mockTx buffers the writes of one slot transaction.
type mockTx struct {
	m            *mockStore
	slot         capacity.Slot
	total        *int
	requests     map[int64]request.Request
	inserted     []reservation.Reservation
	statuses     map[int64]reservation.Status
	transactions []settlement.Transaction
}

func (t *mockTx) Slot() capacity.Slot { return t.slot }

func (t *mockTx) SetTotal(_ context.Context, total int) error {
	t.total = &total
	t.slot.TotalSlots = total
	return nil
}

func (t *mockTx) LockRequest(_ context.Context, id int64) (*request.Request, error) {
	if r, ok := t.requests[id]; ok {
		return &r, nil
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	r, ok := t.m.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (t *mockTx) UpdateRequest(_ context.Context, r *request.Request) error {
	r.Version++
	t.requests[r.ID] = *r
	return nil
}

func (t *mockTx) LockReservation(_ context.Context, id int64) (*reservation.Reservation, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	r, ok := t.m.reservations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (t *mockTx) InsertReservation(_ context.Context, r *reservation.Reservation) error {
	t.m.mu.Lock()
	r.ID = t.m.id()
	t.m.mu.Unlock()
	r.CreatedAt = time.Now()
	t.inserted = append(t.inserted, *r)
	return nil
}

func (t *mockTx) UpdateReservationStatus(_ context.Context, id int64, status reservation.Status) error {
	t.statuses[id] = status
	return nil
}

func (t *mockTx) FindReservationByExternalRef(_ context.Context, tenantID int64, ref string) (*reservation.Reservation, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for _, r := range t.m.reservations {
		if r.TenantID == tenantID && r.ExternalRef == ref {
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (t *mockTx) InsertTransaction(_ context.Context, tr *settlement.Transaction) error {
	t.m.mu.Lock()
	tr.ID = t.m.id()
	t.m.mu.Unlock()
	tr.CreatedAt = time.Now()
	t.transactions = append(t.transactions, *tr)
	return nil
}

// commit applies the buffered writes, enforcing the unique constraints on
// reservation and transaction request ids.
func (t *mockTx) commit() error {
	m := t.m
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range t.inserted {
		for _, existing := range m.reservations {
			if r.RequestID != nil && existing.RequestID != nil && *r.RequestID == *existing.RequestID {
				return fmt.Errorf("insert reservation: %w", domain.ErrConflict)
			}
			if r.ExternalRef != "" && existing.TenantID == r.TenantID && existing.ExternalRef == r.ExternalRef {
				return fmt.Errorf("insert reservation: %w", domain.ErrConflict)
			}
		}
	}
	for _, tr := range t.transactions {
		for _, existing := range m.transactions {
			if existing.RequestID == tr.RequestID {
				return fmt.Errorf("insert transaction: %w", domain.ErrConflict)
			}
		}
	}

	if t.total != nil {
		sl := m.slots[t.slot.Key]
		sl.TotalSlots = *t.total
		sl.Version++
		m.slots[t.slot.Key] = sl
	}
	for id, r := range t.requests {
		m.requests[id] = r
	}
	for _, r := range t.inserted {
		m.reservations[r.ID] = r
	}
	for id, st := range t.statuses {
		r := m.reservations[id]
		r.Status = st
		m.reservations[id] = r
	}
	for _, tr := range t.transactions {
		m.transactions[tr.ID] = tr
	}
	return nil
}
