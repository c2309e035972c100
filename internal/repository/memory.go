package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/anyulbade/furniture-credit/internal/model"
)

// MemoryStore keeps every aggregate in process. It honours the same
// contracts as the Postgres repositories (not-found errors, version checks,
// non-negative stock) and is used with STORE_DRIVER=memory and in tests.
type MemoryStore struct {
	Orders         *MemoryOrders
	Products       *MemoryProducts
	Users          *MemoryUsers
	Settings       *MemorySettings
	CreditRequests *MemoryCreditRequests
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Orders:         &MemoryOrders{byID: map[string]*model.Order{}},
		Products:       &MemoryProducts{byID: map[string]*model.Product{}},
		Users:          &MemoryUsers{byID: map[string]*model.User{}},
		Settings:       &MemorySettings{},
		CreditRequests: &MemoryCreditRequests{},
	}
}

func cloneOrder(o *model.Order) *model.Order {
	raw, err := json.Marshal(o)
	if err != nil {
		panic(fmt.Sprintf("clone order %s: %v", o.ID, err))
	}
	var out model.Order
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("clone order %s: %v", o.ID, err))
	}
	return &out
}

type MemoryOrders struct {
	mu   sync.RWMutex
	byID map[string]*model.Order
}

func (s *MemoryOrders) Create(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[o.ID]; ok {
		return &pgconn.PgError{Code: "23505", Message: "duplicate order id"}
	}
	o.Version = 1
	s.byID[o.ID] = cloneOrder(o)
	return nil
}

func (s *MemoryOrders) FindByID(_ context.Context, id string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *MemoryOrders) FindByReservationID(_ context.Context, reservationID string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.byID {
		if o.Payment.Credit != nil && o.Payment.Credit.ReservationID == reservationID {
			return cloneOrder(o), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryOrders) Update(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[o.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != o.Version {
		return ErrVersionConflict
	}
	o.Version++
	s.byID[o.ID] = cloneOrder(o)
	return nil
}

func (s *MemoryOrders) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *MemoryOrders) List(_ context.Context, f OrderFilter) ([]model.Order, int, error) {
	s.mu.RLock()
	var matched []*model.Order
	for _, o := range s.byID {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.CreditOnly && !o.IsCredit() {
			continue
		}
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		matched = append(matched, cloneOrder(o))
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := min(f.Offset, total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}

	out := make([]model.Order, 0, end-start)
	for _, o := range matched[start:end] {
		out = append(out, *o)
	}
	return out, total, nil
}

func (s *MemoryOrders) ListByCreditStatus(_ context.Context, statuses ...model.ReservationStatus) ([]model.Order, error) {
	s.mu.RLock()
	var out []model.Order
	for _, o := range s.byID {
		if o.Payment.Credit != nil && slices.Contains(statuses, o.Payment.Credit.Status) {
			out = append(out, *cloneOrder(o))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type MemoryProducts struct {
	mu   sync.RWMutex
	byID map[string]*model.Product
}

func (s *MemoryProducts) Create(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	cp.Images = slices.Clone(p.Images)
	s.byID[p.ID] = &cp
	return nil
}

func (s *MemoryProducts) FindByID(_ context.Context, id string) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	cp.Images = slices.Clone(p.Images)
	return &cp, nil
}

func (s *MemoryProducts) IncrementStock(_ context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if p.StockQuantity+delta < 0 {
		return fmt.Errorf("adjust stock for %s: %w", id,
			&pgconn.PgError{Code: "23514", Message: "stock_quantity cannot go negative"})
	}
	p.StockQuantity += delta
	return nil
}

type MemoryUsers struct {
	mu   sync.RWMutex
	byID map[string]*model.User
}

func (s *MemoryUsers) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.byID[u.ID] = &cp
	return nil
}

func (s *MemoryUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type MemorySettings struct {
	mu      sync.Mutex
	current *model.Settings
}

func (s *MemorySettings) Get(_ context.Context) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		d := model.DefaultSettings()
		s.current = &d
	}
	return *s.current, nil
}

func (s *MemorySettings) Save(_ context.Context, settings model.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &settings
	return nil
}

type MemoryCreditRequests struct {
	mu   sync.RWMutex
	list []model.CreditRequest
}

func (s *MemoryCreditRequests) Create(_ context.Context, cr *model.CreditRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, *cr)
	return nil
}

func (s *MemoryCreditRequests) ListByUser(_ context.Context, userID string) ([]model.CreditRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.CreditRequest
	for i := len(s.list) - 1; i >= 0; i-- {
		if s.list[i].UserID == userID {
			out = append(out, s.list[i])
		}
	}
	return out, nil
}
