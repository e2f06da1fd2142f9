// README: In-memory repositories mirroring the stores' CAS semantics for tests.
package testutil

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"bazaar/internal/modules/delivery"
	"bazaar/internal/modules/order"
)

// MemOrderRepo implements order.Repository with the same compare-and-swap
// behavior as the Postgres store, so concurrency tests exercise the real
// contract without a database.
type MemOrderRepo struct {
	mu       sync.Mutex
	nextID   int64
	orders   map[int64]*order.Order
	items    map[int64][]order.OrderItem
	sellers  map[int64][]order.SellerOrder
	tracking map[int64][]order.TrackingEntry
	seq      int64 // tracking entry ids
	sellerID int64
}

func NewMemOrderRepo() *MemOrderRepo {
	return &MemOrderRepo{
		orders:   make(map[int64]*order.Order),
		items:    make(map[int64][]order.OrderItem),
		sellers:  make(map[int64][]order.SellerOrder),
		tracking: make(map[int64][]order.TrackingEntry),
	}
}

func (r *MemOrderRepo) CreateOrder(_ context.Context, o *order.Order, items []order.OrderItem, sellers []order.SellerOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	o.ID = r.nextID
	o.OrderNumber = strconv.FormatInt(o.ID, 10)
	cp := *o
	r.orders[o.ID] = &cp

	for i := range items {
		items[i].OrderID = o.ID
		r.seq++
		items[i].ID = r.seq
	}
	r.items[o.ID] = append([]order.OrderItem(nil), items...)

	for i := range sellers {
		sellers[i].OrderID = o.ID
		r.sellerID++
		sellers[i].ID = r.sellerID
	}
	r.sellers[o.ID] = append([]order.SellerOrder(nil), sellers...)
	return nil
}

func (r *MemOrderRepo) GetOrder(_ context.Context, id int64) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *MemOrderRepo) ListOrdersByCustomer(_ context.Context, customerID string) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []order.Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemOrderRepo) OrderItems(_ context.Context, orderID int64) ([]order.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]order.OrderItem(nil), r.items[orderID]...), nil
}

func (r *MemOrderRepo) AppendTracking(_ context.Context, e *order.TrackingEntry, next *order.Status, version int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[e.OrderID]
	if !ok {
		return false, order.ErrNotFound
	}
	if next != nil {
		if o.StatusVersion != version {
			return false, nil
		}
		o.Status = *next
		o.StatusVersion++
		o.UpdatedAt = e.CreatedAt
	}
	r.seq++
	e.ID = r.seq
	r.tracking[e.OrderID] = append(r.tracking[e.OrderID], *e)
	return true, nil
}

func (r *MemOrderRepo) ListTracking(_ context.Context, orderID int64, desc bool, limit int) ([]order.TrackingEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := append([]order.TrackingEntry(nil), r.tracking[orderID]...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	if desc {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *MemOrderRepo) SetOTP(_ context.Context, orderID int64, otp string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return false, order.ErrNotFound
	}
	if o.ParcelOTP != nil {
		return false, nil
	}
	o.ParcelOTP = &otp
	return true, nil
}

func (r *MemOrderRepo) BindAgent(_ context.Context, orderID, agentID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return false, order.ErrNotFound
	}
	if o.DeliveryAgentID != nil {
		return false, nil
	}
	o.DeliveryAgentID = &agentID
	return true, nil
}

func (r *MemOrderRepo) MarkDelivered(_ context.Context, orderID int64, version int, deliveredAt time.Time, e *order.TrackingEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return false, order.ErrNotFound
	}
	if o.Status != order.StatusOutForDelivery || o.StatusVersion != version {
		return false, nil
	}
	o.Status = order.StatusDelivered
	o.StatusVersion++
	o.ActualDeliveryTime = &deliveredAt
	o.UpdatedAt = deliveredAt

	r.seq++
	e.ID = r.seq
	r.tracking[orderID] = append(r.tracking[orderID], *e)
	return true, nil
}

func (r *MemOrderRepo) SetEstimatedDelivery(_ context.Context, orderID int64, eta time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return order.ErrNotFound
	}
	o.EstimatedDeliveryTime = &eta
	return nil
}

func (r *MemOrderRepo) SetStatus(_ context.Context, orderID int64, status order.Status, version int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return false, order.ErrNotFound
	}
	if o.StatusVersion != version {
		return false, nil
	}
	o.Status = status
	o.StatusVersion++
	return true, nil
}

func (r *MemOrderRepo) SellerOrders(_ context.Context, orderID int64) ([]order.SellerOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]order.SellerOrder(nil), r.sellers[orderID]...), nil
}

func (r *MemOrderRepo) GetSellerOrder(_ context.Context, id int64) (*order.SellerOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, list := range r.sellers {
		for _, so := range list {
			if so.ID == id {
				cp := so
				return &cp, nil
			}
		}
	}
	return nil, order.ErrNotFound
}

func (r *MemOrderRepo) SetSellerOrderStatus(_ context.Context, id int64, status order.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for orderID, list := range r.sellers {
		for i := range list {
			if list[i].ID == id {
				list[i].Status = status
				list[i].UpdatedAt = time.Now()
				r.sellers[orderID] = list
				return nil
			}
		}
	}
	return order.ErrNotFound
}

// MemAgentRepo implements delivery.AgentRepository.
type MemAgentRepo struct {
	mu     sync.Mutex
	nextID int64
	agents map[int64]*delivery.Agent
	geo    map[int64]delivery.Point
}

func NewMemAgentRepo() *MemAgentRepo {
	return &MemAgentRepo{
		agents: make(map[int64]*delivery.Agent),
		geo:    make(map[int64]delivery.Point),
	}
}

func (r *MemAgentRepo) CreateAgent(_ context.Context, a *delivery.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	a.ID = r.nextID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.UpdatedAt = a.CreatedAt
	cp := *a
	r.agents[a.ID] = &cp
	return nil
}

func (r *MemAgentRepo) GetAgent(_ context.Context, id int64) (*delivery.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return nil, delivery.ErrAgentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemAgentRepo) FirstAvailable(ctx context.Context) (*delivery.Agent, error) {
	list, err := r.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, delivery.ErrNoAgentAvailable
	}
	return &list[0], nil
}

func (r *MemAgentRepo) ListAvailable(_ context.Context) ([]delivery.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []delivery.Agent
	for _, a := range r.agents {
		if a.IsAvailable {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemAgentRepo) SetAvailability(_ context.Context, id int64, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return delivery.ErrAgentNotFound
	}
	a.IsAvailable = available
	a.UpdatedAt = time.Now()
	return nil
}

func (r *MemAgentRepo) SetLocation(_ context.Context, id int64, p delivery.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.geo[id] = p
	return nil
}

func (r *MemAgentRepo) Location(_ context.Context, id int64) (delivery.Point, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.geo[id]
	return p, ok, nil
}
