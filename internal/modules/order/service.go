// README: Order service implements the lifecycle state machine, tracking log, and OTP gate.
package order

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"bazaar/internal/modules/pricing"
	"bazaar/internal/types"
)

var (
	ErrNotFound     = fmt.Errorf("order not found")
	ErrBadRequest   = fmt.Errorf("bad request")
	ErrConflict     = fmt.Errorf("order state conflict")
	ErrInvalidState = fmt.Errorf("invalid order state")
	ErrInvalidOTP   = fmt.Errorf("invalid otp")
	ErrForbidden    = fmt.Errorf("order not assigned to this agent")
)

// Repository is the persistence contract for orders, seller orders, and the
// tracking log. The CAS-returning methods report false when a concurrent
// writer won; callers translate that into ErrConflict.
type Repository interface {
	CreateOrder(ctx context.Context, o *Order, items []OrderItem, sellers []SellerOrder) error
	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]Order, error)
	OrderItems(ctx context.Context, orderID int64) ([]OrderItem, error)

	AppendTracking(ctx context.Context, e *TrackingEntry, next *Status, version int) (bool, error)
	ListTracking(ctx context.Context, orderID int64, desc bool, limit int) ([]TrackingEntry, error)

	SetOTP(ctx context.Context, orderID int64, otp string) (bool, error)
	BindAgent(ctx context.Context, orderID, agentID int64) (bool, error)
	MarkDelivered(ctx context.Context, orderID int64, version int, deliveredAt time.Time, e *TrackingEntry) (bool, error)
	SetEstimatedDelivery(ctx context.Context, orderID int64, eta time.Time) error
	SetStatus(ctx context.Context, orderID int64, status Status, version int) (bool, error)

	SellerOrders(ctx context.Context, orderID int64) ([]SellerOrder, error)
	GetSellerOrder(ctx context.Context, id int64) (*SellerOrder, error)
	SetSellerOrderStatus(ctx context.Context, id int64, status Status) error
}

// Pricer supplies the monetary breakdown at placement time.
type Pricer interface {
	QuoteOrder(subtotal int64) pricing.Quote
	Commission(sellerSubtotal int64) types.Money
	NetPayable(sellerSubtotal int64) types.Money
}

// Notifier receives fire-and-forget push events. Implementations must never
// block; failures stay inside the notifier.
type Notifier interface {
	Push(target string, eventType, title, message string, payload map[string]any)
}

type Service struct {
	repo       Repository
	pricing    Pricer
	notifier   Notifier
	defaultETA time.Duration
}

func NewService(repo Repository, pricer Pricer, notifier Notifier, defaultETA time.Duration) *Service {
	return &Service{repo: repo, pricing: pricer, notifier: notifier, defaultETA: defaultETA}
}

type ItemInput struct {
	ProductID string
	SellerID  string
	Name      string
	ImageURL  string
	Category  string
	UnitPrice int64
	Quantity  int
}

type CreateCommand struct {
	CustomerID           string
	CustomerName         string
	CustomerPhone        string
	Address              string
	City                 string
	Area                 string
	Locality             string
	PaymentMethod        string
	DeliveryInstructions string
	Items                []ItemInput
}

type TrackCommand struct {
	OrderID     int64
	Status      TrackingStatus
	Description string
	Location    string
}

type VerifyCommand struct {
	OrderID int64
	AgentID int64
	OTP     string
}

// Create places an order: snapshots the customer contact, prices the items,
// splits them per seller, and appends the initial ORDER_PLACED entry. The
// total is always recomputed here, never taken from the caller.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if cmd.CustomerID == "" || cmd.CustomerName == "" || cmd.Address == "" || len(cmd.Items) == 0 {
		return nil, ErrBadRequest
	}

	var subtotal int64
	items := make([]OrderItem, 0, len(cmd.Items))
	sellerSubtotals := map[string]int64{}
	var sellerIDs []string
	for _, in := range cmd.Items {
		if in.ProductID == "" || in.SellerID == "" || in.Name == "" || in.Quantity <= 0 || in.UnitPrice < 0 {
			return nil, ErrBadRequest
		}
		line := in.UnitPrice * int64(in.Quantity)
		items = append(items, OrderItem{
			ProductID: in.ProductID,
			SellerID:  in.SellerID,
			Name:      in.Name,
			ImageURL:  in.ImageURL,
			Category:  in.Category,
			UnitPrice: types.Money{Amount: in.UnitPrice},
			Quantity:  in.Quantity,
			LineTotal: types.Money{Amount: line},
		})
		if _, seen := sellerSubtotals[in.SellerID]; !seen {
			sellerIDs = append(sellerIDs, in.SellerID)
		}
		sellerSubtotals[in.SellerID] += line
		subtotal += line
	}

	quote := s.pricing.QuoteOrder(subtotal)
	for i := range items {
		items[i].UnitPrice.Currency = quote.Subtotal.Currency
		items[i].LineTotal.Currency = quote.Subtotal.Currency
	}
	now := time.Now()
	eta := now.Add(s.defaultETA)
	o := &Order{
		CustomerID:            cmd.CustomerID,
		CustomerName:          cmd.CustomerName,
		CustomerPhone:         cmd.CustomerPhone,
		Address:               cmd.Address,
		City:                  cmd.City,
		Area:                  cmd.Area,
		Locality:              cmd.Locality,
		Status:                StatusPending,
		Subtotal:              quote.Subtotal,
		DeliveryFee:           quote.DeliveryFee,
		TaxAmount:             quote.TaxAmount,
		Total:                 quote.Total,
		PaymentMethod:         cmd.PaymentMethod,
		PaymentStatus:         "PENDING",
		DeliveryInstructions:  cmd.DeliveryInstructions,
		EstimatedDeliveryTime: &eta,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	sellers := make([]SellerOrder, 0, len(sellerIDs))
	for _, sid := range sellerIDs {
		sub := sellerSubtotals[sid]
		sellers = append(sellers, SellerOrder{
			SellerID:   sid,
			Status:     StatusPending,
			Subtotal:   types.Money{Amount: sub, Currency: quote.Subtotal.Currency},
			Commission: s.pricing.Commission(sub),
			NetPayable: s.pricing.NetPayable(sub),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	if err := s.repo.CreateOrder(ctx, o, items, sellers); err != nil {
		return nil, err
	}

	_, _ = s.Track(ctx, TrackCommand{
		OrderID:     o.ID,
		Status:      TrackingOrderPlaced,
		Description: fmt.Sprintf("Order #%s placed successfully", o.OrderNumber),
	})
	for _, sid := range sellerIDs {
		s.push(sid, "order", "New order", fmt.Sprintf("Order #%s has items for you", o.OrderNumber),
			map[string]any{"orderId": o.ID})
	}
	return s.repo.GetOrder(ctx, o.ID)
}

func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *Service) Items(ctx context.Context, orderID int64) ([]OrderItem, error) {
	return s.repo.OrderItems(ctx, orderID)
}

func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return s.repo.ListOrdersByCustomer(ctx, customerID)
}

// Track appends a tracking entry and advances the derived order status when
// the entry's status maps to one. This is the only sanctioned way to move an
// order forward besides the OTP-gated delivery in VerifyOTP.
func (s *Service) Track(ctx context.Context, cmd TrackCommand) (*TrackingEntry, error) {
	if cmd.Status == "" || cmd.Description == "" {
		return nil, ErrBadRequest
	}
	o, err := s.repo.GetOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("%w: order is %s", ErrConflict, o.Status)
	}

	next, mapped := OrderStatusFor(cmd.Status)
	if mapped {
		// DELIVERED is reserved for the OTP gate.
		if next == StatusDelivered {
			return nil, fmt.Errorf("%w: delivery requires otp verification", ErrInvalidState)
		}
		if !CanAdvance(o.Status, next) {
			return nil, fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidState, o.Status, next)
		}
	}

	e := &TrackingEntry{
		OrderID:     cmd.OrderID,
		Status:      cmd.Status,
		Description: cmd.Description,
		Location:    cmd.Location,
		CreatedAt:   time.Now(),
	}
	var nextPtr *Status
	if mapped {
		nextPtr = &next
	}
	ok, err := s.repo.AppendTracking(ctx, e, nextPtr, o.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	s.push(o.CustomerID, "status", statusTitle(cmd.Status), cmd.Description,
		map[string]any{"orderId": o.ID, "status": cmd.Status})
	if o.DeliveryAgentID != nil {
		s.push(agentTarget(*o.DeliveryAgentID), "status", statusTitle(cmd.Status), cmd.Description,
			map[string]any{"orderId": o.ID, "status": cmd.Status})
	}
	return e, nil
}

// Cancel is a convenience wrapper over Track; terminal-state orders fail with
// ErrConflict inside Track.
func (s *Service) Cancel(ctx context.Context, orderID int64, reason string) error {
	if reason == "" {
		reason = "Order cancelled"
	}
	_, err := s.Track(ctx, TrackCommand{OrderID: orderID, Status: TrackingCancelled, Description: reason})
	return err
}

func (s *Service) Timeline(ctx context.Context, orderID int64, desc bool, limit int) ([]TrackingEntry, error) {
	if _, err := s.repo.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListTracking(ctx, orderID, desc, limit)
}

// TrackingView is the customer-facing tracking payload.
type TrackingView struct {
	History               []TrackingEntry `json:"trackingHistory"`
	CurrentStatus         Status          `json:"currentStatus"`
	CurrentLocation       string          `json:"currentLocation,omitempty"`
	EstimatedDeliveryTime *time.Time      `json:"estimatedDeliveryTime,omitempty"`
	ActualDeliveryTime    *time.Time      `json:"actualDeliveryTime,omitempty"`
}

func (s *Service) Tracking(ctx context.Context, orderID int64) (*TrackingView, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.ListTracking(ctx, orderID, false, 0)
	if err != nil {
		return nil, err
	}
	view := &TrackingView{
		History:               history,
		CurrentStatus:         o.Status,
		EstimatedDeliveryTime: o.EstimatedDeliveryTime,
		ActualDeliveryTime:    o.ActualDeliveryTime,
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Location != "" {
			view.CurrentLocation = history[i].Location
			break
		}
	}
	return view, nil
}

// GenerateOTP returns the order's delivery confirmation code, creating it on
// first call. Generation is idempotent: once a code exists it is returned
// unchanged forever. With checkOnly no code is created.
func (s *Service) GenerateOTP(ctx context.Context, orderID, agentID int64, checkOnly bool) (string, bool, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return "", false, err
	}
	if o.DeliveryAgentID == nil || *o.DeliveryAgentID != agentID {
		return "", false, ErrForbidden
	}
	if o.Status.Terminal() {
		return "", false, fmt.Errorf("%w: order is %s", ErrConflict, o.Status)
	}
	if o.ParcelOTP != nil {
		return *o.ParcelOTP, true, nil
	}
	if checkOnly {
		return "", false, nil
	}

	otp, err := generateOTP()
	if err != nil {
		return "", false, err
	}
	ok, err := s.repo.SetOTP(ctx, orderID, otp)
	if err != nil {
		return "", false, err
	}
	if !ok {
		// Lost the race against a concurrent generation; the stored code wins.
		o, err = s.repo.GetOrder(ctx, orderID)
		if err != nil {
			return "", false, err
		}
		if o.ParcelOTP == nil {
			return "", false, ErrConflict
		}
		return *o.ParcelOTP, true, nil
	}

	_, _ = s.Track(ctx, TrackCommand{
		OrderID:     orderID,
		Status:      TrackingReadyForPickup,
		Description: fmt.Sprintf("Order ready for pickup. Delivery OTP %s generated", otp),
	})
	s.push(o.CustomerID, "otp", "Delivery OTP", fmt.Sprintf("Share code %s with your delivery agent at handoff", otp),
		map[string]any{"orderId": o.ID, "otp": otp})
	return otp, false, nil
}

// VerifyOTP performs the final, OTP-gated delivery transition. Preconditions
// run in a fixed order and the first failure wins; no other code path may set
// an order to DELIVERED.
func (s *Service) VerifyOTP(ctx context.Context, cmd VerifyCommand) (*Order, error) {
	if cmd.OTP == "" {
		return nil, fmt.Errorf("%w: otp is required", ErrBadRequest)
	}
	o, err := s.repo.GetOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.DeliveryAgentID == nil || *o.DeliveryAgentID != cmd.AgentID {
		return nil, ErrForbidden
	}
	// Redundant with the status check below; kept as an explicit guard against
	// replaying a code on a completed order.
	if o.Status == StatusDelivered {
		return nil, fmt.Errorf("%w: order already delivered", ErrInvalidState)
	}
	if o.Status != StatusOutForDelivery {
		return nil, fmt.Errorf("%w: order is %s, expected %s", ErrInvalidState, o.Status, StatusOutForDelivery)
	}
	if o.ParcelOTP == nil || *o.ParcelOTP != cmd.OTP {
		return nil, ErrInvalidOTP
	}

	now := time.Now()
	e := &TrackingEntry{
		OrderID:     cmd.OrderID,
		Status:      TrackingDelivered,
		Description: "Order delivered. OTP verified by delivery agent",
		CreatedAt:   now,
	}
	ok, err := s.repo.MarkDelivered(ctx, cmd.OrderID, o.StatusVersion, now, e)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	delivered, err := s.repo.GetOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{"orderId": delivered.ID, "status": StatusDelivered}
	s.push(delivered.CustomerID, "delivery", "Order delivered", "Your order has been delivered", payload)
	s.push(agentTarget(cmd.AgentID), "delivery", "Delivery complete", fmt.Sprintf("Order #%s delivered", delivered.OrderNumber), payload)
	sellers, err := s.repo.SellerOrders(ctx, cmd.OrderID)
	if err == nil {
		for _, so := range sellers {
			s.push(so.SellerID, "delivery", "Order delivered", fmt.Sprintf("Order #%s delivered", delivered.OrderNumber), payload)
		}
	}
	return delivered, nil
}

// BindAgent is the assignment engine's write path into the order record; it
// is a CAS on the unassigned state.
func (s *Service) BindAgent(ctx context.Context, orderID, agentID int64) (bool, error) {
	return s.repo.BindAgent(ctx, orderID, agentID)
}

func (s *Service) SetEstimatedDelivery(ctx context.Context, orderID int64, eta time.Time) error {
	return s.repo.SetEstimatedDelivery(ctx, orderID, eta)
}

func (s *Service) SellerOrders(ctx context.Context, orderID int64) ([]SellerOrder, error) {
	return s.repo.SellerOrders(ctx, orderID)
}

// UpdateSellerStatus sets one seller order's status and, when every seller
// order of the parent now agrees, syncs the parent order status. The sync is
// best-effort: divergent sellers are fine and DELIVERED never propagates
// because that transition belongs to the OTP gate.
func (s *Service) UpdateSellerStatus(ctx context.Context, sellerOrderID int64, status Status) (*SellerOrder, error) {
	if _, known := statusRank[status]; !known && status != StatusCancelled {
		return nil, ErrBadRequest
	}
	so, err := s.repo.GetSellerOrder(ctx, sellerOrderID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetSellerOrderStatus(ctx, sellerOrderID, status); err != nil {
		return nil, err
	}
	so.Status = status

	all, err := s.repo.SellerOrders(ctx, so.OrderID)
	if err != nil {
		return so, nil
	}
	agreed := true
	for _, other := range all {
		if other.Status != status {
			agreed = false
			break
		}
	}
	if agreed && status != StatusDelivered {
		if o, err := s.repo.GetOrder(ctx, so.OrderID); err == nil &&
			o.Status != status && CanAdvance(o.Status, status) {
			_, _ = s.repo.SetStatus(ctx, so.OrderID, status, o.StatusVersion)
			s.push(o.CustomerID, "status", "Order update", fmt.Sprintf("Order #%s is now %s", o.OrderNumber, status),
				map[string]any{"orderId": o.ID, "status": status})
		}
	}
	return so, nil
}

func (s *Service) push(target, eventType, title, message string, payload map[string]any) {
	if s.notifier == nil || target == "" {
		return
	}
	s.notifier.Push(target, eventType, title, message, payload)
}

func agentTarget(agentID int64) string {
	return "agent:" + strconv.FormatInt(agentID, 10)
}

var trackingTitles = map[TrackingStatus]string{
	TrackingOrderPlaced:     "Order placed",
	TrackingOrderConfirmed:  "Order confirmed",
	TrackingPreparingOrder:  "Preparing your order",
	TrackingReadyForPickup:  "Ready for pickup",
	TrackingPickedUp:        "Picked up",
	TrackingInTransit:       "In transit",
	TrackingOutForDelivery:  "Out for delivery",
	TrackingDelivered:       "Delivered",
	TrackingCancelled:       "Order cancelled",
	TrackingAssignedToAgent: "Delivery agent assigned",
}

func statusTitle(ts TrackingStatus) string {
	if t, ok := trackingTitles[ts]; ok {
		return t
	}
	return "Order update"
}

// generateOTP returns a uniformly random 6-digit code, leading zeros allowed.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
