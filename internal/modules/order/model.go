// README: Order aggregate, tracking vocabulary, and status derivation.
package order

import (
	"time"

	"bazaar/internal/types"
)

// Status is the coarse order status shown on the order record.
type Status string

const (
	StatusPending          Status = "PENDING"
	StatusConfirmed        Status = "CONFIRMED"
	StatusPreparing        Status = "PREPARING"
	StatusReadyForDelivery Status = "READY_FOR_DELIVERY"
	StatusOutForDelivery   Status = "OUT_FOR_DELIVERY"
	StatusDelivered        Status = "DELIVERED"
	StatusCancelled        Status = "CANCELLED"
)

// TrackingStatus is the fine-grained timeline vocabulary. Every order status
// is derived from it; the two are never mutated independently.
type TrackingStatus string

const (
	TrackingOrderPlaced     TrackingStatus = "ORDER_PLACED"
	TrackingOrderConfirmed  TrackingStatus = "ORDER_CONFIRMED"
	TrackingPreparingOrder  TrackingStatus = "PREPARING_ORDER"
	TrackingReadyForPickup  TrackingStatus = "READY_FOR_PICKUP"
	TrackingPickedUp        TrackingStatus = "PICKED_UP"
	TrackingInTransit       TrackingStatus = "IN_TRANSIT"
	TrackingOutForDelivery  TrackingStatus = "OUT_FOR_DELIVERY"
	TrackingDelivered       TrackingStatus = "DELIVERED"
	TrackingCancelled       TrackingStatus = "CANCELLED"
	TrackingAssignedToAgent TrackingStatus = "ASSIGNED_TO_AGENT"
)

// orderStatusByTracking is the fixed many-to-one derivation table.
// ASSIGNED_TO_AGENT is deliberately absent: assignment is orthogonal to the
// fulfillment stage and leaves the order status untouched.
var orderStatusByTracking = map[TrackingStatus]Status{
	TrackingOrderPlaced:    StatusPending,
	TrackingOrderConfirmed: StatusConfirmed,
	TrackingPreparingOrder: StatusPreparing,
	TrackingReadyForPickup: StatusReadyForDelivery,
	TrackingPickedUp:       StatusOutForDelivery,
	TrackingInTransit:      StatusOutForDelivery,
	TrackingOutForDelivery: StatusOutForDelivery,
	TrackingDelivered:      StatusDelivered,
	TrackingCancelled:      StatusCancelled,
}

// OrderStatusFor derives the coarse order status for a tracking status.
// The second result is false for statuses that only appear in the timeline.
func OrderStatusFor(ts TrackingStatus) (Status, bool) {
	s, ok := orderStatusByTracking[ts]
	return s, ok
}

// statusRank orders the forward fulfillment stages. Cancellation sits outside
// the ranking: it is reachable from every non-terminal state.
var statusRank = map[Status]int{
	StatusPending:          1,
	StatusConfirmed:        2,
	StatusPreparing:        3,
	StatusReadyForDelivery: 4,
	StatusOutForDelivery:   5,
	StatusDelivered:        6,
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanAdvance reports whether an order currently at from may move to to.
// Terminal states accept nothing; a transition to an earlier stage is stale
// and rejected so a late-arriving event cannot rewind the order.
func CanAdvance(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return statusRank[to] >= statusRank[from]
}

type Order struct {
	ID            int64       `json:"id"`
	OrderNumber   string      `json:"orderNumber"`
	CustomerID    string      `json:"customerId"`
	CustomerName  string      `json:"customerName"`
	CustomerPhone string      `json:"customerPhone"`
	Address       string      `json:"address"`
	City          string      `json:"city"`
	Area          string      `json:"area"`
	Locality      string      `json:"locality,omitempty"`
	Status        Status      `json:"status"`
	StatusVersion int         `json:"-"`
	Subtotal      types.Money `json:"subtotal"`
	DeliveryFee   types.Money `json:"deliveryFee"`
	TaxAmount     types.Money `json:"taxAmount"`
	Total         types.Money `json:"total"`
	PaymentMethod string      `json:"paymentMethod"`
	PaymentStatus string      `json:"paymentStatus"`

	DeliveryAgentID       *int64     `json:"deliveryAgentId,omitempty"`
	DeliveryInstructions  string     `json:"deliveryInstructions,omitempty"`
	ParcelOTP             *string    `json:"-"`
	EstimatedDeliveryTime *time.Time `json:"estimatedDeliveryTime,omitempty"`
	ActualDeliveryTime    *time.Time `json:"actualDeliveryTime,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OrderItem is a denormalized snapshot of a catalog product at order time.
// Immutable after creation.
type OrderItem struct {
	ID        int64       `json:"id"`
	OrderID   int64       `json:"orderId"`
	ProductID string      `json:"productId"`
	SellerID  string      `json:"sellerId"`
	Name      string      `json:"name"`
	ImageURL  string      `json:"imageUrl,omitempty"`
	Category  string      `json:"category,omitempty"`
	UnitPrice types.Money `json:"unitPrice"`
	Quantity  int         `json:"quantity"`
	LineTotal types.Money `json:"lineTotal"`
}

// SellerOrder is one seller's slice of a multi-seller order, with its own
// independently settable status.
type SellerOrder struct {
	ID         int64       `json:"id"`
	OrderID    int64       `json:"orderId"`
	SellerID   string      `json:"sellerId"`
	Status     Status      `json:"status"`
	Subtotal   types.Money `json:"subtotal"`
	Commission types.Money `json:"commission"`
	NetPayable types.Money `json:"netPayable"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// TrackingEntry is one immutable timeline event. Entries are append-only and
// are the canonical source for the order's status history.
type TrackingEntry struct {
	ID          int64          `json:"id"`
	OrderID     int64          `json:"orderId"`
	Status      TrackingStatus `json:"status"`
	Description string         `json:"description"`
	Location    string         `json:"location,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}
