// README: State machine tests (status derivation + advancement rules).
package order

import "testing"

func TestOrderStatusFor(t *testing.T) {
	cases := []struct {
		tracking TrackingStatus
		want     Status
		mapped   bool
	}{
		{TrackingOrderPlaced, StatusPending, true},
		{TrackingOrderConfirmed, StatusConfirmed, true},
		{TrackingPreparingOrder, StatusPreparing, true},
		{TrackingReadyForPickup, StatusReadyForDelivery, true},
		{TrackingPickedUp, StatusOutForDelivery, true},
		{TrackingInTransit, StatusOutForDelivery, true},
		{TrackingOutForDelivery, StatusOutForDelivery, true},
		{TrackingDelivered, StatusDelivered, true},
		{TrackingCancelled, StatusCancelled, true},
		// assignment never touches the order status
		{TrackingAssignedToAgent, "", false},
	}
	for _, tc := range cases {
		got, mapped := OrderStatusFor(tc.tracking)
		if mapped != tc.mapped {
			t.Errorf("OrderStatusFor(%s): mapped = %v, want %v", tc.tracking, mapped, tc.mapped)
		}
		if mapped && got != tc.want {
			t.Errorf("OrderStatusFor(%s) = %s, want %s", tc.tracking, got, tc.want)
		}
	}
}

func TestCanAdvance(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// happy-path forward transitions
		{StatusPending, StatusConfirmed, true},
		{StatusConfirmed, StatusPreparing, true},
		{StatusPreparing, StatusReadyForDelivery, true},
		{StatusReadyForDelivery, StatusOutForDelivery, true},
		{StatusOutForDelivery, StatusDelivered, true},
		// skipping stages forward is allowed
		{StatusPending, StatusOutForDelivery, true},
		{StatusConfirmed, StatusReadyForDelivery, true},
		// same stage is a no-op, not a rewind
		{StatusPending, StatusPending, true},
		{StatusOutForDelivery, StatusOutForDelivery, true},
		// cancels from every non-terminal state
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusPreparing, StatusCancelled, true},
		{StatusReadyForDelivery, StatusCancelled, true},
		{StatusOutForDelivery, StatusCancelled, true},
		// stale events cannot rewind
		{StatusConfirmed, StatusPending, false},
		{StatusOutForDelivery, StatusPreparing, false},
		{StatusDelivered, StatusOutForDelivery, false},
		// terminal states accept nothing
		{StatusDelivered, StatusCancelled, false},
		{StatusDelivered, StatusDelivered, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusCancelled, false},
	}
	for _, tc := range cases {
		got := CanAdvance(tc.from, tc.to)
		if got != tc.want {
			t.Errorf("CanAdvance(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusReadyForDelivery, StatusOutForDelivery} {
		if s.Terminal() {
			t.Errorf("%s reported terminal", s)
		}
	}
	for _, s := range []Status{StatusDelivered, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s not reported terminal", s)
		}
	}
}
