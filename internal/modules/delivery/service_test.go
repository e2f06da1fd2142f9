// README: Assignment engine tests (manual/auto paths, CAS binding, availability).
package delivery_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bazaar/internal/config"
	"bazaar/internal/modules/delivery"
	"bazaar/internal/modules/order"
	"bazaar/internal/modules/pricing"
	"bazaar/internal/testutil"
)

type fixedETA struct {
	travel time.Duration
	calls  int
}

func (f *fixedETA) TravelTime(_ context.Context, _, _ string) (time.Duration, error) {
	f.calls++
	return f.travel, nil
}

func newTestServices(eta delivery.ETAEstimator) (*delivery.Service, *order.Service, *testutil.MemAgentRepo) {
	pricer := pricing.NewService(config.PricingConfig{
		Currency: "INR", DeliveryFee: 4000, FreeDeliveryAbove: 50000,
		TaxRatePercent: 5.0, CommissionPercent: 10.0,
	})
	orders := order.NewService(testutil.NewMemOrderRepo(), pricer, nil, 45*time.Minute)
	agents := testutil.NewMemAgentRepo()
	return delivery.NewService(agents, orders, eta, nil), orders, agents
}

func mustPlaceOrder(t *testing.T, orders *order.Service) *order.Order {
	t.Helper()
	o, err := orders.Create(context.Background(), order.CreateCommand{
		CustomerID:   "c1",
		CustomerName: "Asha",
		Address:      "12 Market Road",
		City:         "Pune",
		Items: []order.ItemInput{
			{ProductID: "p1", SellerID: "s1", Name: "Rice", UnitPrice: 10000, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func mustRegisterAgent(t *testing.T, svc *delivery.Service, name string, available bool) *delivery.Agent {
	t.Helper()
	a := &delivery.Agent{Name: name, Phone: "+91000" + name, VehicleType: "bike", IsAvailable: available}
	if err := svc.Register(context.Background(), a); err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return a
}

func TestAssignAutoPicksEarliestAvailable(t *testing.T) {
	svc, orders, _ := newTestServices(nil)
	ctx := context.Background()

	busy := mustRegisterAgent(t, svc, "a_busy", false)
	first := mustRegisterAgent(t, svc, "a_first", true)
	_ = mustRegisterAgent(t, svc, "a_second", true)
	_ = busy

	o := mustPlaceOrder(t, orders)
	asg, err := svc.Assign(ctx, delivery.AssignCommand{OrderID: o.ID})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if asg.Agent == nil || asg.Agent.ID != first.ID {
		t.Fatalf("expected agent %d, got %+v", first.ID, asg.Agent)
	}
	if asg.Order.DeliveryAgentID == nil || *asg.Order.DeliveryAgentID != first.ID {
		t.Fatalf("order not bound to agent %d", first.ID)
	}

	// assignment shows up in the timeline without moving the status
	timeline, err := orders.Timeline(ctx, o.ID, false, 0)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	last := timeline[len(timeline)-1]
	if last.Status != order.TrackingAssignedToAgent {
		t.Fatalf("expected ASSIGNED_TO_AGENT entry, got %s", last.Status)
	}
	if asg.Order.Status != order.StatusPending {
		t.Fatalf("assignment moved status to %s", asg.Order.Status)
	}
}

func TestAssignManualBypassesAvailability(t *testing.T) {
	svc, orders, _ := newTestServices(nil)
	ctx := context.Background()

	offline := mustRegisterAgent(t, svc, "a_offline", false)

	o := mustPlaceOrder(t, orders)
	asg, err := svc.Assign(ctx, delivery.AssignCommand{OrderID: o.ID, AgentID: &offline.ID})
	if err != nil {
		t.Fatalf("manual assign to offline agent: %v", err)
	}
	if asg.Agent.ID != offline.ID {
		t.Fatalf("expected agent %d, got %d", offline.ID, asg.Agent.ID)
	}
}

func TestAssignNoAgentAvailable(t *testing.T) {
	svc, orders, _ := newTestServices(nil)
	ctx := context.Background()

	mustRegisterAgent(t, svc, "a_offline", false)

	o := mustPlaceOrder(t, orders)
	if _, err := svc.Assign(ctx, delivery.AssignCommand{OrderID: o.ID}); !errors.Is(err, delivery.ErrNoAgentAvailable) {
		t.Fatalf("expected ErrNoAgentAvailable, got %v", err)
	}

	// the order must stay assignable
	got, err := orders.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.DeliveryAgentID != nil {
		t.Fatalf("agent bound despite failed assignment: %d", *got.DeliveryAgentID)
	}
}

func TestAssignAlreadyAssigned(t *testing.T) {
	svc, orders, _ := newTestServices(nil)
	ctx := context.Background()

	agent := mustRegisterAgent(t, svc, "a1", true)
	o := mustPlaceOrder(t, orders)

	if _, err := svc.Assign(ctx, delivery.AssignCommand{OrderID: o.ID}); err != nil {
		t.Fatalf("first assign: %v", err)
	}

	asg, err := svc.Assign(ctx, delivery.AssignCommand{OrderID: o.ID})
	if !errors.Is(err, delivery.ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}
	if asg == nil || asg.Agent == nil || asg.Agent.ID != agent.ID {
		t.Fatalf("expected existing assignment to carry agent %d, got %+v", agent.ID, asg)
	}
}

func TestAssignClosedOrder(t *testing.T) {
	svc, orders, _ := newTestServices(nil)
	ctx := context.Background()

	mustRegisterAgent(t, svc, "a1", true)
	o := mustPlaceOrder(t, orders)
	if err := orders.Cancel(ctx, o.ID, "cancelled"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := svc.Assign(ctx, delivery.AssignCommand{OrderID: o.ID}); !errors.Is(err, delivery.ErrOrderClosed) {
		t.Fatalf("expected ErrOrderClosed, got %v", err)
	}
}

func TestAssignConcurrentSingleWinner(t *testing.T) {
	svc, orders, _ := newTestServices(nil)
	ctx := context.Background()

	agent := mustRegisterAgent(t, svc, "a1", true)
	o := mustPlaceOrder(t, orders)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	agentIDs := make(chan int64, attempts)
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			asg, err := svc.Assign(ctx, delivery.AssignCommand{OrderID: o.ID})
			results <- err
			if asg != nil && asg.Agent != nil {
				agentIDs <- asg.Agent.ID
			}
		}()
	}
	close(start)
	wg.Wait()
	close(results)
	close(agentIDs)

	success := 0
	for err := range results {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, delivery.ErrAlreadyAssigned) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 winning assignment, got %d", success)
	}
	for id := range agentIDs {
		if id != agent.ID {
			t.Fatalf("assignment referenced agent %d, want %d", id, agent.ID)
		}
	}
}

func TestAssignRefreshesETA(t *testing.T) {
	eta := &fixedETA{travel: 20 * time.Minute}
	svc, orders, agents := newTestServices(eta)
	ctx := context.Background()

	a := mustRegisterAgent(t, svc, "a1", true)
	if err := agents.SetLocation(ctx, a.ID, delivery.Point{Lat: 18.52, Lng: 73.85}); err != nil {
		t.Fatalf("set location: %v", err)
	}

	o := mustPlaceOrder(t, orders)
	placementETA := o.EstimatedDeliveryTime

	before := time.Now()
	if _, err := svc.Assign(ctx, delivery.AssignCommand{OrderID: o.ID}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if eta.calls != 1 {
		t.Fatalf("expected 1 route lookup, got %d", eta.calls)
	}

	got, err := orders.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.EstimatedDeliveryTime == nil || got.EstimatedDeliveryTime.Equal(*placementETA) {
		t.Fatal("expected route-based estimate to replace placement estimate")
	}
	if got.EstimatedDeliveryTime.Before(before.Add(eta.travel)) {
		t.Fatalf("estimate %v earlier than now+travel", got.EstimatedDeliveryTime)
	}
}

func TestAssignWithoutLocationKeepsPlacementETA(t *testing.T) {
	eta := &fixedETA{travel: 20 * time.Minute}
	svc, orders, _ := newTestServices(eta)
	ctx := context.Background()

	mustRegisterAgent(t, svc, "a1", true)
	o := mustPlaceOrder(t, orders)

	if _, err := svc.Assign(ctx, delivery.AssignCommand{OrderID: o.ID}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if eta.calls != 0 {
		t.Fatalf("expected no route lookup without a known position, got %d", eta.calls)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestServices(nil)
	ctx := context.Background()

	if err := svc.Register(ctx, &delivery.Agent{Name: "", Phone: "+911"}); !errors.Is(err, order.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for missing name, got %v", err)
	}
	if err := svc.Register(ctx, &delivery.Agent{Name: "x", Phone: ""}); !errors.Is(err, order.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for missing phone, got %v", err)
	}
}

func TestAvailabilityToggle(t *testing.T) {
	svc, _, _ := newTestServices(nil)
	ctx := context.Background()

	a := mustRegisterAgent(t, svc, "a1", true)
	if err := svc.SetAvailability(ctx, a.ID, false); err != nil {
		t.Fatalf("set availability: %v", err)
	}
	available, err := svc.ListAvailable(ctx)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(available) != 0 {
		t.Fatalf("expected no available agents, got %d", len(available))
	}

	if err := svc.SetAvailability(ctx, 9999, true); !errors.Is(err, delivery.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
	if err := svc.UpdateLocation(ctx, 9999, delivery.Point{Lat: 1, Lng: 2}); !errors.Is(err, delivery.ErrAgentNotFound) {
		t.Fatalf("update location of missing agent: expected ErrAgentNotFound, got %v", err)
	}
}
