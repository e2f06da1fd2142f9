// README: Assignment engine matches unassigned orders to delivery agents.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bazaar/internal/modules/order"
)

var (
	ErrAgentNotFound    = errors.New("delivery agent not found")
	ErrNoAgentAvailable = errors.New("no delivery agent available")
	ErrAlreadyAssigned  = errors.New("order already assigned to an agent")
	ErrOrderClosed      = errors.New("order is in a terminal state")
)

// Orders is the slice of the order service the engine needs: read the order,
// CAS the agent binding, and append the assignment timeline entry.
type Orders interface {
	Get(ctx context.Context, id int64) (*order.Order, error)
	BindAgent(ctx context.Context, orderID, agentID int64) (bool, error)
	Track(ctx context.Context, cmd order.TrackCommand) (*order.TrackingEntry, error)
	SetEstimatedDelivery(ctx context.Context, orderID int64, eta time.Time) error
}

// AgentRepository is the persistence contract for agent records and their
// live positions.
type AgentRepository interface {
	CreateAgent(ctx context.Context, a *Agent) error
	GetAgent(ctx context.Context, id int64) (*Agent, error)
	FirstAvailable(ctx context.Context) (*Agent, error)
	ListAvailable(ctx context.Context) ([]Agent, error)
	SetAvailability(ctx context.Context, id int64, available bool) error
	SetLocation(ctx context.Context, id int64, p Point) error
	Location(ctx context.Context, id int64) (Point, bool, error)
}

// ETAEstimator refreshes the delivery estimate from a route lookup.
// Optional; nil means the placement-time estimate stands.
type ETAEstimator interface {
	TravelTime(ctx context.Context, origin, destination string) (time.Duration, error)
}

type Notifier interface {
	Push(target string, eventType, title, message string, payload map[string]any)
}

type Service struct {
	agents   AgentRepository
	orders   Orders
	eta      ETAEstimator
	notifier Notifier
}

func NewService(agents AgentRepository, orders Orders, eta ETAEstimator, notifier Notifier) *Service {
	return &Service{agents: agents, orders: orders, eta: eta, notifier: notifier}
}

type AssignCommand struct {
	OrderID int64
	// AgentID selects the manual/admin path when non-nil. The chosen agent is
	// not checked for availability; that override is deliberate.
	AgentID *int64
}

// Assignment pairs the order with its agent. On ErrAlreadyAssigned it carries
// the agent that already holds the order.
type Assignment struct {
	Order *order.Order `json:"order"`
	Agent *Agent       `json:"deliveryAgent"`
}

// Assign binds an unassigned order to an agent. The auto path picks the
// earliest-registered available agent; the binding itself is a CAS, so of two
// concurrent calls exactly one wins and the loser sees ErrAlreadyAssigned.
func (s *Service) Assign(ctx context.Context, cmd AssignCommand) (*Assignment, error) {
	o, err := s.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("%w: order is %s", ErrOrderClosed, o.Status)
	}
	if o.DeliveryAgentID != nil {
		return s.existingAssignment(ctx, o)
	}

	var agent *Agent
	if cmd.AgentID != nil {
		agent, err = s.agents.GetAgent(ctx, *cmd.AgentID)
	} else {
		agent, err = s.agents.FirstAvailable(ctx)
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.orders.BindAgent(ctx, cmd.OrderID, agent.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A concurrent assignment won; report the agent that holds the order.
		o, err = s.orders.Get(ctx, cmd.OrderID)
		if err != nil {
			return nil, err
		}
		return s.existingAssignment(ctx, o)
	}

	if _, err := s.orders.Track(ctx, order.TrackCommand{
		OrderID:     cmd.OrderID,
		Status:      order.TrackingAssignedToAgent,
		Description: fmt.Sprintf("Assigned to delivery agent %s", agent.Name),
	}); err != nil {
		log.Printf("delivery: tracking append after assignment: %v", err)
	}

	s.refreshETA(ctx, o, agent)

	payload := map[string]any{"orderId": o.ID, "agentId": agent.ID}
	s.push(o.CustomerID, "delivery", "Delivery agent assigned",
		fmt.Sprintf("%s will deliver order #%s", agent.Name, o.OrderNumber), payload)
	s.push(agentTarget(agent.ID), "delivery", "New delivery",
		fmt.Sprintf("Order #%s assigned to you", o.OrderNumber), payload)

	o, err = s.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	return &Assignment{Order: o, Agent: agent}, nil
}

func (s *Service) existingAssignment(ctx context.Context, o *order.Order) (*Assignment, error) {
	a := &Assignment{Order: o}
	if o.DeliveryAgentID != nil {
		if agent, err := s.agents.GetAgent(ctx, *o.DeliveryAgentID); err == nil {
			a.Agent = agent
		}
	}
	return a, ErrAlreadyAssigned
}

// refreshETA replaces the placement-time estimate with a route-based one when
// an estimator is wired and the agent has a known position. Best-effort.
func (s *Service) refreshETA(ctx context.Context, o *order.Order, agent *Agent) {
	if s.eta == nil {
		return
	}
	pos, ok, err := s.agents.Location(ctx, agent.ID)
	if err != nil || !ok {
		return
	}
	origin := fmt.Sprintf("%f,%f", pos.Lat, pos.Lng)
	destination := o.Address + ", " + o.City
	travel, err := s.eta.TravelTime(ctx, origin, destination)
	if err != nil {
		log.Printf("delivery: eta lookup for order %d: %v", o.ID, err)
		return
	}
	if err := s.orders.SetEstimatedDelivery(ctx, o.ID, time.Now().Add(travel)); err != nil {
		log.Printf("delivery: eta update for order %d: %v", o.ID, err)
	}
}

func (s *Service) Register(ctx context.Context, a *Agent) error {
	if a.Name == "" || a.Phone == "" {
		return order.ErrBadRequest
	}
	return s.agents.CreateAgent(ctx, a)
}

func (s *Service) GetAgent(ctx context.Context, id int64) (*Agent, error) {
	return s.agents.GetAgent(ctx, id)
}

func (s *Service) ListAvailable(ctx context.Context) ([]Agent, error) {
	return s.agents.ListAvailable(ctx)
}

// SetAvailability is the agent's self-service toggle.
func (s *Service) SetAvailability(ctx context.Context, id int64, available bool) error {
	return s.agents.SetAvailability(ctx, id, available)
}

func (s *Service) UpdateLocation(ctx context.Context, id int64, p Point) error {
	if _, err := s.agents.GetAgent(ctx, id); err != nil {
		return err
	}
	return s.agents.SetLocation(ctx, id, p)
}

func (s *Service) push(target, eventType, title, message string, payload map[string]any) {
	if s.notifier == nil || target == "" {
		return
	}
	s.notifier.Push(target, eventType, title, message, payload)
}

func agentTarget(id int64) string {
	return fmt.Sprintf("agent:%d", id)
}
