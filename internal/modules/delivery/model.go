// README: Delivery agent records and assignment results.
package delivery

import "time"

// Agent is a delivery agent. Availability is agent-controlled only; the
// assignment engine reads it and never flips it.
type Agent struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	VehicleType   string    `json:"vehicleType,omitempty"`
	VehicleNumber string    `json:"vehicleNumber,omitempty"`
	IsAvailable   bool      `json:"isAvailable"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Point is a WGS84 coordinate pushed by the agent's device.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
