// README: Consumes order_placed events from the storefront and creates orders.
package rabbit

import (
	"context"
	"encoding/json"
	"log"

	"bazaar/internal/modules/order"
)

type OrderPlacedConsumer struct {
	orders *order.Service
}

func NewOrderPlacedConsumer(orders *order.Service) *OrderPlacedConsumer {
	return &OrderPlacedConsumer{orders: orders}
}

// OrderPlacedMessage is the storefront's checkout payload.
type OrderPlacedMessage struct {
	Customer struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Address  string `json:"address"`
		City     string `json:"city"`
		Area     string `json:"area"`
		Locality string `json:"locality"`
	} `json:"customer"`
	Items []struct {
		ProductID string `json:"productId"`
		SellerID  string `json:"sellerId"`
		Name      string `json:"name"`
		ImageURL  string `json:"imageUrl"`
		Category  string `json:"category"`
		UnitPrice int64  `json:"unitPrice"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	PaymentMethod        string `json:"paymentMethod"`
	DeliveryInstructions string `json:"deliveryInstructions"`
}

func (c *OrderPlacedConsumer) Handle(body []byte) error {
	var msg OrderPlacedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Printf("rabbit: decode order_placed: %v", err)
		return err
	}

	cmd := order.CreateCommand{
		CustomerID:           msg.Customer.ID,
		CustomerName:         msg.Customer.Name,
		CustomerPhone:        msg.Customer.Phone,
		Address:              msg.Customer.Address,
		City:                 msg.Customer.City,
		Area:                 msg.Customer.Area,
		Locality:             msg.Customer.Locality,
		PaymentMethod:        msg.PaymentMethod,
		DeliveryInstructions: msg.DeliveryInstructions,
	}
	for _, it := range msg.Items {
		cmd.Items = append(cmd.Items, order.ItemInput{
			ProductID: it.ProductID,
			SellerID:  it.SellerID,
			Name:      it.Name,
			ImageURL:  it.ImageURL,
			Category:  it.Category,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}

	o, err := c.orders.Create(context.Background(), cmd)
	if err != nil {
		log.Printf("rabbit: create order from order_placed: %v", err)
		return err
	}
	log.Printf("rabbit: order #%s created from order_placed", o.OrderNumber)
	return nil
}
