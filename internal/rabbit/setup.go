// README: Queue declaration and consumer wiring for the order intake.
package rabbit

import (
	"log"

	"github.com/rabbitmq/amqp091-go"

	"bazaar/internal/modules/order"
)

const (
	exchangeOrderPlaced = "order_placed"
	queueOrderIntake    = "bazaar_order_intake"
)

func SetupConsumers(ch *amqp091.Channel, orders *order.Service) error {
	consumer := NewOrderPlacedConsumer(orders)

	if err := ch.ExchangeDeclare(exchangeOrderPlaced, "fanout", true, false, false, false, nil); err != nil {
		return err
	}

	q, err := ch.QueueDeclare(queueOrderIntake, true, false, false, false, nil)
	if err != nil {
		return err
	}

	// The storefront publishes checkouts on a fanout exchange; routing key is ignored.
	if err := ch.QueueBind(q.Name, "", exchangeOrderPlaced, false, nil); err != nil {
		return err
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for m := range msgs {
			_ = consumer.Handle(m.Body)
		}
	}()

	log.Printf("rabbit: consuming %s from exchange %s", q.Name, exchangeOrderPlaced)
	return nil
}
