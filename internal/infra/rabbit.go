// README: RabbitMQ connection and channel setup.
package infra

import (
	"github.com/rabbitmq/amqp091-go"
)

func NewRabbitChannel(url string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}
