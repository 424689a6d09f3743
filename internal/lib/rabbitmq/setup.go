package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Очереди и ключи маршрутизации приложения.
const (
	ReconcileQueue = "entitlements.reconcile"
	ReconcileKey   = "reconcile"
	OutgoingQueue  = "mail.outgoing"
	OutgoingKey    = "outgoing"
)

// QueueConfig очередь и ключ, которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Queues возвращает все очереди приложения.
func Queues() []QueueConfig {
	return []QueueConfig{
		{QueueName: ReconcileQueue, RoutingKey: ReconcileKey},
		{QueueName: OutgoingQueue, RoutingKey: OutgoingKey},
	}
}

// SetupChannel открывает канал, объявляет direct-обменник exchange и
// привязывает к нему очереди.
func SetupChannel(conn *amqp.Connection, exchange string, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, exchange, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}
	return ch, nil
}
