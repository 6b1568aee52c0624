package queue

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// AMQPQueue publishes engine events to RabbitMQ. Consumption happens out of
// process (cmd/worker), so Subscribe is not supported here.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPQueue connects to the broker and declares the call events queue.
func NewAMQPQueue(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		TopicCallEvents, // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		nil,             // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &AMQPQueue{conn: conn, ch: ch}, nil
}

// Publish marshals the payload as JSON and sends it to the topic's queue.
func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.ch.Publish(
		"",
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Subscribe is not available on the publisher side; consumers attach to the
// broker directly (see cmd/worker).
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	return fmt.Errorf("AMQPQueue does not support in-process subscriptions")
}

// Close releases the channel and connection.
func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}
