package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultExchange = "taproom_events"

// AMQPPublisher writes JSON events to a durable topic exchange. One channel
// is shared by all callers; amqp channels are not safe for concurrent publish.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	log.Printf("Connected to RabbitMQ, publishing to exchange %s", exchange)
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", routingKey, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		return fmt.Errorf("publish %s: channel closed", routingKey)
	}

	return p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		})
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			log.Printf("Error closing AMQP channel: %v", err)
		}
		p.ch = nil
	}
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn.Close()
	}
	return nil
}

// Connect returns an AMQP publisher when url is set and reachable, and a
// NopPublisher otherwise. Events are best-effort; the API keeps serving.
func Connect(url string) Publisher {
	if url == "" {
		return NopPublisher{}
	}
	p, err := NewAMQPPublisher(url, DefaultExchange)
	if err != nil {
		log.Printf("WARNING: %v - domain events disabled", err)
		return NopPublisher{}
	}
	return p
}

// PublishAsync fires an event without blocking the request. Failures are logged.
func PublishAsync(p Publisher, routingKey string, payload interface{}) {
	if p == nil {
		return
	}
	go func() {
		if err := p.Publish(context.Background(), routingKey, payload); err != nil {
			log.Printf("Failed to publish %s event: %v", routingKey, err)
		}
	}()
}
