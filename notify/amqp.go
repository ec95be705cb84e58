package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yeremiapane/canteenkart/utils"
)

// AMQPNotifier publishes order events to a topic exchange, keyed by event name.
type AMQPNotifier struct {
	exchange string
	conn     *amqp.Connection
	mu       sync.Mutex
	ch       *amqp.Channel
}

func NewAMQPNotifier(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPNotifier{exchange: exchange, conn: conn, ch: ch}, nil
}

func (p *AMQPNotifier) Notify(ctx context.Context, ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		utils.ErrorLogger.Errorf("marshal %s event: %v", ev.Name, err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, "order."+ev.Name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		utils.ErrorLogger.Errorf("publish %s for order %d: %v", ev.Name, ev.OrderID, err)
	}
}

func (p *AMQPNotifier) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
	}
	return p.conn.Close()
}
