// Package events publishes domain events for the collaborators around the
// accounting core (notifications, chat, dashboards). Publishing happens after
// the business transaction commits and never fails the caller.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Routing keys.
const (
	JournalPosted        = "journal.posted"
	LoanDisbursed        = "loan.disbursed"
	LoanPaymentRecorded  = "loan.payment_recorded"
	MonthEndTransitioned = "month_end." // suffixed with the action
)

// Publisher sends an event body to the configured exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
	Close()
}

// Envelope wraps every published body.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// Fallback is the no-op publisher used when RabbitMQ is not configured or
// unreachable at startup.
type Fallback struct {
	Log *slog.Logger
}

func (p *Fallback) Publish(_ context.Context, routingKey string, _ any) error {
	if p.Log != nil {
		p.Log.Debug("event publish skipped", "component", "events", "mode", "fallback", "routing_key", routingKey)
	}
	return nil
}

func (p *Fallback) Close() {}

// Producer publishes JSON events to a durable topic exchange.
type Producer struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	log      *slog.Logger
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewProducer dials RabbitMQ and declares the exchange.
func NewProducer(amqpURL, exchange string, logger *slog.Logger) (*Producer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Producer{conn: conn, channel: ch, exchange: exchange, log: logger}, nil
}

// Publish marshals body in an Envelope and publishes it. A failed publish
// reopens the channel once and retries.
func (p *Producer) Publish(ctx context.Context, routingKey string, body any) error {
	payload, err := json.Marshal(Envelope{Type: routingKey, OccurredAt: time.Now().UTC(), Data: body})
	if err != nil {
		return err
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         payload,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
	if err == nil {
		return nil
	}
	p.log.Warn("publish failed; reopening channel", "component", "events", "routing_key", routingKey, "err", err)
	ch, chErr := p.conn.Channel()
	if chErr != nil {
		return chErr
	}
	p.channel = ch
	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
}

// Close closes the channel and connection.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// Connect returns a Producer for amqpURL, or a Fallback when the URL is empty
// or the broker cannot be reached.
func Connect(amqpURL, exchange string, logger *slog.Logger) Publisher {
	if strings.TrimSpace(amqpURL) == "" {
		return &Fallback{Log: logger}
	}
	p, err := NewProducer(amqpURL, exchange, logger)
	if err != nil {
		logger.Warn("rabbitmq unavailable; events disabled", "component", "events", "err", err)
		return &Fallback{Log: logger}
	}
	return p
}

// Emit publishes and logs failures instead of returning them.
func Emit(ctx context.Context, pub Publisher, logger *slog.Logger, routingKey string, body any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, routingKey, body); err != nil {
		logger.Warn("event publish failed", "component", "events", "routing_key", routingKey, "err", err)
	}
}

// Recorder keeps published events in memory; used by tests.
type Recorder struct {
	mu     sync.Mutex
	Events []Envelope
}

func (r *Recorder) Publish(_ context.Context, routingKey string, body any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Envelope{Type: routingKey, OccurredAt: time.Now().UTC(), Data: body})
	return nil
}

func (r *Recorder) Close() {}

// Types returns the routing keys recorded so far, in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
