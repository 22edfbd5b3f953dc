package events

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shelfdesk/shelfdesk/pkg/config"
	"github.com/shelfdesk/shelfdesk/pkg/models"
)

// Publisher delivers outbox events somewhere outside the database.
type Publisher interface {
	Publish(ctx context.Context, event *models.Event) error
	Close() error
}

// Message is the body that is sent for every event.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	AdminID   string          `json:"adminId"`
	CreatedAt time.Time       `json:"createdAt"`
	Payload   json.RawMessage `json:"payload"`
}

func NewMessage(event *models.Event) Message {
	return Message{
		ID:        event.ID,
		Type:      event.Type,
		AdminID:   event.AdminID,
		CreatedAt: event.CreatedAt,
		Payload:   json.RawMessage(event.Payload),
	}
}

// NewPublisher returns an AMQP publisher when amqp_url is set and a
// LogPublisher otherwise.
func NewPublisher(cfg *config.Config) (Publisher, error) {
	if cfg.AMQPURL == "" {
		return NewLogPublisher(logger.New()), nil
	}
	return NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue)
}

type LogPublisher struct {
	log logger.Logger
}

func NewLogPublisher(log logger.Logger) *LogPublisher {
	return &LogPublisher{log}
}

func (p *LogPublisher) Publish(_ context.Context, event *models.Event) error {
	p.log.Info("event", logger.Data{
		"event_id": event.ID,
		"type":     event.Type,
		"admin_id": event.AdminID,
		"payload":  event.Payload,
	})
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}

// AMQPPublisher publishes persistent JSON messages to a durable queue through
// the default exchange.
type AMQPPublisher struct {
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "amqp dial")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "amqp channel")
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrap(err, "amqp queue declare")
	}

	return &AMQPPublisher{queue: queue, conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event *models.Event) error {
	body, err := json.Marshal(NewMessage(event))
	if err != nil {
		return errors.WithStack(err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         event.Type,
		Timestamp:    event.CreatedAt,
		Body:         body,
	}

	// Channels aren't safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, pub)
	return errors.Wrap(err, "amqp publish")
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	chErr := p.ch.Close()
	connErr := p.conn.Close()
	if chErr != nil {
		return errors.WithStack(chErr)
	}
	return errors.WithStack(connErr)
}
