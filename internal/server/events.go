package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/abhisek/missionkit/internal/logging"
)

// RoutingKeyFinalized is the routing key of SessionFinalized events.
const RoutingKeyFinalized = "mission.session.finalized"

// SessionFinalized is published after a session is finalized.
type SessionFinalized struct {
	SessionID       string    `json:"session_id"`
	StudentID       string    `json:"student_id"`
	TopicID         string    `json:"topic_id"`
	GameTypeID      string    `json:"game_type_id"`
	Score           int       `json:"score"`
	DurationSeconds int       `json:"duration_seconds"`
	CorrectCount    int       `json:"correct_count"`
	WrongCount      int       `json:"wrong_count"`
	Performance     string    `json:"performance,omitempty"`
	Passed          bool      `json:"passed"`
	FinalizedAt     time.Time `json:"finalized_at"`
}

// Publisher delivers session events to downstream consumers.
type Publisher interface {
	PublishFinalized(ctx context.Context, ev SessionFinalized) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishFinalized(context.Context, SessionFinalized) error { return nil }
func (NopPublisher) Close() error                                            { return nil }

// AMQPPublisher publishes JSON events to a durable topic exchange.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	logger   *slog.Logger
}

// NewAMQPPublisher dials url and declares exchange.
func NewAMQPPublisher(url, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange, logger: logging.OrDiscard(logger)}, nil
}

func (p *AMQPPublisher) PublishFinalized(ctx context.Context, ev SessionFinalized) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(pubCtx,
		p.exchange,          // exchange
		RoutingKeyFinalized, // routing key
		false,               // mandatory
		false,               // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    ev.SessionID,
			Timestamp:    ev.FinalizedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", RoutingKeyFinalized, err)
	}
	p.logger.Debug("published event", "routing_key", RoutingKeyFinalized, "session_id", ev.SessionID)
	return nil
}

func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
