// Package notify publishes cycle reports to an AMQP topic exchange.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/gymbook/internal/scheduler"
)

// RoutingKey is "cycle.<action>", e.g. cycle.booked or cycle.give_up.
func RoutingKey(a scheduler.Action) string { return "cycle." + string(a) }

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a connection and a channel with the exchange declared.
type dialFunc func() (channel, func() error, error)

type Notifier struct {
	exchange string
	logger   *slog.Logger
	dial     dialFunc

	mu        sync.Mutex
	ch        channel
	closeConn func() error
}

// Dial connects to url and declares exchange as a durable topic exchange.
func Dial(url, exchange string, logger *slog.Logger) (*Notifier, error) {
	dial := func() (channel, func() error, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("dial amqp: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("open channel: %w", err)
		}
		if err := ch.ExchangeDeclare(
			exchange,
			amqp.ExchangeTopic,
			true,  // durable
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
		}
		return ch, conn.Close, nil
	}
	return newNotifier(exchange, logger, dial)
}

func newNotifier(exchange string, logger *slog.Logger, dial dialFunc) (*Notifier, error) {
	n := &Notifier{
		exchange: exchange,
		logger:   logger.With("component", "notify"),
		dial:     dial,
	}
	ch, closeConn, err := dial()
	if err != nil {
		return nil, err
	}
	n.ch, n.closeConn = ch, closeConn
	n.logger.Info("connected to RabbitMQ", "exchange", exchange)
	return n, nil
}

// Record publishes rep. A closed channel is redialled once.
func (n *Notifier) Record(ctx context.Context, rep scheduler.Report) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.New().String(),
		Timestamp:    rep.StartedAt,
		Type:         string(rep.Action),
		Body:         body,
	}
	key := RoutingKey(rep.Action)

	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.publish(ctx, key, msg)
	if errors.Is(err, amqp.ErrClosed) {
		n.logger.Warn("channel closed, reconnecting")
		if rerr := n.redial(); rerr != nil {
			return errors.Join(err, rerr)
		}
		err = n.publish(ctx, key, msg)
	}
	if err != nil {
		return err
	}

	n.logger.Debug("published report",
		"exchange", n.exchange,
		"routing_key", key,
		"message_id", msg.MessageId,
	)
	return nil
}

func (n *Notifier) publish(ctx context.Context, key string, msg amqp.Publishing) error {
	if n.ch == nil {
		return amqp.ErrClosed
	}
	if err := n.ch.PublishWithContext(ctx, n.exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("publish to %s/%s: %w", n.exchange, key, err)
	}
	return nil
}

func (n *Notifier) redial() error {
	n.closeLocked()
	ch, closeConn, err := n.dial()
	if err != nil {
		return err
	}
	n.ch, n.closeConn = ch, closeConn
	return nil
}

func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closeLocked()
}

func (n *Notifier) closeLocked() error {
	var errs []error
	if n.ch != nil {
		if err := n.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
		n.ch = nil
	}
	if n.closeConn != nil {
		if err := n.closeConn(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
		n.closeConn = nil
	}
	return errors.Join(errs...)
}
