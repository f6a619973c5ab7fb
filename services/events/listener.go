// Package events consumes mail-ingestion events from RabbitMQ and turns
// them into change notifications for long-poll Ping waiters. The gateway
// never publishes; ingestion lives in a separate service.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/syncgate/syncgate/interfaces"
	"github.com/syncgate/syncgate/internal/logger"
	"github.com/syncgate/syncgate/internal/tracing"
)

const (
	ExchangeMailDirect = "mail-direct"
	QueueMailReceived  = "syncgate-mail-received"
	RoutingKeyReceived = "mail-received"

	defaultReconnectBackoff    = time.Second
	defaultMaxReconnectBackoff = 30 * time.Second
)

// MailReceivedEvent is the payload the ingestion pipeline publishes when a
// message lands in a collection.
type MailReceivedEvent struct {
	PrincipalID  int64  `json:"principalId"`
	CollectionID string `json:"collectionId"`
	ItemID       int64  `json:"itemId"`
}

type Listener struct {
	url       string
	log       logger.Logger
	publisher interfaces.ChangePublisher

	connMutex sync.Mutex
	conn      *amqp091.Connection
}

func NewListener(rabbitmqURL string, log logger.Logger, publisher interfaces.ChangePublisher) *Listener {
	return &Listener{
		url:       rabbitmqURL,
		log:       log,
		publisher: publisher,
	}
}

// Start consumes until ctx is canceled, reconnecting with backoff on
// connection loss. A listener with no broker URL configured is a no-op so
// single-node deployments work without RabbitMQ.
func (l *Listener) Start(ctx context.Context) {
	if l.url == "" {
		l.log.Warn("events listener disabled: no broker URL configured")
		return
	}
	go l.consumeLoop(ctx)
}

func (l *Listener) consumeLoop(ctx context.Context) {
	backoff := defaultReconnectBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		if err := l.consume(ctx); err != nil {
			l.log.Errorf("events listener: %v, reconnecting in %s", err, backoff)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > defaultMaxReconnectBackoff {
			backoff = defaultMaxReconnectBackoff
		}
	}
}

func (l *Listener) consume(ctx context.Context) error {
	conn, err := amqp091.Dial(l.url)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	l.connMutex.Lock()
	l.conn = conn
	l.connMutex.Unlock()
	defer conn.Close()

	channel, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "channel")
	}
	defer channel.Close()

	if err := channel.ExchangeDeclare(ExchangeMailDirect, "direct", true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "exchange declare")
	}
	if _, err := channel.QueueDeclare(QueueMailReceived, true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "queue declare")
	}
	if err := channel.QueueBind(QueueMailReceived, RoutingKeyReceived, ExchangeMailDirect, false, nil); err != nil {
		return errors.Wrap(err, "queue bind")
	}

	deliveries, err := channel.Consume(QueueMailReceived, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "consume")
	}

	l.log.Infof("events listener consuming from %s", QueueMailReceived)
	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			l.handleDelivery(ctx, delivery)
		}
	}
}

func (l *Listener) handleDelivery(ctx context.Context, delivery amqp091.Delivery) {
	span, _ := tracing.StartTracerSpan(ctx, "eventsListener.handleDelivery")
	defer span.Finish()
	tracing.TagComponentListener(span)

	var event MailReceivedEvent
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		tracing.TraceErr(span, err)
		l.log.Warnf("events listener: dropping undecodable message: %v", err)
		// Poison message, do not requeue.
		_ = delivery.Nack(false, false)
		return
	}
	if event.PrincipalID == 0 || event.CollectionID == "" {
		l.log.Warnf("events listener: dropping incomplete event %+v", event)
		_ = delivery.Nack(false, false)
		return
	}

	span.SetTag(tracing.SpanTagPrincipalId, event.PrincipalID)
	span.SetTag(tracing.SpanTagCollectionId, event.CollectionID)
	l.publisher.PublishChange(event.PrincipalID, event.CollectionID)
	_ = delivery.Ack(false)
}

func (l *Listener) Stop() {
	l.connMutex.Lock()
	defer l.connMutex.Unlock()
	if l.conn != nil && !l.conn.IsClosed() {
		_ = l.conn.Close()
	}
}
