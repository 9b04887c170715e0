package outbox

import (
	"context"
	"time"

	"venuebook/internal/pkg/config"
	"venuebook/internal/pkg/errs"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher delivers a drained outbox job to the downstream broker.
type Publisher interface {
	Publish(ctx context.Context, kind, topic string, payload []byte) error
}

// AMQPPublisher publishes to a durable queue per job kind on the default
// exchange. It dials per publish; the worker's throughput is bounded by
// the poll interval, so connection churn stays negligible.
type AMQPPublisher struct {
	cfg config.BrokerConfig
}

func NewAMQPPublisher(cfg config.BrokerConfig) *AMQPPublisher {
	return &AMQPPublisher{cfg: cfg}
}

var _ Publisher = (*AMQPPublisher)(nil)

func (p *AMQPPublisher) Publish(ctx context.Context, kind, topic string, payload []byte) error {
	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return errs.Wrap(err, "failed to dial broker")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return errs.Wrap(err, "failed to open channel")
	}
	defer func() { _ = ch.Close() }()

	queue := p.cfg.QueuePrefix + "." + kind

	// Durable so jobs survive broker restarts.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return errs.Wrap(err, "failed to declare queue")
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         topic,
		Body:         payload,
	}

	pctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	if err := ch.PublishWithContext(pctx, "", queue, false, false, pub); err != nil {
		return errs.Wrap(err, "failed to publish job")
	}
	return nil
}
