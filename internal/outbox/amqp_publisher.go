package outbox

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// AMQPPublisher relays outbox messages to a RabbitMQ queue for external
// consumers. Messages are published persistent; broker-side consumers must
// dedupe on the message id.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func NewAMQPPublisher(url string, queueName string) (*AMQPPublisher, error) {
	var conn *amqp.Connection
	var err error

	// The broker can lag behind the service at startup.
	for i := 0; i < 10; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.WithError(err).Warnf("Failed to connect to AMQP broker, retrying in 2s (%d/10)", i+1)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if _, err = ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &AMQPPublisher{conn: conn, channel: ch, queue: queueName}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, messageID string, eventType string, payload []byte) error {
	err := p.channel.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			MessageId:    messageID,
			Type:         eventType,
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() {
	p.channel.Close()
	p.conn.Close()
}

// FanoutPublisher delivers each message to every configured publisher; any
// failure leaves the message unprocessed for retry.
type FanoutPublisher []Publisher

func (f FanoutPublisher) Publish(ctx context.Context, messageID string, eventType string, payload []byte) error {
	for _, p := range f {
		if err := p.Publish(ctx, messageID, eventType, payload); err != nil {
			return err
		}
	}
	return nil
}
