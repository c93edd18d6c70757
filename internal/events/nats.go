package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSBus publishes to and subscribes from NATS subjects named after topics.
type NATSBus struct {
	conn *nats.Conn
	log  *zap.Logger
}

func NewNATSBus(url string, log *zap.Logger) (*NATSBus, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := nats.Connect(url, nats.Name("hot-desking"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSBus{conn: conn, log: log}, nil
}

func (n *NATSBus) Publish(ctx context.Context, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	msg := nats.NewMsg(topic)
	msg.Header.Set("key", key)
	msg.Data = data
	if err := n.conn.PublishMsg(msg); err != nil {
		return err
	}
	n.log.Debug("published event", zap.String("subject", topic), zap.String("key", key))
	return nil
}

func (n *NATSBus) Close() error {
	n.conn.Close()
	return nil
}

// Subscription returns a queue subscriber on topic. Workers sharing queue
// split the messages between them.
func (n *NATSBus) Subscription(topic, queue string) *NATSSubscription {
	return &NATSSubscription{bus: n, topic: topic, queue: queue}
}

type NATSSubscription struct {
	bus   *NATSBus
	topic string
	queue string
}

func (s *NATSSubscription) Consume(ctx context.Context, handler Handler) error {
	errCh := make(chan error, 1)
	sub, err := s.bus.conn.QueueSubscribe(s.topic, s.queue, func(msg *nats.Msg) {
		event, err := Decode(msg.Data)
		if err != nil {
			s.bus.log.Warn("skipping message", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		if err := handler(ctx, event); err != nil {
			select {
			case errCh <- err:
			default:
			}
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}
	defer sub.Unsubscribe()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *NATSSubscription) Close() error {
	return s.bus.Close()
}

var (
	_ Publisher  = (*NATSBus)(nil)
	_ Subscriber = (*NATSSubscription)(nil)
)
