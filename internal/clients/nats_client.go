package clients

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/EZGGdotxyz/ezgg-service/internal/metrics"
)

// NATSClient publishes notification events. Subjects take the form
// <prefix>.notification.<subject>.<action>.
type NATSClient struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSClient connects to the NATS server. Reconnects indefinitely.
func NewNATSClient(url, prefix string, timeout time.Duration) (*NATSClient, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	conn, err := nats.Connect(url,
		nats.Timeout(timeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logrus.WithError(err).Warn("nats disconnected")
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logrus.Info("nats reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	metrics.NATSConnectionStatus.Set(1)
	return &NATSClient{conn: conn, prefix: prefix}, nil
}

// Publish marshals payload and publishes it under prefix.topic.
func (c *NATSClient) Publish(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode nats payload: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", c.prefix, topic)
	if err := c.conn.Publish(subject, data); err != nil {
		metrics.NATSPublishFailed.WithLabelValues(subject).Inc()
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	metrics.NATSMessagesPublished.WithLabelValues(subject).Inc()
	return nil
}

// Close drains and closes the connection.
func (c *NATSClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
