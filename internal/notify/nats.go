package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the subject alerts are published on.
const DefaultSubject = "pulsecheck.alerts"

// Publisher is the subset of *nats.Conn used by [NATS].
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Alert is the JSON document published for each message.
type Alert struct {
	Phone   string    `json:"phone"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

// NATS publishes alerts to a subject.
type NATS struct {
	pub     Publisher
	subject string
	conn    *nats.Conn
	now     func() time.Time
}

// NewNATS wraps an existing publisher.
func NewNATS(pub Publisher, subject string) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{pub: pub, subject: subject, now: time.Now}
}

// DialNATS connects to the server at url and returns a gateway owning the
// connection.
func DialNATS(url, subject string) (*NATS, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, nats.Name("pulsecheck"))
	if err != nil {
		return nil, fmt.Errorf("nats: connect %s: %w", url, err)
	}
	g := NewNATS(nc, subject)
	g.conn = nc
	return g, nil
}

func (n *NATS) Send(_ context.Context, phone, message string) error {
	phone, message, err := normalize(phone, message)
	if err != nil {
		return err
	}

	data, err := json.Marshal(Alert{Phone: phone, Message: message, SentAt: n.now().UTC()})
	if err != nil {
		return fmt.Errorf("nats: encode alert: %w", err)
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return fmt.Errorf("nats: publish %s: %w", n.subject, err)
	}
	return nil
}

// Close drains and closes the connection opened by DialNATS.
func (n *NATS) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
