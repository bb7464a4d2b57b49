package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rpggio/firstcall/internal/domain/firstcall"
)

// DefaultFinalizedSubject is where finalized cases are announced.
const DefaultFinalizedSubject = "firstcall.case.finalized"

// FlushWithContext refuses contexts without a deadline.
const flushTimeout = 5 * time.Second

// NATSPublisher republishes finalized cases for out-of-process consumers.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("firstcall"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	if subject == "" {
		subject = DefaultFinalizedSubject
	}
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Handle publishes ev and flushes so a failure surfaces to the dispatcher,
// which retries the event.
func (p *NATSPublisher) Handle(ctx context.Context, ev firstcall.CaseFinalized) error {
	data, err := EncodeFinalized(ev)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, ev.EventID)
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publishing %s: %w", p.subject, err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flushing nats: %w", err)
	}
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// EncodeFinalized is the wire form published for a finalized case.
func EncodeFinalized(ev firstcall.CaseFinalized) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding finalized case: %w", err)
	}
	return data, nil
}
