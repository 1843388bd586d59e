package rum

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/logfields"
)

// LogSink writes events to a slog logger at info level.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Send(ctx context.Context, e Event) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "RUM checkpoint",
		logfields.Checkpoint(e.Checkpoint),
		logfields.PageID(e.ID),
		slog.String("source", e.Source),
		slog.String("target", e.Target),
		slog.Int("weight", e.Weight),
		slog.String("referer", e.Referer),
		slog.Int64("t", e.T),
	)
	return nil
}

// NATSSink publishes events as JSON on a subject.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink connects to url and publishes on subject.
func NewNATSSink(url, subject string) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("pageboot-rum"))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", url).Build()
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

// NewNATSSinkConn publishes on an existing connection.
func NewNATSSinkConn(conn *nats.Conn, subject string) *NATSSink {
	return &NATSSink{conn: conn, subject: subject}
}

func (s *NATSSink) Send(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := s.conn.Publish(s.subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to publish RUM event").
			WithContext("subject", s.subject).Build()
	}
	return nil
}

// Close drains the connection.
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}

// MultiSink sends to every sink and returns the first error.
type MultiSink []Sink

func (m MultiSink) Send(ctx context.Context, e Event) error {
	var first error
	for _, s := range m {
		if err := s.Send(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
