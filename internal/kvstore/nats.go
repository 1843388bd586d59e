package kvstore

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/logfields"
)

// NATS stores keys in a JetStream key-value bucket.
type NATS struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// NewNATS connects to url and opens bucket, creating it when missing.
func NewNATS(ctx context.Context, url, bucket string) (*NATS, error) {
	conn, err := nats.Connect(url, nats.Name("pageboot-session-store"))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", url).Build()
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryStorage, "failed to create JetStream context").Build()
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	kv, err := js.KeyValue(ctx, bucket)
	if stderrors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "pageboot session values",
			History:     1,
			TTL:         24 * time.Hour,
		})
		if err == nil {
			slog.Info("Created KV bucket for session values", slog.String("bucket", bucket))
		}
	}
	if err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryStorage, "failed to open KV bucket").
			WithContext("bucket", bucket).Build()
	}

	slog.Debug("NATS session store initialized", logfields.URL(url), slog.String("bucket", bucket))
	return &NATS{conn: conn, kv: kv}, nil
}

func (n *NATS) Get(ctx context.Context, key string) (string, bool, error) {
	entry, err := n.kv.Get(ctx, key)
	if stderrors.Is(err, jetstream.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WrapError(err, errors.CategoryStorage, "failed to get session value").
			WithContext("key", key).Build()
	}
	return string(entry.Value()), true, nil
}

func (n *NATS) Set(ctx context.Context, key, value string) error {
	if _, err := n.kv.PutString(ctx, key, value); err != nil {
		return errors.WrapError(err, errors.CategoryStorage, "failed to put session value").
			WithContext("key", key).Build()
	}
	return nil
}

func (n *NATS) Close() error {
	n.conn.Close()
	return nil
}
