package changefeed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// NotifyChannel is the channel the change trigger installed by the migrations notifies.
const NotifyChannel = "menuya_changes"

// PostgresListener relays NOTIFY payloads from the change trigger into a Dispatcher.
type PostgresListener struct {
	dsn        string
	dispatcher *Dispatcher
	log        *zap.Logger
	backoff    time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPostgresListener(dsn string, dispatcher *Dispatcher, log *zap.Logger) *PostgresListener {
	return &PostgresListener{
		dsn:        dsn,
		dispatcher: dispatcher,
		log:        log.Named("changefeed.postgres"),
		backoff:    2 * time.Second,
	}
}

func (l *PostgresListener) Start(ctx context.Context) error {
	conn, err := l.connect(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(runCtx, conn)
	return nil
}

func (l *PostgresListener) Stop(ctx context.Context) error {
	if l.cancel == nil {
		return nil
	}
	l.cancel()
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *PostgresListener) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}
	return conn, nil
}

func (l *PostgresListener) run(ctx context.Context, conn *pgx.Conn) {
	defer close(l.done)
	defer func() {
		if conn != nil {
			_ = conn.Close(context.Background())
		}
	}()

	for {
		if conn == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.backoff):
			}
			next, err := l.connect(ctx)
			if err != nil {
				l.log.Warn("change feed reconnect failed", zap.Error(err))
				continue
			}
			conn = next
			l.log.Info("change feed reconnected")
		}

		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			l.log.Warn("change feed connection lost", zap.Error(err))
			_ = conn.Close(context.Background())
			conn = nil
			continue
		}

		evt, err := DecodeEvent([]byte(notification.Payload))
		if err != nil {
			l.log.Warn("change feed payload ignored", zap.Error(err))
			continue
		}
		l.dispatcher.Dispatch(evt)
	}
}

// DecodeEvent parses a trigger payload, keeping numbers exact so snowflake ids survive.
func DecodeEvent(payload []byte) (Event, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var evt Event
	if err := dec.Decode(&evt); err != nil {
		return Event{}, err
	}
	if evt.Table == "" {
		return Event{}, ErrInvalidTable
	}
	return evt, nil
}
