package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
	"github.com/kirillkom/plant-id-assistant/internal/infrastructure/resilience"
)

const (
	queueGroup = "history-workers"

	defaultClientName     = "plant-id-assistant"
	defaultConnectTimeout = 2 * time.Second
	defaultReconnectWait  = 2 * time.Second
	defaultMaxReconnects  = 60
)

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

// Options tunes the connection. Zero values select the defaults above; reconnect on a
// failed first connect stays enabled unless RetryOnFailedConnect points to false.
type Options struct {
	Name                 string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	conn, err := nats.Connect(url, connectOptions(options)...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func connectOptions(options Options) []nats.Option {
	name := options.Name
	if name == "" {
		name = defaultClientName
	}
	retryOnFailedConnect := options.RetryOnFailedConnect == nil || *options.RetryOnFailedConnect

	return []nats.Option{
		nats.Name(name),
		nats.Timeout(positiveOr(options.ConnectTimeout, defaultConnectTimeout)),
		nats.ReconnectWait(positiveOr(options.ReconnectWait, defaultReconnectWait)),
		nats.MaxReconnects(positiveOr(options.MaxReconnects, defaultMaxReconnects)),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			slog.Error("nats_async_error", "subject", subject, "error", err)
		}),
	}
}

func positiveOr[T time.Duration | int](value, fallback T) T {
	if value <= 0 {
		return fallback
	}
	return value
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishIdentificationRecorded(ctx context.Context, event domain.IdentificationRecorded) error {
	msg, err := encodeEvent(q.subject, event)
	if err != nil {
		return err
	}

	err = q.executor.Execute(ctx, "nats.publish", func(context.Context) error {
		if err := q.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
	return wrapTemporaryIfNeeded(err)
}

// SubscribeIdentificationRecorded consumes events in the worker queue group until ctx is done,
// then drains in-flight messages.
func (q *Queue) SubscribeIdentificationRecorded(
	ctx context.Context,
	handler func(context.Context, domain.IdentificationRecorded) error,
) error {
	sub, err := q.conn.QueueSubscribe(q.subject, queueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		event, err := decodeEvent(msg)
		if err != nil {
			slog.Error("history_event_decode_failed", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, event); err != nil {
			slog.Error("history_event_handler_failed", "result_id", event.Result.ID, "user_id", event.UserID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
