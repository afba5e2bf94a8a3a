package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/jagawarga-anonymizer/internal/core/domain"
)

// Bus is the process-wide NATS handle. Publish is fire-and-forget: success
// means the message reached the client's outbound buffer.
type Bus struct {
	conn         *nats.Conn
	closed       chan struct{}
	drainTimeout time.Duration
}

type Options struct {
	Name                 string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	DrainTimeout         time.Duration
	RetryOnFailedConnect *bool
}

func NewWithOptions(url string, options Options) (*Bus, error) {
	name := options.Name
	if name == "" {
		name = "jagawarga-anonymizer"
	}
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 10
	}
	drainTimeout := options.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = 5 * time.Second
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	closed := make(chan struct{})
	var closeOnce sync.Once

	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DrainTimeout(drainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			slog.Info("nats_closed")
			closeOnce.Do(func() { close(closed) })
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Bus{conn: conn, closed: closed, drainTimeout: drainTimeout}, nil
}

// Close drains pending publishes and subscriptions and blocks until the
// connection reports closed, at most drainTimeout plus one second.
func (b *Bus) Close() {
	if b == nil || b.conn == nil || b.conn.IsClosed() {
		return
	}
	if err := b.conn.Drain(); err != nil {
		slog.Warn("nats_drain_failed", "error", err)
		b.conn.Close()
	}
	if !waitClosed(b.closed, b.drainTimeout+time.Second) {
		slog.Warn("nats_drain_timeout", "timeout", b.drainTimeout.String())
		b.conn.Close()
	}
}

func waitClosed(done <-chan struct{}, timeout time.Duration) bool {
	if done == nil {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

func (b *Bus) Publish(_ context.Context, subject string, payload any) error {
	data, err := encodePayload(subject, payload)
	if err != nil {
		return err
	}
	if b.conn == nil {
		return fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed)
	}
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Check fails unless the connection is currently established.
func (b *Bus) Check(context.Context) error {
	if b == nil || b.conn == nil {
		return errors.New("nats handle is not initialized")
	}
	if status := b.conn.Status(); status != nats.CONNECTED {
		return fmt.Errorf("nats status: %s", status)
	}
	return nil
}

// SubscribeReportCreated consumes report.created events in a queue group until ctx ends.
func (b *Bus) SubscribeReportCreated(
	ctx context.Context,
	subject, group string,
	handler func(context.Context, domain.ReportCreated) error,
) error {
	sub, err := b.conn.QueueSubscribe(subject, group, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		event, err := decodeReportCreated(msg.Data)
		if err != nil {
			slog.Error("report_event_decode_failed", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, event); err != nil {
			slog.Error("report_event_handler_failed", "report_id", event.ReportID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := b.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodePayload(subject string, payload any) ([]byte, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, fmt.Errorf("nats publish: %w", nats.ErrBadSubject)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", subject, err)
	}
	return data, nil
}

func decodeReportCreated(data []byte) (domain.ReportCreated, error) {
	var event domain.ReportCreated
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.ReportCreated{}, fmt.Errorf("decode report event: %w", err)
	}
	if event.ReportID == "" {
		return domain.ReportCreated{}, errors.New("decode report event: missing report_id")
	}
	return event, nil
}
