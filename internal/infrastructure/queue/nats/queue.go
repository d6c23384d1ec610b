package nats

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/gradeflow/gradeflow/internal/infrastructure/resilience"
)

// Queue carries fire-and-forget "process this submission" signals. Consumers
// join a queue group so each signal lands on exactly one worker instance.
type Queue struct {
	conn        *nats.Conn
	subject     string
	maxInFlight int
	executor    *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	MaxInFlight          int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, subject string, maxInFlight int) (*Queue, error) {
	return NewWithOptions(url, subject, Options{MaxInFlight: maxInFlight})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	maxInFlight := options.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 4
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		// Per-instance connection name so individual workers are
		// distinguishable in NATS monitoring.
		nats.Name("gradeflow-worker-"+uuid.NewString()[:8]),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:        conn,
		subject:     subject,
		maxInFlight: maxInFlight,
		executor:    options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishSubmissionProcess(ctx context.Context, submissionID string) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, []byte(submissionID)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeSubmissionProcess consumes submission ids until ctx is cancelled.
// Handlers run on a pool bounded by maxInFlight: extraction and vector-space
// construction are CPU-heavy, so unbounded fan-out would oversubscribe the
// host. Blocking in the callback when the pool is full applies backpressure
// through the subscription's pending buffer.
func (q *Queue) SubscribeSubmissionProcess(ctx context.Context, handler func(context.Context, string) error) error {
	slots := make(chan struct{}, q.maxInFlight)
	var wg sync.WaitGroup

	sub, err := q.conn.QueueSubscribe(q.subject, "graders", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		submissionID := string(msg.Data)

		slots <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-slots }()

			handlerCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			if err := handler(handlerCtx, submissionID); err != nil {
				log.Printf("worker handler error for submission=%s: %v", submissionID, err)
			}
		}()
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
	wg.Wait()
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
