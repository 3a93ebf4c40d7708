package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// NATSEventOptions configures the best-effort execution-event publisher.
type NATSEventOptions struct {
	Enabled       bool
	Embedded      bool // start an in-process nats-server instead of dialing URL
	URL           string
	Stream        string
	SubjectPrefix string
}

// NATSEvents publishes execution lifecycle events to a JetStream stream.
// Every publish is best-effort: a nil receiver or a down connection never
// blocks or fails the caller.
type NATSEvents struct {
	opts   NATSEventOptions
	server *natsserver.Server
	conn   *nats.Conn
	js     nats.JetStreamContext
}

// NewNATSEvents starts (or dials) NATS JetStream per opts. Returns
// (nil, nil) when opts.Enabled is false so callers can pass the result
// straight to NewEngine without a nil-check branch.
func NewNATSEvents(opts NATSEventOptions) (*NATSEvents, error) {
	if !opts.Enabled {
		return nil, nil
	}

	e := &NATSEvents{opts: opts}
	if opts.Embedded {
		srv, err := natsserver.NewServer(&natsserver.Options{Port: -1, JetStream: true})
		if err != nil {
			return nil, fmt.Errorf("embedded nats: %w", err)
		}
		go srv.Start()
		if !srv.ReadyForConnections(5 * time.Second) {
			return nil, fmt.Errorf("embedded nats did not become ready")
		}
		e.server = srv
		e.opts.URL = fmt.Sprintf("nats://%s", srv.Addr().String())
	}

	conn, err := nats.Connect(e.opts.URL)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	e.conn = conn

	js, err := conn.JetStream()
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("nats jetstream: %w", err)
	}
	e.js = js

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     opts.Stream,
		Subjects: []string{fmt.Sprintf("%s.>", opts.SubjectPrefix)},
		Storage:  nats.FileStorage,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		e.Close()
		return nil, fmt.Errorf("nats add stream: %w", err)
	}

	return e, nil
}

// PublishExecutionEvent implements EventPublisher.
func (e *NATSEvents) PublishExecutionEvent(ctx context.Context, executionID string, event string, payload interface{}) {
	if e == nil || e.js == nil {
		return
	}
	subject := fmt.Sprintf("%s.execution.%s.%s", e.opts.SubjectPrefix, executionID, event)
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("engine: failed to marshal event %s for execution %s: %v", event, executionID, err)
		return
	}
	if _, err := e.js.Publish(subject, data); err != nil {
		log.Printf("engine: failed to publish event %s for execution %s: %v", event, executionID, err)
	}
}

// Close tears down the connection and, if embedded, the in-process
// server. Safe to call on a nil receiver.
func (e *NATSEvents) Close() {
	if e == nil {
		return
	}
	if e.conn != nil {
		e.conn.Close()
	}
	if e.server != nil {
		e.server.Shutdown()
	}
}
