// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package events publishes account lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects of the published events.
const (
	UserRegistered      = "user.registered"
	UserEmailVerified   = "user.email_verified"
	UserLoggedIn        = "user.logged_in"
	UserLoggedOut       = "user.logged_out"
	UserUpdated         = "user.updated"
	UserPasswordChanged = "user.password_changed"
	UserDeleted         = "user.deleted"
)

// Event is the payload of every account event. It never carries secrets.
type Event struct {
	UserID string            `json:"userId"`
	Email  string            `json:"email,omitempty"`
	At     time.Time         `json:"at"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

// Publisher delivers events to subscribers outside the process.
type Publisher interface {
	Publish(ctx context.Context, subject string, event Event) error
	Close()
}

// NATSPublisher publishes JSON events on core NATS subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher connects to url. Subjects are prefixed with prefix and a dot
// when prefix is not empty.
func NewNATSPublisher(url, prefix string, opts ...nats.Option) (*NATSPublisher, error) {
	opts = append([]nats.Option{nats.Name("jobboard")}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: nc, prefix: prefix}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if p.prefix != "" {
		subject = p.prefix + "." + subject
	}
	return p.conn.Publish(subject, data)
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
func (NopPublisher) Close() {}

// Recorder keeps published events in memory. Tests use it to assert on the
// event stream.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
	Err    error
}

// Recorded is an event with its subject.
type Recorded struct {
	Subject string
	Event   Event
}

func (r *Recorder) Publish(_ context.Context, subject string, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, Recorded{Subject: subject, Event: event})
	return nil
}

func (r *Recorder) Close() {}

// Subjects returns the subjects published so far, in order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Subject
	}
	return out
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}

// New returns a NATS publisher for url, or a NopPublisher when url is empty.
func New(url string) (Publisher, error) {
	if url == "" {
		return NopPublisher{}, nil
	}
	return NewNATSPublisher(url, "jobboard")
}
