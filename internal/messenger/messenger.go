// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package messenger

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// ErrSealed is returned when registering on a sealed bus.
var ErrSealed = errors.New("messenger: bus is sealed")

// Owner identifies the module instance behind a registration.
type Owner interface {
	// ModuleName returns the unique instance identifier.
	ModuleName() string
	// DetectorName returns the bound detector, or "" for global modules.
	DetectorName() string
}

// Named is implemented by owners that tag or filter messages by name.
type Named interface {
	InputName() string
	OutputName() string
}

// Publication is a declared output.
type Publication struct {
	Owner    Owner
	Type     reflect.Type
	Detector string
	Output   string
}

// Subscription is a registered input. A nil Type accepts every type.
type Subscription struct {
	Owner      Owner
	Type       reflect.Type
	Detector   string
	Input      string
	Required   bool
	Unique     bool
	IgnoreName bool
}

// TypeName returns the accepted type name, or "*" for filters.
func (s Subscription) TypeName() string {
	if s.Type == nil {
		return "*"
	}
	return s.Type.Name()
}

// Accepts reports whether messages of p would be delivered to s.
func (s Subscription) Accepts(p Publication) bool {
	if s.Type != nil && s.Type != p.Type {
		return false
	}
	return detectorMatches(p.Detector, s.Detector) && s.nameMatches(p.Output)
}

func (s Subscription) nameMatches(name string) bool {
	return s.IgnoreName || s.Input == "*" || s.Input == name
}

func detectorMatches(message, subscriber string) bool {
	return message == "" || subscriber == "" || message == subscriber
}

// Option modifies a subscription.
type Option func(*Subscription)

// Required marks the input as mandatory: the plan fails without a producer
// and the module is skipped for events in which it received nothing.
func Required() Option { return func(s *Subscription) { s.Required = true } }

// Unique allows at most one producer of the type for the owner's detector.
func Unique() Option { return func(s *Subscription) { s.Unique = true } }

// IgnoreName accepts messages regardless of their output name.
func IgnoreName() Option { return func(s *Subscription) { s.IgnoreName = true } }

type subscriber struct {
	Subscription
	deliver  func(ctx context.Context, msg BaseMessage) error
	reset    func()
	received int
}

// Messenger is the message bus. It is not safe for concurrent use; the
// executor runs modules one at a time.
type Messenger struct {
	sealed      bool
	subscribers []*subscriber
	publishers  []Publication
	dispatched  uint64
}

// New creates an empty, unsealed bus.
func New() *Messenger {
	return &Messenger{}
}

// Seal forbids further registration.
func (m *Messenger) Seal() { m.sealed = true }

// Sealed reports whether Seal was called.
func (m *Messenger) Sealed() bool { return m.sealed }

// Publications returns the declared outputs in registration order.
func (m *Messenger) Publications() []Publication {
	out := make([]Publication, len(m.publishers))
	copy(out, m.publishers)
	return out
}

// Subscriptions returns the registered inputs in registration order.
func (m *Messenger) Subscriptions() []Subscription {
	out := make([]Subscription, len(m.subscribers))
	for i, s := range m.subscribers {
		out[i] = s.Subscription
	}
	return out
}

// Dispatched returns the number of messages dispatched so far.
func (m *Messenger) Dispatched() uint64 { return m.dispatched }

// StartEvent clears the per-event state of every subscription.
func (m *Messenger) StartEvent() {
	for _, s := range m.subscribers {
		s.received = 0
		if s.reset != nil {
			s.reset()
		}
	}
}

// Satisfied reports whether every required input of owner received at least
// one message in the current event. Owners are matched by ModuleName.
func (m *Messenger) Satisfied(owner Owner) bool {
	name := owner.ModuleName()
	for _, s := range m.subscribers {
		if s.Owner.ModuleName() == name && s.Required && s.received == 0 {
			return false
		}
	}
	return true
}

// Received returns how many messages the owner's subscriptions received in
// the current event.
func (m *Messenger) Received(owner Owner) int {
	name, n := owner.ModuleName(), 0
	for _, s := range m.subscribers {
		if s.Owner.ModuleName() == name {
			n += s.received
		}
	}
	return n
}

func (m *Messenger) subscribe(owner Owner, typ reflect.Type, opts []Option, deliver func(context.Context, BaseMessage) error, reset func()) error {
	if m.sealed {
		return fmt.Errorf("%w: cannot subscribe %s", ErrSealed, owner.ModuleName())
	}
	s := &subscriber{
		Subscription: Subscription{Owner: owner, Type: typ, Detector: owner.DetectorName()},
		deliver:      deliver,
		reset:        reset,
	}
	if named, ok := owner.(Named); ok {
		s.Input = named.InputName()
	}
	for _, opt := range opts {
		opt(&s.Subscription)
	}
	m.subscribers = append(m.subscribers, s)
	return nil
}

func (m *Messenger) dispatch(ctx context.Context, typ reflect.Type, msg BaseMessage) error {
	m.dispatched++
	for _, s := range m.subscribers {
		if s.Type != nil && s.Type != typ {
			continue
		}
		if !detectorMatches(msg.Detector(), s.Detector) || !s.nameMatches(msg.Name()) {
			continue
		}
		if err := s.deliver(ctx, msg); err != nil {
			return fmt.Errorf("delivering %s from %s to %s: %w", msg.TypeName(), msg.Producer(), s.Owner.ModuleName(), err)
		}
		s.received++
	}
	return nil
}
