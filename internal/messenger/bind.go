// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package messenger

import (
	"context"
	"fmt"
	"slices"
)

// Slot holds at most one message of type T per event.
type Slot[T any] struct {
	msg *Message[T]
}

// Get returns the message received in the current event.
func (s *Slot[T]) Get() (*Message[T], bool) {
	return s.msg, s.msg != nil
}

// Multi collects every message of type T received in the current event.
type Multi[T any] struct {
	msgs []*Message[T]
}

// All returns the received messages in dispatch order.
func (s *Multi[T]) All() []*Message[T] {
	return s.msgs
}

// Bind subscribes owner to a single message of type T per event. The
// subscription is always Unique, so a plan with two matching producers fails
// before any event; a second message in the same event is still an error.
// Inputs that accept several producers use BindMulti or Register.
func Bind[T any](m *Messenger, owner Owner, opts ...Option) (*Slot[T], error) {
	slot := &Slot[T]{}
	opts = append(slices.Clone(opts), Unique())
	err := m.subscribe(owner, typeOf[T](), opts, func(_ context.Context, msg BaseMessage) error {
		if slot.msg != nil {
			return fmt.Errorf("received a second %s message from %s in one event (first from %s)",
				msg.TypeName(), msg.Producer(), slot.msg.Producer())
		}
		slot.msg = msg.(*Message[T])
		return nil
	}, func() { slot.msg = nil })
	if err != nil {
		return nil, err
	}
	return slot, nil
}

// BindMulti subscribes owner to every message of type T.
func BindMulti[T any](m *Messenger, owner Owner, opts ...Option) (*Multi[T], error) {
	multi := &Multi[T]{}
	err := m.subscribe(owner, typeOf[T](), opts, func(_ context.Context, msg BaseMessage) error {
		multi.msgs = append(multi.msgs, msg.(*Message[T]))
		return nil
	}, func() { multi.msgs = nil })
	if err != nil {
		return nil, err
	}
	return multi, nil
}

// Register calls fn synchronously for every message of type T.
func Register[T any](m *Messenger, owner Owner, fn func(ctx context.Context, msg *Message[T]) error, opts ...Option) error {
	return m.subscribe(owner, typeOf[T](), opts, func(ctx context.Context, msg BaseMessage) error {
		return fn(ctx, msg.(*Message[T]))
	}, nil)
}

// RegisterFilter calls fn for every message of any type.
func RegisterFilter(m *Messenger, owner Owner, fn func(ctx context.Context, msg BaseMessage) error, opts ...Option) error {
	return m.subscribe(owner, nil, opts, fn, nil)
}

// Publisher dispatches messages of type T on behalf of one module.
type Publisher[T any] struct {
	m          *Messenger
	pub        Publication
	producer   string
	detector   string
	outputName string
}

// Declare registers owner as a producer of T and returns its publisher.
// Messages carry the owner's detector and output name.
func Declare[T any](m *Messenger, owner Owner) (*Publisher[T], error) {
	if m.sealed {
		return nil, fmt.Errorf("%w: cannot declare output of %s", ErrSealed, owner.ModuleName())
	}
	pub := Publication{Owner: owner, Type: typeOf[T](), Detector: owner.DetectorName()}
	if named, ok := owner.(Named); ok {
		pub.Output = named.OutputName()
	}
	m.publishers = append(m.publishers, pub)
	return &Publisher[T]{
		m:          m,
		pub:        pub,
		producer:   owner.ModuleName(),
		detector:   pub.Detector,
		outputName: pub.Output,
	}, nil
}

// Dispatch delivers a copy of objects to every matching subscriber, so the
// caller may reuse its slice. It returns the first delivery error.
func (p *Publisher[T]) Dispatch(ctx context.Context, objects []T) error {
	msg := NewMessage(slices.Clone(objects), p.detector, p.outputName, p.producer)
	return p.m.dispatch(ctx, p.pub.Type, msg)
}
