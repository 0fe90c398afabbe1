// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package messenger

import "reflect"

// BaseMessage is the type-erased view of a Message, used by filters and by
// the executor.
type BaseMessage interface {
	Detector() string
	Name() string
	Producer() string
	Len() int
	Payload() any
	TypeName() string
}

// Message is an immutable list of objects of one type, tagged with the
// detector it belongs to and the module that produced it.
type Message[T any] struct {
	objects  []T
	detector string
	name     string
	producer string
}

// NewMessage builds a message. It is exported for tests; modules dispatch
// through a Publisher.
func NewMessage[T any](objects []T, detector, name, producer string) *Message[T] {
	return &Message[T]{objects: objects, detector: detector, name: name, producer: producer}
}

// Objects returns the payload. Callers must not modify it.
func (m *Message[T]) Objects() []T { return m.objects }

// Detector returns the detector name, or "" for a detector independent message.
func (m *Message[T]) Detector() string { return m.detector }

// Name returns the output name the producer tagged the message with.
func (m *Message[T]) Name() string { return m.name }

// Producer returns the identifier of the producing module.
func (m *Message[T]) Producer() string { return m.producer }

// Len returns the number of objects.
func (m *Message[T]) Len() int { return len(m.objects) }

// Payload returns Objects as any.
func (m *Message[T]) Payload() any { return m.objects }

// TypeName returns the name of T.
func (m *Message[T]) TypeName() string { return typeOf[T]().Name() }

func typeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}
