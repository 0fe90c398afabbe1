package messenger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOwner struct {
	name, detector, input, output string
}

func (o *fakeOwner) ModuleName() string { return o.name }
func (o *fakeOwner) DetectorName() string { return o.detector }
func (o *fakeOwner) InputName() string { return o.input }
func (o *fakeOwner) OutputName() string { return o.output }

type hit struct{ value int }

func TestDispatch_NoSubscribersIsNoop(t *testing.T) {
	m := New()
	pub, err := Declare[hit](m, &fakeOwner{name: "Producer"})
	require.NoError(t, err)

	assert.NoError(t, pub.Dispatch(context.Background(), []hit{{1}}))
	assert.Equal(t, uint64(1), m.Dispatched())
}

func TestDispatch_DetectorRouting(t *testing.T) {
	m := New()
	ctx := context.Background()

	dutProducer := &fakeOwner{name: "Producer:dut", detector: "dut"}
	globalProducer := &fakeOwner{name: "Producer"}
	dutConsumer := &fakeOwner{name: "Consumer:dut", detector: "dut"}
	refConsumer := &fakeOwner{name: "Consumer:ref", detector: "ref"}
	anyConsumer := &fakeOwner{name: "Consumer"}

	dutPub, err := Declare[hit](m, dutProducer)
	require.NoError(t, err)
	globalPub, err := Declare[hit](m, globalProducer)
	require.NoError(t, err)

	dutIn, err := BindMulti[hit](m, dutConsumer)
	require.NoError(t, err)
	refIn, err := BindMulti[hit](m, refConsumer)
	require.NoError(t, err)
	anyIn, err := BindMulti[hit](m, anyConsumer)
	require.NoError(t, err)

	require.NoError(t, dutPub.Dispatch(ctx, []hit{{1}}))
	assert.Len(t, dutIn.All(), 1)
	assert.Empty(t, refIn.All(), "a dut message never reaches a ref subscriber")
	assert.Len(t, anyIn.All(), 1)

	require.NoError(t, globalPub.Dispatch(ctx, []hit{{2}}))
	assert.Len(t, dutIn.All(), 2)
	assert.Len(t, refIn.All(), 1)
	assert.Len(t, anyIn.All(), 2)

	msg := dutIn.All()[0]
	assert.Equal(t, "dut", msg.Detector())
	assert.Equal(t, "Producer:dut", msg.Producer())
	assert.Equal(t, "hit", msg.TypeName())
	assert.Equal(t, []hit{{1}}, msg.Objects())
}

func TestDispatch_RegistrationOrder(t *testing.T) {
	m := New()
	ctx := context.Background()
	var order []string

	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, Register(m, &fakeOwner{name: name}, func(_ context.Context, _ *Message[hit]) error {
			order = append(order, name)
			return nil
		}))
	}
	pub, err := Declare[hit](m, &fakeOwner{name: "Producer"})
	require.NoError(t, err)

	require.NoError(t, pub.Dispatch(ctx, nil))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestDispatch_Names(t *testing.T) {
	m := New()
	ctx := context.Background()

	tagged, err := Declare[hit](m, &fakeOwner{name: "Tagged", output: "fast"})
	require.NoError(t, err)

	plain, err := BindMulti[hit](m, &fakeOwner{name: "Plain"})
	require.NoError(t, err)
	selective, err := BindMulti[hit](m, &fakeOwner{name: "Selective", input: "fast"})
	require.NoError(t, err)
	wildcard, err := BindMulti[hit](m, &fakeOwner{name: "Wildcard", input: "*"})
	require.NoError(t, err)
	ignoring, err := BindMulti[hit](m, &fakeOwner{name: "Ignoring", input: "slow"}, IgnoreName())
	require.NoError(t, err)

	require.NoError(t, tagged.Dispatch(ctx, []hit{{1}}))
	assert.Empty(t, plain.All())
	assert.Len(t, selective.All(), 1)
	assert.Len(t, wildcard.All(), 1)
	assert.Len(t, ignoring.All(), 1)
	assert.Equal(t, "fast", selective.All()[0].Name())
}

func TestBind_SecondMessageInEventFails(t *testing.T) {
	m := New()
	ctx := context.Background()

	consumer := &fakeOwner{name: "Consumer"}
	slot, err := Bind[hit](m, consumer)
	require.NoError(t, err)
	pub, err := Declare[hit](m, &fakeOwner{name: "Producer"})
	require.NoError(t, err)

	_, ok := slot.Get()
	assert.False(t, ok)

	require.NoError(t, pub.Dispatch(ctx, []hit{{1}}))
	msg, ok := slot.Get()
	require.True(t, ok)
	assert.Equal(t, 1, msg.Len())

	err = pub.Dispatch(ctx, []hit{{2}})
	assert.ErrorContains(t, err, "second hit message")

	m.StartEvent()
	_, ok = slot.Get()
	assert.False(t, ok)
	assert.NoError(t, pub.Dispatch(ctx, []hit{{3}}))
}

func TestBind_IsUnique(t *testing.T) {
	m := New()
	_, err := Bind[hit](m, &fakeOwner{name: "Single"})
	require.NoError(t, err)
	_, err = BindMulti[hit](m, &fakeOwner{name: "Many"})
	require.NoError(t, err)

	subs := m.Subscriptions()
	require.Len(t, subs, 2)
	assert.True(t, subs[0].Unique)
	assert.False(t, subs[1].Unique)
}

func TestDispatch_CopiesObjects(t *testing.T) {
	m := New()
	ctx := context.Background()

	multi, err := BindMulti[hit](m, &fakeOwner{name: "Consumer"})
	require.NoError(t, err)
	pub, err := Declare[hit](m, &fakeOwner{name: "Producer"})
	require.NoError(t, err)

	buf := []hit{{1}, {2}}
	require.NoError(t, pub.Dispatch(ctx, buf))
	buf[0] = hit{99}
	require.NoError(t, pub.Dispatch(ctx, buf[:1]))

	msgs := multi.All()
	require.Len(t, msgs, 2)
	assert.Equal(t, []hit{{1}, {2}}, msgs[0].Objects())
	assert.Equal(t, []hit{{99}}, msgs[1].Objects())
}

func TestRegisterFilter(t *testing.T) {
	m := New()
	ctx := context.Background()

	type other struct{}
	var seen []string
	require.NoError(t, RegisterFilter(m, &fakeOwner{name: "Writer"}, func(_ context.Context, msg BaseMessage) error {
		seen = append(seen, msg.TypeName())
		return nil
	}))

	hits, err := Declare[hit](m, &fakeOwner{name: "A"})
	require.NoError(t, err)
	others, err := Declare[other](m, &fakeOwner{name: "B"})
	require.NoError(t, err)

	require.NoError(t, hits.Dispatch(ctx, nil))
	require.NoError(t, others.Dispatch(ctx, nil))
	assert.Equal(t, []string{"hit", "other"}, seen)
	assert.Equal(t, "*", m.Subscriptions()[0].TypeName())
}

func TestDeliveryErrorStopsDispatch(t *testing.T) {
	m := New()
	boom := errors.New("boom")
	called := false

	require.NoError(t, Register(m, &fakeOwner{name: "Failing"}, func(context.Context, *Message[hit]) error { return boom }))
	require.NoError(t, Register(m, &fakeOwner{name: "Later"}, func(context.Context, *Message[hit]) error {
		called = true
		return nil
	}))
	pub, err := Declare[hit](m, &fakeOwner{name: "Producer"})
	require.NoError(t, err)

	err = pub.Dispatch(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestSatisfied(t *testing.T) {
	m := New()
	consumer := &fakeOwner{name: "Consumer", detector: "dut"}
	_, err := Bind[hit](m, consumer, Required())
	require.NoError(t, err)
	pub, err := Declare[hit](m, &fakeOwner{name: "Producer", detector: "dut"})
	require.NoError(t, err)

	m.StartEvent()
	assert.False(t, m.Satisfied(consumer))
	require.NoError(t, pub.Dispatch(context.Background(), []hit{{1}}))
	assert.True(t, m.Satisfied(consumer))
	assert.Equal(t, 1, m.Received(consumer))

	m.StartEvent()
	assert.False(t, m.Satisfied(consumer))
	assert.True(t, m.Satisfied(&fakeOwner{name: "Unrelated"}))
}

func TestSeal(t *testing.T) {
	m := New()
	m.Seal()
	owner := &fakeOwner{name: "Late"}

	_, err := Bind[hit](m, owner)
	assert.ErrorIs(t, err, ErrSealed)
	_, err = Declare[hit](m, owner)
	assert.ErrorIs(t, err, ErrSealed)
	assert.ErrorIs(t, RegisterFilter(m, owner, func(context.Context, BaseMessage) error { return nil }), ErrSealed)
}

func TestSubscription_Accepts(t *testing.T) {
	m := New()
	_, err := Bind[hit](m, &fakeOwner{name: "C", detector: "dut"}, Unique())
	require.NoError(t, err)
	_, err = Declare[hit](m, &fakeOwner{name: "P1", detector: "dut"})
	require.NoError(t, err)
	_, err = Declare[hit](m, &fakeOwner{name: "P2", detector: "ref"})
	require.NoError(t, err)

	sub := m.Subscriptions()[0]
	pubs := m.Publications()
	assert.True(t, sub.Unique)
	assert.True(t, sub.Accepts(pubs[0]))
	assert.False(t, sub.Accepts(pubs[1]))
}
