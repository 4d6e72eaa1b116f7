package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/ammcore/internal/types"
)

// counter is a tiny component used to exercise the journal.
type counter struct {
	value int
}

func (c *counter) add(tx *Tx, n int) {
	prev := c.value
	c.value += n
	tx.OnRevert(func() { c.value = prev })
	tx.Emit(types.NewEvent("counter", "add", types.Attr("before", prev), types.Attr("after", c.value)))
}

func TestExecuteCommits(t *testing.T) {
	journal := NewMemoryJournal(10)
	c := New(Config{Clock: NewManualClock(), Sinks: []Sink{journal}})
	cnt := &counter{}

	receipt, err := c.Execute(context.Background(), "alice", "counter.add", func(tx *Tx) error {
		assert.Equal(t, types.Address("alice"), tx.Sender())
		assert.Equal(t, uint64(1), tx.Height())
		cnt.add(tx, 5)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, receipt.Success)
	assert.Equal(t, uint64(1), receipt.Height)
	assert.Equal(t, 5, cnt.value)
	assert.Equal(t, uint64(1), c.Height())
	require.Len(t, receipt.Events, 1)

	stored, ok := journal.Get(receipt.ID)
	require.True(t, ok)
	assert.Equal(t, "counter.add", stored.Operation)
}

func TestExecuteRollsBackOnError(t *testing.T) {
	journal := NewMemoryJournal(10)
	c := New(Config{Sinks: []Sink{journal}})
	cnt := &counter{}
	boom := errors.New("boom")

	receipt, err := c.Execute(context.Background(), "alice", "counter.add", func(tx *Tx) error {
		cnt.add(tx, 1)
		cnt.add(tx, 2)
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NotNil(t, receipt)
	assert.False(t, receipt.Success)
	assert.Zero(t, receipt.Height)
	assert.Empty(t, receipt.Events)
	assert.Equal(t, 0, cnt.value)
	assert.Equal(t, uint64(0), c.Height())
	assert.Equal(t, 0, journal.Len())
}

func TestCallRollsBackToSavepoint(t *testing.T) {
	c := New(Config{})
	cnt := &counter{}

	receipt, err := c.Execute(context.Background(), "alice", "nested", func(tx *Tx) error {
		cnt.add(tx, 1)
		innerErr := tx.Call("component:x", func() error {
			assert.Equal(t, types.Address("component:x"), tx.Sender())
			assert.Equal(t, types.Address("alice"), tx.Origin())
			assert.Equal(t, 1, tx.Depth())
			cnt.add(tx, 10)
			return types.ErrInvalidAmount
		})
		assert.ErrorIs(t, innerErr, types.ErrInvalidAmount)
		assert.Equal(t, types.Address("alice"), tx.Sender())
		assert.Equal(t, 1, cnt.value)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cnt.value)
	assert.Len(t, receipt.Events, 1)
}

func TestInvariantFailureReverts(t *testing.T) {
	cnt := &counter{}
	c := New(Config{Invariants: []Invariant{InvariantFunc{
		Label: "below-ten",
		Fn: func() error {
			if cnt.value >= 10 {
				return errors.New("too big")
			}
			return nil
		},
	}}})

	_, err := c.Execute(context.Background(), "alice", "ok", func(tx *Tx) error {
		cnt.add(tx, 9)
		return nil
	})
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), "alice", "too-much", func(tx *Tx) error {
		cnt.add(tx, 1)
		return nil
	})
	require.ErrorIs(t, err, types.ErrInvariantViolated)
	assert.Contains(t, err.Error(), "below-ten")
	assert.Equal(t, 9, cnt.value)
}

func TestPanicRevertsAndRepanics(t *testing.T) {
	c := New(Config{})
	cnt := &counter{}

	assert.Panics(t, func() {
		_, _ = c.Execute(context.Background(), "alice", "panic", func(tx *Tx) error {
			cnt.add(tx, 3)
			panic("unexpected")
		})
	})
	assert.Equal(t, 0, cnt.value)

	// the lock was released
	_, err := c.Execute(context.Background(), "alice", "after", func(tx *Tx) error { return nil })
	require.NoError(t, err)
}

func TestExecuteRejectsCancelledContextAndEmptySender(t *testing.T) {
	c := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	_, err := c.Execute(ctx, "alice", "noop", func(tx *Tx) error { ran = true; return nil })
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)

	_, err = c.Execute(context.Background(), "", "noop", func(tx *Tx) error { ran = true; return nil })
	require.ErrorIs(t, err, types.ErrInvalidArgument)
	assert.False(t, ran)
}

// ctxSink records the context state each receipt arrives with.
type ctxSink struct {
	errs []error
}

func (s *ctxSink) Record(ctx context.Context, _ types.Receipt) error {
	s.errs = append(s.errs, ctx.Err())
	return nil
}

func TestSinksReceiveReceiptAfterCallerCancels(t *testing.T) {
	sink := &ctxSink{}
	c := New(Config{Sinks: []Sink{sink}})
	cnt := &counter{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	receipt, err := c.Execute(ctx, "alice", "counter.add", func(tx *Tx) error {
		cnt.add(tx, 1)
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.True(t, receipt.Success)
	assert.Equal(t, uint64(1), receipt.Height)
	require.Error(t, ctx.Err())
	require.Len(t, sink.errs, 1)
	assert.NoError(t, sink.errs[0])
}

func TestTimestampsNeverGoBackwards(t *testing.T) {
	clock := NewManualClock()
	c := New(Config{Clock: clock})

	clock.Advance(time.Hour)
	first, err := c.Execute(context.Background(), "alice", "a", func(tx *Tx) error { return nil })
	require.NoError(t, err)

	clock.Set(clock.Now().Add(-30 * time.Minute))
	second, err := c.Execute(context.Background(), "alice", "b", func(tx *Tx) error { return nil })
	require.NoError(t, err)

	assert.False(t, second.Timestamp.Before(first.Timestamp))
	assert.True(t, first.Timestamp.Equal(c.Now()))
}

func TestMemoryJournalIsBounded(t *testing.T) {
	journal := NewMemoryJournal(2)
	c := New(Config{Sinks: []Sink{journal}})
	for _, sender := range []types.Address{"alice", "bob", "carol"} {
		_, err := c.Execute(context.Background(), sender, "noop", func(tx *Tx) error { return nil })
		require.NoError(t, err)
	}
	recent := journal.Recent(10)
	require.Len(t, recent, 2)
	assert.Equal(t, types.Address("carol"), recent[0].Sender)
	assert.Equal(t, types.Address("bob"), recent[1].Sender)
	assert.Len(t, journal.ForAccount("bob", 5), 1)
	assert.Empty(t, journal.ForAccount("alice", 5))
}
