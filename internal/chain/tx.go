package chain

import (
	"time"

	"github.com/elys-network/ammcore/internal/types"
)

// Tx is the context of one transaction being applied. Components record an undo
// closure for every mutation so a failing transaction leaves no trace.
type Tx struct {
	id        string
	operation string
	origin    types.Address
	frames    []types.Address
	timestamp time.Time
	height    uint64
	undo      []func()
	events    []types.Event
}

func newTx(id, operation string, sender types.Address, at time.Time, height uint64) *Tx {
	return &Tx{
		id:        id,
		operation: operation,
		origin:    sender,
		frames:    []types.Address{sender},
		timestamp: at,
		height:    height,
	}
}

// ID returns the receipt id this transaction will be recorded under.
func (tx *Tx) ID() string { return tx.id }

// Operation is the name the transaction was submitted with.
func (tx *Tx) Operation() string { return tx.operation }

// Origin is the account that submitted the transaction.
func (tx *Tx) Origin() types.Address { return tx.origin }

// Sender is the immediate caller: the origin, or the component that issued the current Call.
func (tx *Tx) Sender() types.Address { return tx.frames[len(tx.frames)-1] }

// Now is the transaction timestamp. It is fixed for the whole transaction.
func (tx *Tx) Now() time.Time { return tx.timestamp }

// Height is the height the transaction commits at if it succeeds.
func (tx *Tx) Height() uint64 { return tx.height }

// Depth is the number of nested calls currently active.
func (tx *Tx) Depth() int { return len(tx.frames) - 1 }

// Call runs fn with as the sender. If fn fails, everything it changed is rolled back
// before the error is returned, so a caller may handle the error and continue.
func (tx *Tx) Call(as types.Address, fn func() error) error {
	undoMark, eventMark := len(tx.undo), len(tx.events)
	tx.frames = append(tx.frames, as)
	defer func() { tx.frames = tx.frames[:len(tx.frames)-1] }()

	if err := fn(); err != nil {
		tx.rollbackTo(undoMark)
		tx.events = tx.events[:eventMark]
		return err
	}
	return nil
}

// OnRevert registers fn to run if the transaction (or the enclosing Call) fails.
func (tx *Tx) OnRevert(fn func()) {
	tx.undo = append(tx.undo, fn)
}

// Emit appends an audit event.
func (tx *Tx) Emit(ev types.Event) {
	tx.events = append(tx.events, ev)
}

// Events returns the events emitted so far.
func (tx *Tx) Events() []types.Event {
	out := make([]types.Event, len(tx.events))
	copy(out, tx.events)
	return out
}

func (tx *Tx) rollbackTo(mark int) {
	for i := len(tx.undo) - 1; i >= mark; i-- {
		tx.undo[i]()
	}
	tx.undo = tx.undo[:mark]
}
