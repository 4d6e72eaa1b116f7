package chain

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elys-network/ammcore/internal/logger"
	"github.com/elys-network/ammcore/internal/types"
)

// Invariant is checked after every transaction. A failing invariant reverts the transaction.
type Invariant interface {
	Name() string
	Check() error
}

// InvariantFunc adapts a function to the Invariant interface.
type InvariantFunc struct {
	Label string
	Fn    func() error
}

func (f InvariantFunc) Name() string { return f.Label }
func (f InvariantFunc) Check() error { return f.Fn() }

// Sink receives the receipt of every committed transaction.
type Sink interface {
	Record(ctx context.Context, receipt types.Receipt) error
}

// Chain applies transactions one at a time. Each transaction either commits all of its
// effects or none of them.
type Chain struct {
	mu         sync.RWMutex
	clock      Clock
	logger     zerolog.Logger
	invariants []Invariant
	sinks      []Sink

	height   uint64
	lastTime atomic.Int64 // unix nanos of the latest transaction timestamp
}

// Config holds the configuration for creating a new Chain
type Config struct {
	Clock      Clock
	Invariants []Invariant
	Sinks      []Sink
}

// New creates a chain. A nil clock means the system clock.
func New(cfg Config) *Chain {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	c := &Chain{
		clock:      clock,
		logger:     logger.GetForComponent("chain"),
		invariants: append([]Invariant(nil), cfg.Invariants...),
		sinks:      append([]Sink(nil), cfg.Sinks...),
	}
	c.lastTime.Store(clock.Now().UnixNano())
	return c
}

// AddInvariant registers an invariant checked after every later transaction.
func (c *Chain) AddInvariant(inv Invariant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invariants = append(c.invariants, inv)
}

// AddSink registers a receipt sink.
func (c *Chain) AddSink(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, s)
}

// Height returns the number of committed transactions.
func (c *Chain) Height() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

// Now returns the current chain time: the clock reading, never earlier than the
// timestamp of the last applied transaction.
func (c *Chain) Now() time.Time {
	now := c.clock.Now()
	last := time.Unix(0, c.lastTime.Load()).UTC()
	if now.Before(last) {
		return last
	}
	return now
}

// Read runs fn while no transaction is being applied. Views that may race with
// Execute must go through Read.
func (c *Chain) Read(fn func()) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn()
}

// Execute applies fn as one transaction submitted by sender.
func (c *Chain) Execute(ctx context.Context, sender types.Address, operation string, fn func(tx *Tx) error) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sender.IsZero() {
		return nil, errorsmod.Wrap(types.ErrInvalidArgument, "transaction sender is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	at := c.Now()
	tx := newTx(uuid.New().String(), operation, sender, at, c.height+1)

	err := c.apply(tx, fn)
	receipt := &types.Receipt{
		ID:        tx.id,
		Operation: operation,
		Sender:    sender,
		Timestamp: at,
	}

	if err != nil {
		receipt.Message = err.Error()
		c.logger.Info().
			Str("tx_id", tx.id).
			Str("operation", operation).
			Str("sender", sender.String()).
			Err(err).
			Msg("Transaction rejected")
		return receipt, err
	}

	c.height = tx.height
	c.lastTime.Store(at.UnixNano())
	receipt.Height = tx.height
	receipt.Success = true
	receipt.Events = tx.events

	c.logger.Debug().
		Str("tx_id", tx.id).
		Str("operation", operation).
		Str("sender", sender.String()).
		Uint64("height", tx.height).
		Int("events", len(tx.events)).
		Msg("Transaction committed")

	// The transaction is committed; a cancelled caller must not drop its receipt.
	sinkCtx := context.WithoutCancel(ctx)
	for _, sink := range c.sinks {
		if sinkErr := sink.Record(sinkCtx, *receipt); sinkErr != nil {
			c.logger.Error().Err(sinkErr).Str("tx_id", tx.id).Msg("Failed to record receipt")
		}
	}
	return receipt, nil
}

// apply runs fn and the invariants, rolling back on any failure. A panic is rolled back and re-raised.
func (c *Chain) apply(tx *Tx, fn func(tx *Tx) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			tx.rollbackTo(0)
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.rollbackTo(0)
			tx.events = nil
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	for _, inv := range c.invariants {
		if checkErr := inv.Check(); checkErr != nil {
			return errorsmod.Wrapf(types.ErrInvariantViolated, "%s: %v", inv.Name(), checkErr)
		}
	}
	return nil
}

// NewAddress derives the deterministic address of a deployed component.
func NewAddress(kind, name string) types.Address {
	return types.Address(fmt.Sprintf("%s:%s", kind, name))
}
