/*

This file contains the audit trace types. Every committed state change emits events
carrying the prior and resulting values of what it touched.

*/

package types

import (
	"fmt"
	"time"
)

// Attribute is a single key/value pair on an event. Order is preserved.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Attr builds an Attribute from anything with a String method or a plain string.
func Attr(key string, value any) Attribute {
	switch v := value.(type) {
	case string:
		return Attribute{Key: key, Value: v}
	case interface{ String() string }:
		return Attribute{Key: key, Value: v.String()}
	default:
		return Attribute{Key: key, Value: fmt.Sprint(v)}
	}
}

// Event is one audit record emitted by a component during a transaction.
type Event struct {
	Component  string      `json:"component"` // e.g., "ledger/TKA", "pool/TKA-TKB", "vault/STK-RWD"
	Kind       string      `json:"kind"`      // e.g., "transfer", "swap"
	Attributes []Attribute `json:"attributes"`
}

// NewEvent creates an event.
func NewEvent(component, kind string, attrs ...Attribute) Event {
	return Event{Component: component, Kind: kind, Attributes: attrs}
}

// Get returns the value of the first attribute with the given key.
func (e Event) Get(key string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Receipt is the outcome of one transaction applied by the chain.
type Receipt struct {
	ID        string    `json:"id"`     // uuid
	Height    uint64    `json:"height"` // 0 for rejected transactions
	Operation string    `json:"operation"`
	Sender    Address   `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Events    []Event   `json:"events,omitempty"`
}

// Accounts returns every distinct account referenced by the receipt's events plus the sender.
func (r Receipt) Accounts() []string {
	seen := map[string]bool{string(r.Sender): true}
	out := []string{string(r.Sender)}
	for _, ev := range r.Events {
		for _, a := range ev.Attributes {
			switch a.Key {
			case "from", "to", "account", "owner", "spender", "provider", "trader":
				if a.Value != "" && !seen[a.Value] {
					seen[a.Value] = true
					out = append(out, a.Value)
				}
			}
		}
	}
	return out
}
