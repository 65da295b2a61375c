// Package id provides identity allocation for the launcher backend.
//
// Two kinds of identity live here:
//   - NodeID: the persisted, monotonically assigned integer identity of every
//     node in the launcher tree. The value -1 (None) means "no node" both in
//     memory and in the stored first-child/next-sibling columns.
//   - RequestID: a random identifier attached to API requests and stream
//     clients for log correlation.
package id

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// ============================================================================
// Node Identity
// ============================================================================

// NodeID identifies a node in the launcher tree.
type NodeID int64

// None is the sentinel for an absent node link.
const None NodeID = -1

// RootID is the identity of the overall root row seeded with the schema.
const RootID NodeID = 1

// Valid reports whether the id refers to a node.
func (n NodeID) Valid() bool { return n > 0 }

func (n NodeID) String() string {
	if n == None {
		return "none"
	}
	return strconv.FormatInt(int64(n), 10)
}

// Parse parses a decimal node id.
func Parse(s string) (NodeID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return None, err
	}
	return NodeID(v), nil
}

// ============================================================================
// Sequence
// ============================================================================

// Sequence hands out node identities in increasing order. After a load from
// storage it is advanced past the largest persisted id so identities are never
// reused within a database.
type Sequence struct {
	mu   sync.Mutex
	last NodeID
}

// NewSequence creates a sequence whose first Next returns 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next unused identity.
func (s *Sequence) Next() NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last++
	return s.last
}

// Observe advances the sequence so that n is never handed out again.
func (s *Sequence) Observe(n NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > s.last {
		s.last = n
	}
}

// Reset rewinds the sequence to zero; used when the schema is recreated.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = 0
}

// Last returns the most recently handed out or observed identity.
func (s *Sequence) Last() NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last
}

// ============================================================================
// Request Identity
// ============================================================================

// RequestID identifies an API request or stream client.
type RequestID string

// RequestPrefix is prepended to request identities for readable logs.
const RequestPrefix = "req"

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(RequestPrefix + "_" + uuid.NewString())
}

func (r RequestID) String() string { return string(r) }
