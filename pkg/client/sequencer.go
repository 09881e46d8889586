package client

import "sync/atomic"

// RequestSequencer tags overlapping requests so only the most recently
// issued one is applied. Responses may arrive in any order.
type RequestSequencer struct {
	latest atomic.Uint64
}

// Next returns the token for a newly issued request.
func (s *RequestSequencer) Next() uint64 {
	return s.latest.Add(1)
}

// IsLatest reports whether token belongs to the last issued request.
func (s *RequestSequencer) IsLatest(token uint64) bool {
	return s.latest.Load() == token
}
