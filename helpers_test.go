package slr

import (
	"context"
	"sync"
)

type step struct {
	out string
	err error
}

// scriptedInvoker replays steps in order and records every request.
// Once the script is exhausted the last step repeats.
type scriptedInvoker struct {
	mu       sync.Mutex
	steps    []step
	requests []Request
	onCall   func(n int)
}

func newScripted(steps ...step) *scriptedInvoker {
	return &scriptedInvoker{steps: steps}
}

func (s *scriptedInvoker) Generate(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	n := len(s.requests)
	s.requests = append(s.requests, req)
	st := s.steps[min(n, len(s.steps)-1)]
	hook := s.onCall
	s.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return st.out, st.err
}

func (s *scriptedInvoker) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *scriptedInvoker) request(i int) Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}
