package nn

import (
	"errors"
	"time"
)

var ErrSessionClosed = errors.New("nn: session is closed")

// Session owns a graph for the span of a computation. Open it, Run, and
// Close it on every exit path; a closed session refuses to run.
type Session struct {
	graph   *Sequential
	runs    int
	elapsed time.Duration
}

func NewSession(graph *Sequential) *Session {
	return &Session{graph: graph}
}

// Run feeds x through the graph once.
func (s *Session) Run(x interface{}) (interface{}, error) {
	if s.graph == nil {
		return nil, ErrSessionClosed
	}
	if len(s.graph.Layers) == 0 {
		return nil, errors.New("nn: empty graph")
	}
	start := time.Now()
	out, err := s.graph.Run(x)
	s.elapsed += time.Since(start)
	s.runs++
	return out, err
}

// Runs returns how many times Run reached the graph.
func (s *Session) Runs() int { return s.runs }

// Elapsed returns the time spent inside the graph.
func (s *Session) Elapsed() time.Duration { return s.elapsed }

// Close releases the graph. It is safe to call more than once.
func (s *Session) Close() error {
	s.graph = nil
	return nil
}
