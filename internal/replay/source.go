package replay

import (
	"errors"
	"io"

	"tickbacktest/types"
)

var ErrSourceNotOpen = errors.New("source not open")

// Source is a restartable, finite, time ordered sequence of ticks. Open
// rewinds to the first tick; Next returns io.EOF once exhausted. Estimate may
// be called before Open and should not read the whole source.
type Source interface {
	Name() string
	Open() error
	Next() (types.Tick, error)
	Estimate() int
	Close() error
}

// SliceSource serves ticks already held in memory.
type SliceSource struct {
	name  string
	ticks []types.Tick
	pos   int
	open  bool
}

func NewSliceSource(name string, ticks []types.Tick) *SliceSource {
	return &SliceSource{name: name, ticks: ticks}
}

func (s *SliceSource) Name() string {
	return s.name
}

func (s *SliceSource) Open() error {
	s.pos = 0
	s.open = true
	return nil
}

func (s *SliceSource) Next() (types.Tick, error) {
	if !s.open {
		return types.Tick{}, ErrSourceNotOpen
	}
	if s.pos >= len(s.ticks) {
		return types.Tick{}, io.EOF
	}
	t := s.ticks[s.pos]
	s.pos++
	return t, nil
}

func (s *SliceSource) Estimate() int {
	return len(s.ticks)
}

func (s *SliceSource) Close() error {
	s.open = false
	return nil
}
