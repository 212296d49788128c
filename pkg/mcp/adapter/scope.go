package adapter

import (
	"errors"
	"fmt"
)

// scope records acquired resources and releases them in reverse order.
// Every release runs even when an earlier one fails.
type scope struct {
	releases []namedRelease
}

type namedRelease struct {
	name string
	fn   func() error
}

func (s *scope) push(name string, fn func() error) {
	if fn == nil {
		return
	}
	s.releases = append(s.releases, namedRelease{name: name, fn: fn})
}

func (s *scope) close() error {
	if s == nil {
		return nil
	}
	var joined error
	for i := len(s.releases) - 1; i >= 0; i-- {
		r := s.releases[i]
		if err := r.fn(); err != nil {
			joined = errors.Join(joined, fmt.Errorf("release %s: %w", r.name, err))
		}
	}
	s.releases = nil
	return joined
}
