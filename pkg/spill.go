// Package pkg provides shared utilities for the obfuscator.
package pkg

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Spill accumulates items of type T in a temporary file instead of memory,
// so arbitrarily large batch runs keep a flat footprint. Append is safe for
// concurrent use; Range replays the items in insertion order.
type Spill[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  int
}

// NewSpill creates a spill file in the default temporary directory. The
// pattern names the file as in os.CreateTemp.
func NewSpill[T any](pattern string) (*Spill[T], error) {
	file, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("create spill file: %w", err)
	}

	slog.Debug("created spill", "path", file.Name())

	return &Spill[T]{
		path:    file.Name(),
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}

// Len returns the number of items appended so far.
func (s *Spill[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.length
}

// Path returns the location of the backing file.
func (s *Spill[T]) Path() string {
	return s.path
}

// Append encodes one item to the backing file.
func (s *Spill[T]) Append(item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.encoder.Encode(item); err != nil {
		return fmt.Errorf("encode spill item %d: %w", s.length, err)
	}

	s.length++

	return nil
}

// Range replays all items in insertion order. It reads from a fresh handle,
// so it may run while appends continue; it observes the length at call time.
func (s *Spill[T]) Range(fn func(index int, item T) error) error {
	s.mu.Lock()
	length := s.length
	s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open spill file: %w", err)
	}

	defer func() { _ = file.Close() }()

	decoder := gob.NewDecoder(file)

	for i := 0; i < length; i++ {
		var item T
		if err := decoder.Decode(&item); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("decode spill item %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}

	return nil
}

// Close releases and removes the backing file.
func (s *Spill[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close spill file: %w", err)
	}

	s.file = nil

	if err := os.Remove(s.path); err != nil {
		slog.Warn("failed to remove spill file", "path", s.path, "error", err)
	}

	return nil
}
