package facedetect

import (
	"errors"
	"fmt"
)

// Publisher delivers frame outcomes to the outside world.
type Publisher interface {
	Publish(ev Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ev Event) error

// Publish calls f(ev).
func (f PublisherFunc) Publish(ev Event) error {
	return f(ev)
}

// MultiPublisher fans an event out to several publishers. Every publisher is
// tried; failures are joined.
type MultiPublisher []Publisher

// Publish implements Publisher.
func (m MultiPublisher) Publish(ev Event) error {
	var errs []error
	for i, p := range m {
		if err := p.Publish(ev); err != nil {
			errs = append(errs, fmt.Errorf("publisher %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
