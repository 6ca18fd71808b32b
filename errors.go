package playback

import (
	"errors"
	"fmt"
)

// ErrNoProgram is returned when playback is started before a program image was set
var ErrNoProgram = errors.New("no program loaded")

// ErrNoMovie is returned when replay is requested without movie data
var ErrNoMovie = errors.New("replay requires a movie: no movie loaded")

// AdapterError wraps a failure of the emulator adapter
type AdapterError struct {
	Op  string
	Err error
}

func (err *AdapterError) Error() string {
	return fmt.Sprintf("emulator %s: %v", err.Op, err.Err)
}

func (err *AdapterError) Unwrap() error {
	return err.Err
}

func adapterError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AdapterError{Op: op, Err: err}
}
