package playback

import "errors"

// TickFunc is called once per host tick
type TickFunc func() error

// TickHandle identifies a repeating tick registration
type TickHandle interface {
	// Cancel stops further calls. Cancelling twice is a noop.
	Cancel()
}

// Ticker registers repeating tick callbacks
type Ticker interface {
	Register(fn TickFunc) TickHandle
}

// FrameTicker is a Ticker driven by the host calling Tick, typically once
// per drawn frame
type FrameTicker struct {
	registrations []*registration
}

type registration struct {
	fn      TickFunc
	ticker  *FrameTicker
	removed bool
}

func (r *registration) Cancel() {
	if r.removed {
		return
	}
	r.removed = true

	regs := r.ticker.registrations
	for i, other := range regs {
		if other == r {
			r.ticker.registrations = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
}

func NewFrameTicker() *FrameTicker {
	return &FrameTicker{
		registrations: make([]*registration, 0, 1),
	}
}

// Register implements Ticker.
func (ft *FrameTicker) Register(fn TickFunc) TickHandle {
	r := &registration{fn: fn, ticker: ft}
	ft.registrations = append(ft.registrations, r)

	return r
}

// Live is the number of registrations that are not cancelled
func (ft FrameTicker) Live() int {
	return len(ft.registrations)
}

// Tick runs every live registration once. Registrations made during the
// tick run on the next one.
func (ft *FrameTicker) Tick() error {
	regs := append([]*registration(nil), ft.registrations...)

	var errs []error
	for _, r := range regs {
		if r.removed {
			continue
		}
		if err := r.fn(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
