package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/guslan/playback"
)

const (
	EventFrame    = "frame"
	EventMovieEnd = "movie-end"
	EventError    = "error"
	EventControl  = "control"
)

// Event is the JSON message sent on the status socket and the event stream
type Event struct {
	Kind   string          `json:"kind"`
	Status playback.Status `json:"status"`
	// Machine is whatever the configured probe reports, usually registers
	Machine any `json:"machine,omitempty"`
}

// Probe samples emulator internals on the loop for debugging clients
type Probe func() any

// StatusStream publishes scheduler events to websocket subscribers.
// Frame events are sampled every SendEvery frames; movie end and error
// events are always sent.
type StatusStream struct {
	SendEvery uint64

	mu     sync.Mutex
	subs   map[chan Event]struct{}
	probe  Probe
	log    *slog.Logger
	frames uint64
}

func NewStatusStream(sched *playback.Scheduler, sendEvery uint64, probe Probe, log *slog.Logger) *StatusStream {
	st := &StatusStream{
		SendEvery: max(sendEvery, 1),
		subs:      map[chan Event]struct{}{},
		probe:     probe,
		log:       log,
	}

	sched.AddAfterFrameHook(st.afterFrame)
	sched.AddMovieEndHook(st.movieEnd)
	sched.AddErrorHook(st.onError)

	return st
}

func (st *StatusStream) afterFrame(s *playback.Scheduler) {
	st.frames++
	if st.frames%st.SendEvery == 0 {
		st.Publish(EventFrame, s.Status())
	}
}

func (st *StatusStream) movieEnd(s *playback.Scheduler) {
	st.Publish(EventMovieEnd, s.Status())
}

func (st *StatusStream) onError(s *playback.Scheduler, err error) {
	st.Publish(EventError, s.Status())
}

// Publish hands an event to every subscriber without blocking. A subscriber
// that has not consumed its previous event gets the newer one instead.
// It must run on the loop when a probe is set.
func (st *StatusStream) Publish(kind string, status playback.Status) {
	ev := st.event(kind, status)

	st.mu.Lock()
	defer st.mu.Unlock()

	for ch := range st.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (st *StatusStream) event(kind string, status playback.Status) Event {
	ev := Event{Kind: kind, Status: status}
	if st.probe != nil {
		ev.Machine = st.probe()
	}

	return ev
}

// Subscribe returns a channel of events and a function that ends the subscription
func (st *StatusStream) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)

	st.mu.Lock()
	st.subs[ch] = struct{}{}
	st.mu.Unlock()

	return ch, func() {
		st.mu.Lock()
		delete(st.subs, ch)
		st.mu.Unlock()
	}
}

func (st *StatusStream) serve(upgrader *websocket.Upgrader, initial Event, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		st.log.Error("Upgrading status connection", slog.Any("error", err))
		return
	}
	defer conn.Close()

	events, unsubscribe := st.Subscribe()
	defer unsubscribe()

	st.log.Info("Connecting to status stream")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(initial); err != nil {
		return
	}

	for {
		select {
		case ev := <-events:
			if err := conn.WriteJSON(ev); err != nil {
				st.log.Error("Writing status event", slog.Any("error", err))
				return
			}

		case <-closed:
			st.log.Info("Disconnecting from status stream")
			return

		case <-r.Context().Done():
			return
		}
	}
}

// serveEvents streams the same events as server sent events
func (st *StatusStream) serveEvents(initial Event, w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Type")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, unsubscribe := st.Subscribe()
	defer unsubscribe()

	ev := initial
	for {
		data, err := json.Marshal(ev)
		if err != nil {
			st.log.Error("Encoding status event", slog.Any("error", err))
			return
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
			return
		}
		flusher.Flush()

		select {
		case ev = <-events:
		case <-r.Context().Done():
			return
		}
	}
}
