package web

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guslan/playback/chip8"
)

// writeWait bounds a single frame write so a slow client cannot stall the loop
const writeWait = 50 * time.Millisecond

// ScreenSocket is a chip8.Display that streams every rendered frame to the
// connected websocket clients. Frames are binary messages holding the width,
// the height and the packed screen.
type ScreenSocket struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	last  []byte
	log   *slog.Logger
}

func NewScreenSocket(log *slog.Logger) *ScreenSocket {
	if log == nil {
		log = slog.Default()
	}

	return &ScreenSocket{
		conns: map[*websocket.Conn]struct{}{},
		log:   log,
	}
}

// Boot implements chip8.Display.
func (s *ScreenSocket) Boot() error {
	return nil
}

// Render implements chip8.Display.
func (s *ScreenSocket) Render(screen chip8.Screen, settings chip8.ScreenSettings) error {
	frame := make([]byte, 0, len(screen)+2)
	frame = append(frame, byte(settings.Width), byte(settings.Height))
	frame = append(frame, screen...)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = frame
	for conn := range s.conns {
		if err := s.write(conn, frame); err != nil {
			s.log.Warn("Dropping display client", slog.Any("error", err))
			delete(s.conns, conn)
			conn.Close()
		}
	}

	return nil
}

// Clients is the number of connected clients
func (s *ScreenSocket) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.conns)
}

func (s *ScreenSocket) write(conn *websocket.Conn, frame []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (s *ScreenSocket) serve(upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("Upgrading display connection", slog.Any("error", err))
		return
	}
	defer conn.Close()

	s.log.Info("Connecting to display")

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	if s.last != nil {
		s.write(conn, s.last)
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.log.Info("Disconnecting from display")
	}()

	// the display is write only, reading just notices the close
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
