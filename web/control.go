package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/guslan/playback"
)

var ErrUnknownCommand = errors.New("unknown command")

// Command ops accepted on the control socket
const (
	OpLoad     = "load"
	OpPlay     = "play"
	OpFreePlay = "free-play"
	OpReplay   = "replay"
	OpPause    = "pause"
	OpFaster   = "faster"
	OpSlower   = "slower"
	OpPress    = "press"
	OpRelease  = "release"
	OpKeyDown  = "keydown"
	OpKeyUp    = "keyup"
	OpStatus   = "status"
)

// Command is a JSON request from a control client.
//
// Port is 1 based and defaults to the first port. Fragment and Payload carry
// the asset references and inline data of a load.
type Command struct {
	Op       string `json:"op"`
	Button   string `json:"button,omitempty"`
	Port     int    `json:"port,omitempty"`
	Key      int    `json:"key,omitempty"`
	Fragment string `json:"fragment,omitempty"`
	Payload  string `json:"payload,omitempty"`
}

type Reply struct {
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Status playback.Status `json:"status"`
}

// Execute runs cmd against the scheduler on the loop. Loads fetch their
// assets first and only hand a complete session to the loop.
func (server *Server) Execute(ctx context.Context, cmd Command) Reply {
	var status playback.Status

	err := server.execute(ctx, cmd)
	if errors.Is(err, context.Canceled) || errors.Is(err, playback.ErrLoopStopped) {
		return Reply{Error: err.Error()}
	}

	// the status is read on the loop like everything else
	statusErr := server.loop.Call(ctx, func() error {
		status = server.sched.Status()
		return nil
	})
	if statusErr != nil {
		err = errors.Join(err, fmt.Errorf("reading status: %w", statusErr))
	}

	if err != nil {
		server.log.Warn("Command failed", slog.String("op", cmd.Op), slog.Any("error", err))
		return Reply{Error: err.Error(), Status: status}
	}

	return Reply{OK: true, Status: status}
}

func (server *Server) execute(ctx context.Context, cmd Command) error {
	if cmd.Op == OpLoad {
		return server.load(ctx, cmd.Fragment, cmd.Payload)
	}

	fn, err := server.commandFunc(cmd)
	if err != nil {
		return err
	}

	if err := server.loop.Call(ctx, fn); err != nil {
		return err
	}
	if cmd.Op != OpStatus {
		server.loop.Post(func() {
			server.status.Publish(EventControl, server.sched.Status())
		})
	}

	return nil
}

func (server *Server) load(ctx context.Context, fragment, payload string) error {
	a, err := server.loader.Resolve(ctx, fragment, payload)
	if err != nil {
		return err
	}

	return server.loop.Call(ctx, func() error {
		return server.sched.SetSession(a.Program, a.Movie)
	})
}

func (server *Server) commandFunc(cmd Command) (func() error, error) {
	s := server.sched

	switch cmd.Op {
	case OpPlay:
		return s.Start, nil
	case OpFreePlay:
		return s.StartFreePlay, nil
	case OpReplay:
		return s.StartReplay, nil
	case OpStatus:
		return func() error { return nil }, nil
	case OpPause:
		return func() error { s.TogglePause(); return nil }, nil
	case OpFaster:
		return func() error { s.IncreaseSpeed(); return nil }, nil
	case OpSlower:
		return func() error { s.DecreaseSpeed(); return nil }, nil

	case OpPress, OpRelease:
		b, ok := playback.ParseButton(cmd.Button)
		if !ok {
			return nil, fmt.Errorf("unknown button %q", cmd.Button)
		}
		port := playback.Port1
		if cmd.Port > 0 {
			port = playback.Port(cmd.Port - 1)
		}
		if port >= playback.MaxPorts {
			return nil, fmt.Errorf("unknown port %d", cmd.Port)
		}
		if cmd.Op == OpPress {
			return func() error { s.PressOn(port, b); return nil }, nil
		}
		return func() error { s.ReleaseOn(port, b); return nil }, nil

	case OpKeyDown:
		return func() error { s.KeyDown(playback.KeyCode(cmd.Key)); return nil }, nil
	case OpKeyUp:
		return func() error { s.KeyUp(playback.KeyCode(cmd.Key)); return nil }, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Op)
}

func (server *Server) serveControl(w http.ResponseWriter, r *http.Request) {
	conn, err := server.upgrader.Upgrade(w, r, nil)
	if err != nil {
		server.log.Error("Upgrading control connection", slog.Any("error", err))
		return
	}
	defer conn.Close()

	server.log.Info("Connecting to control")

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				server.log.Warn("Reading control command", slog.Any("error", err))
			}
			server.log.Info("Disconnecting from control")
			return
		}

		if err := conn.WriteJSON(server.Execute(r.Context(), cmd)); err != nil {
			server.log.Error("Writing control reply", slog.Any("error", err))
			return
		}
	}
}

// actionHandler exposes a command as a plain HTTP endpoint
func (server *Server) actionHandler(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Type")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Content-Type", "application/json")

		reply := server.Execute(r.Context(), Command{Op: op})
		if !reply.OK {
			w.WriteHeader(http.StatusConflict)
		}
		writeJSON(w, reply)
	}
}
