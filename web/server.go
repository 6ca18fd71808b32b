// Package web serves a scheduler over HTTP.
//
// /control takes JSON commands over a websocket and /display streams the
// screen. Scheduler events go out on the /status socket and as server sent
// events on /events. A handful of plain endpoints mirror the toolbar.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guslan/playback"
	"github.com/guslan/playback/assets"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	sched  *playback.Scheduler
	loop   *playback.Loop
	loader *assets.Loader
	log    *slog.Logger

	screen *ScreenSocket
	status *StatusStream

	staticDir string
	upgrader  websocket.Upgrader
}

type ServerConfig struct {
	// Screen streams frames when the emulator renders to it
	Screen *ScreenSocket
	// StaticDir is served at the root when set
	StaticDir string
	// SendEvery samples one frame event out of every SendEvery frames
	SendEvery uint64
	// Probe adds emulator internals to every status event
	Probe  Probe
	Loader *assets.Loader
	Logger *slog.Logger
}
type ServerConfigCb func(config *ServerConfig)

func NewServer(sched *playback.Scheduler, loop *playback.Loop, configs ...ServerConfigCb) *Server {
	config := &ServerConfig{
		Screen:    nil,
		StaticDir: "",
		SendEvery: 1,
		Probe:     nil,
		Loader:    nil,
		Logger:    slog.Default(),
	}
	for _, cb := range configs {
		cb(config)
	}
	if config.Screen == nil {
		config.Screen = NewScreenSocket(config.Logger)
	}
	if config.Loader == nil {
		config.Loader = assets.NewLoader(func(lc *assets.LoaderConfig) {
			lc.Logger = config.Logger
		})
	}

	return &Server{
		sched:  sched,
		loop:   loop,
		loader: config.Loader,
		log:    config.Logger,

		screen: config.Screen,
		status: NewStatusStream(sched, config.SendEvery, config.Probe, config.Logger),

		staticDir: config.StaticDir,
		upgrader:  websocket.Upgrader{},
	}
}

func (server *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if server.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(server.staticDir)))
	}

	mux.HandleFunc("/control", server.serveControl)
	mux.HandleFunc("/display", func(w http.ResponseWriter, r *http.Request) {
		server.screen.serve(&server.upgrader, w, r)
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		server.status.serve(&server.upgrader, server.initialEvent(r.Context()), w, r)
	})
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		server.status.serveEvents(server.initialEvent(r.Context()), w, r)
	})

	mux.HandleFunc("POST /play", server.actionHandler(OpPlay))
	mux.HandleFunc("POST /replay", server.actionHandler(OpReplay))
	mux.HandleFunc("POST /pause", server.actionHandler(OpPause))
	mux.HandleFunc("POST /faster", server.actionHandler(OpFaster))
	mux.HandleFunc("POST /slower", server.actionHandler(OpSlower))
	mux.HandleFunc("GET /state", server.actionHandler(OpStatus))

	return mux
}

func (server *Server) initialEvent(ctx context.Context) Event {
	var ev Event
	err := server.loop.Call(ctx, func() error {
		ev = server.status.event(EventControl, server.sched.Status())
		return nil
	})
	if err != nil {
		server.log.Warn("Reading initial status", slog.Any("error", err))
	}

	return ev
}

// Listen runs the scheduler loop and the HTTP server until ctx is done or
// either of them fails
func (server *Server) Listen(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: server.Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.loop.Run(ctx)
	})
	g.Go(func() error {
		server.log.Info("Listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Writing response", slog.Any("error", err))
	}
}
