package web_test

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guslan/playback"
	"github.com/guslan/playback/chip8"
	"github.com/guslan/playback/movie"
	"github.com/guslan/playback/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// jumps to itself forever
var idleProgram = []byte{0x12, 0x00}

func newTestServer(t *testing.T) (*httptest.Server, *web.ScreenSocket) {
	t.Helper()

	loop := playback.NewLoop(func(config *playback.LoopConfig) {
		config.Interval = time.Millisecond
	})
	screen := web.NewScreenSocket(discard)
	machine := chip8.NewMachine(screen, chip8.NewDummyBuzzer())
	sched := playback.NewScheduler(machine, loop, func(config *playback.Config) {
		config.Decoder = movie.Decoder
		config.Logger = discard
	})
	server := web.NewServer(sched, loop, func(config *web.ServerConfig) {
		config.Screen = screen
		config.SendEvery = 10
		config.Probe = func() any { return machine.Registers() }
		config.Logger = discard
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go loop.Run(ctx)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	return srv, screen
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, cmd web.Command) web.Reply {
	t.Helper()

	require.NoError(t, conn.WriteJSON(cmd))

	var reply web.Reply
	require.NoError(t, conn.ReadJSON(&reply))

	return reply
}

func loadIdleProgram(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	reply := send(t, conn, web.Command{
		Op:      web.OpLoad,
		Payload: "rom=" + base64.StdEncoding.EncodeToString(idleProgram),
	})
	require.True(t, reply.OK, reply.Error)
	require.True(t, reply.Status.HasProgram)
}

func TestControlPlayAndInput(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "/control")

	reply := send(t, conn, web.Command{Op: web.OpPlay})
	assert.False(t, reply.OK)
	assert.Contains(t, reply.Error, playback.ErrNoProgram.Error())

	loadIdleProgram(t, conn)

	reply = send(t, conn, web.Command{Op: web.OpPlay})
	require.True(t, reply.OK, reply.Error)
	assert.Equal(t, "free-play", reply.Status.Mode)

	reply = send(t, conn, web.Command{Op: web.OpFaster})
	assert.Equal(t, 2, reply.Status.Speed)

	reply = send(t, conn, web.Command{Op: web.OpPress, Button: "start", Port: 2})
	assert.True(t, reply.OK)

	reply = send(t, conn, web.Command{Op: web.OpPress, Button: "turbo"})
	assert.False(t, reply.OK)

	reply = send(t, conn, web.Command{Op: "rewind"})
	assert.False(t, reply.OK)
	assert.Contains(t, reply.Error, "unknown command")

	reply = send(t, conn, web.Command{Op: web.OpReplay})
	assert.False(t, reply.OK)
	assert.Equal(t, "free-play", reply.Status.Mode)
}

func TestControlReplay(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "/control")

	fm2 := "version 3\n|0|.......A|\n|0|......B.|\n"
	reply := send(t, conn, web.Command{
		Op: web.OpLoad,
		Payload: "rom=" + base64.StdEncoding.EncodeToString(idleProgram) +
			"&fm2=" + base64.StdEncoding.EncodeToString([]byte(fm2)),
	})
	require.True(t, reply.OK, reply.Error)
	assert.True(t, reply.Status.HasMovie)

	reply = send(t, conn, web.Command{Op: web.OpPlay})
	require.True(t, reply.OK, reply.Error)
	assert.Equal(t, "replay", reply.Status.Mode)

	assert.Eventually(t, func() bool {
		return send(t, conn, web.Command{Op: web.OpStatus}).Status.MovieEnded
	}, time.Second, 10*time.Millisecond)
}

func TestLoadRejectsBrokenMovie(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "/control")

	reply := send(t, conn, web.Command{
		Op: web.OpLoad,
		Payload: "rom=" + base64.StdEncoding.EncodeToString(idleProgram) +
			"&fm2=" + base64.StdEncoding.EncodeToString([]byte("version 2\n")),
	})
	assert.False(t, reply.OK)
	assert.False(t, reply.Status.HasProgram)
}

func TestDisplayStreamsFrames(t *testing.T) {
	srv, screen := newTestServer(t)
	control := dial(t, srv, "/control")
	display := dial(t, srv, "/display")

	require.Eventually(t, func() bool { return screen.Clients() == 1 }, time.Second, time.Millisecond)

	loadIdleProgram(t, control)
	require.True(t, send(t, control, web.Command{Op: web.OpPlay}).OK)

	display.SetReadDeadline(time.Now().Add(time.Second))
	kind, frame, err := display.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, byte(chip8.SmallScreen.Width), frame[0])
	assert.Equal(t, byte(chip8.SmallScreen.Height), frame[1])
	assert.Len(t, frame, 2+chip8.SmallScreen.Pixels()/8)
}

func TestStatusStream(t *testing.T) {
	srv, _ := newTestServer(t)
	status := dial(t, srv, "/status")

	var ev web.Event
	status.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, status.ReadJSON(&ev))
	assert.Equal(t, web.EventControl, ev.Kind)
	assert.Equal(t, "idle", ev.Status.Mode)
	assert.NotNil(t, ev.Machine)

	control := dial(t, srv, "/control")
	loadIdleProgram(t, control)
	require.True(t, send(t, control, web.Command{Op: web.OpPlay}).OK)

	assert.Eventually(t, func() bool {
		var ev web.Event
		status.SetReadDeadline(time.Now().Add(time.Second))
		if err := status.ReadJSON(&ev); err != nil {
			return false
		}
		return ev.Kind == web.EventFrame && ev.Status.Mode == "free-play"
	}, 2*time.Second, time.Millisecond)
}

func TestActionEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/pause", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var reply web.Reply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, reply.Status.Paused)

	resp, err = http.Post(srv.URL+"/replay", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestEventsStream(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: control\n", line)

	line, err = r.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))

	var ev web.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
	assert.Equal(t, "idle", ev.Status.Mode)
	assert.Contains(t, ev.Machine, "pc")
}

func TestExecuteAfterLoopStopped(t *testing.T) {
	loop := playback.NewLoop()
	machine := chip8.NewMachine(chip8.NewDummyDisplay(), chip8.NewDummyBuzzer())
	sched := playback.NewScheduler(machine, loop, func(config *playback.Config) {
		config.Logger = discard
	})
	server := web.NewServer(sched, loop, func(config *web.ServerConfig) {
		config.Logger = discard
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- loop.Run(ctx) }()
	require.True(t, server.Execute(ctx, web.Command{Op: web.OpStatus}).OK)

	cancel()
	require.NoError(t, <-done)

	for _, op := range []string{web.OpStatus, web.OpFaster, web.OpPause} {
		reply := server.Execute(context.Background(), web.Command{Op: op})
		assert.False(t, reply.OK, op)
		assert.Contains(t, reply.Error, playback.ErrLoopStopped.Error(), op)
	}
}
