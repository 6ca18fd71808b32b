// Package movie decodes recorded input movies and replays them frame by frame.
package movie

import "github.com/guslan/playback"

// Command is the per-frame command field of a movie record
type Command byte

const (
	CommandSoftReset Command = 1 << iota
	CommandHardReset
	CommandFDSInsert
	CommandFDSSelect
	CommandVSInsertCoin
)

// Frame is the recorded input of one frame
type Frame struct {
	Commands    Command
	Controllers playback.Controllers
}

// Movie is a decoded movie with a replay cursor.
// It implements playback.MovieSource.
type Movie struct {
	Header Header

	frames []Frame
	cursor int
}

var _ playback.MovieSource = (*Movie)(nil)

// Reset implements playback.MovieSource.
func (m *Movie) Reset() {
	m.cursor = 0
}

// NextFrameInput implements playback.MovieSource.
func (m *Movie) NextFrameInput() playback.Controllers {
	if m.cursor >= len(m.frames) {
		return playback.Controllers{}
	}

	f := m.frames[m.cursor]
	m.cursor++

	return f.Controllers
}

// IsEndOfStream implements playback.MovieSource.
func (m Movie) IsEndOfStream() bool {
	return m.cursor >= len(m.frames)
}

// Position implements playback.MovieSource.
func (m Movie) Position() int {
	return m.cursor
}

// Len implements playback.MovieSource.
func (m Movie) Len() int {
	return len(m.frames)
}

// Frame returns the record at index i
func (m Movie) Frame(i int) (Frame, bool) {
	if i < 0 || i >= len(m.frames) {
		return Frame{}, false
	}
	return m.frames[i], true
}

// NewMovie builds a movie straight from frames, mostly for tests and tools
func NewMovie(header Header, frames []Frame) *Movie {
	return &Movie{
		Header: header,
		frames: frames,
	}
}
