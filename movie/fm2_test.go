package movie_test

import (
	"testing"

	"github.com/guslan/playback"
	"github.com/guslan/playback/movie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "version 3\n" +
	"emuVersion 22020\n" +
	"rerecordCount 12\n" +
	"palFlag 0\n" +
	"romFilename smb\n" +
	"romChecksum base64:jjYwGG411HcjG/j9UOVM3Q==\n" +
	"guid 452DE2C3-EF43-2FA9-77AC-0677FC51543B\n" +
	"fourscore 0\n" +
	"microphone 0\n" +
	"port0 1\n" +
	"port1 1\n" +
	"port2 0\n" +
	"FDS 0\n" +
	"NewPPU 0\n" +
	"comment author somebody\n"

func btns(bs ...playback.Button) playback.InputBitmask {
	var m playback.InputBitmask
	for _, b := range bs {
		m = m.With(b)
	}
	return m
}

func TestDecodeFM2(t *testing.T) {
	data := header +
		"|1|........|........||\n" +
		"|0|.......A|R.......||\n" +
		"|0|RLDUTSBA|....T...||\r\n"

	m, err := movie.DecodeFM2([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, 3, m.Header.Version)
	assert.Equal(t, 12, m.Header.RerecordCount)
	assert.Equal(t, "smb", m.Header.ROMFilename)
	assert.Equal(t, []string{"author somebody"}, m.Header.Comments)
	assert.Equal(t, movie.DeviceGamepad, m.Header.Ports[1])
	assert.Equal(t, 3, m.Len())

	f, ok := m.Frame(0)
	require.True(t, ok)
	assert.Equal(t, movie.CommandSoftReset, f.Commands)

	f, _ = m.Frame(1)
	assert.Equal(t, btns(playback.ButtonA), f.Controllers[0])
	assert.Equal(t, btns(playback.ButtonRight), f.Controllers[1])

	f, _ = m.Frame(2)
	assert.Equal(t, playback.InputBitmask(0xFF), f.Controllers[0])
	assert.Equal(t, btns(playback.ButtonStart), f.Controllers[1])

	_, ok = m.Frame(3)
	assert.False(t, ok)
}

func TestCursor(t *testing.T) {
	data := header +
		"|0|.......A|........||\n" +
		"|0|......B.|........||\n"

	m, err := movie.DecodeFM2([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, 0, m.Position())
	assert.False(t, m.IsEndOfStream())

	assert.Equal(t, btns(playback.ButtonA), m.NextFrameInput()[0])
	assert.False(t, m.IsEndOfStream())
	assert.Equal(t, btns(playback.ButtonB), m.NextFrameInput()[0])
	assert.True(t, m.IsEndOfStream(), "end is reached right after the last frame")
	assert.Equal(t, 2, m.Position())

	assert.Equal(t, playback.Controllers{}, m.NextFrameInput(), "neutral input past the end")
	assert.Equal(t, 2, m.Position())

	m.Reset()
	assert.Equal(t, 0, m.Position())
	assert.Equal(t, btns(playback.ButtonA), m.NextFrameInput()[0])
}

func TestUnpluggedPortIsIgnored(t *testing.T) {
	data := "version 3\nport0 1\nport1 0\n|0|...U....|||\n"

	m, err := movie.DecodeFM2([]byte(data))
	require.NoError(t, err)

	f, _ := m.Frame(0)
	assert.Equal(t, btns(playback.ButtonUp), f.Controllers[0])
	assert.Equal(t, playback.InputBitmask(0), f.Controllers[1])
}

func TestDecoderRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		is   error
	}{
		{"binary", "version 3\nbinary 1\n", movie.ErrBinaryMovie},
		{"four score", "version 3\nfourscore 1\n", movie.ErrFourScore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := movie.DecodeFM2([]byte(tt.data))
			assert.ErrorIs(t, err, tt.is)
		})
	}
}

func TestDecoderSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		line int
	}{
		{"short gamepad", "version 3\nport0 1\n|0|..A|||\n", 3},
		{"bad commands", "version 3\n|x|........|||\n", 2},
		{"bad flag", "version 3\npalFlag yes\n", 2},
		{"unknown device", "version 3\nport1 7\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := movie.DecodeFM2([]byte(tt.data))

			var syntax movie.ErrSyntax
			require.ErrorAs(t, err, &syntax)
			assert.Equal(t, tt.line, syntax.Line)
		})
	}
}

func TestMissingVersion(t *testing.T) {
	_, err := movie.DecodeFM2([]byte("|0|........|||\n"))
	assert.Error(t, err)
}

func TestDecoderAsMovieSource(t *testing.T) {
	var decode playback.MovieDecoder = movie.Decoder

	src, err := decode([]byte(header + "|0|........|........||\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, src.Len())
}
