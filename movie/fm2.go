package movie

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/guslan/playback"
)

var ErrBinaryMovie = errors.New("fm2: binary input logs are not supported")
var ErrFourScore = errors.New("fm2: four score movies are not supported")

// ErrSyntax reports a malformed line
type ErrSyntax struct {
	Line int
	Msg  string
}

func (err ErrSyntax) Error() string {
	return fmt.Sprintf("fm2: line %d: %s", err.Line, err.Msg)
}

// Version is the only FM2 version understood
const Version = 3

// PortDevice is the device plugged in a port
type PortDevice int

const (
	DeviceNone PortDevice = iota
	DeviceGamepad
	DeviceZapper
)

// Header holds the key/value lines that precede the input log
type Header struct {
	Version       int
	EmuVersion    int
	RerecordCount int
	PAL           bool
	NewPPU        bool
	FDS           bool
	FourScore     bool
	Microphone    bool
	ROMFilename   string
	ROMChecksum   string
	GUID          string
	Ports         [3]PortDevice
	Comments      []string
	Subtitles     []string
	// Extra keeps keys this decoder does not know
	Extra map[string]string
}

// gamepadColumns is the order of the buttons in a gamepad field
const gamepadColumns = "RLDUTSBA"

var gamepadButtons = [len(gamepadColumns)]playback.Button{
	playback.ButtonRight,
	playback.ButtonLeft,
	playback.ButtonDown,
	playback.ButtonUp,
	playback.ButtonStart,
	playback.ButtonSelect,
	playback.ButtonB,
	playback.ButtonA,
}

// Decoder implements playback.MovieDecoder for FM2 data
func Decoder(data []byte) (playback.MovieSource, error) {
	return DecodeFM2(data)
}

// DecodeFM2 parses a text FM2 movie
func DecodeFM2(data []byte) (*Movie, error) {
	m := &Movie{
		Header: Header{
			Ports: [3]PortDevice{DeviceGamepad, DeviceNone, DeviceNone},
			Extra: map[string]string{},
		},
		frames: make([]Frame, 0, bytes.Count(data, []byte{'\n'})),
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}

		if text[0] == '|' {
			f, err := m.Header.parseFrame(text)
			if err != nil {
				return nil, ErrSyntax{Line: line, Msg: err.Error()}
			}
			m.frames = append(m.frames, f)
			continue
		}

		if err := m.Header.parseLine(text); err != nil {
			if errors.Is(err, ErrBinaryMovie) || errors.Is(err, ErrFourScore) {
				return nil, err
			}
			return nil, ErrSyntax{Line: line, Msg: err.Error()}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("fm2: %w", err)
	}

	if m.Header.Version != Version {
		return nil, fmt.Errorf("fm2: unsupported version %d", m.Header.Version)
	}

	return m, nil
}

func (h *Header) parseLine(text string) error {
	key, value, _ := strings.Cut(text, " ")

	var err error
	switch key {
	case "version":
		h.Version, err = strconv.Atoi(value)
	case "emuVersion":
		h.EmuVersion, err = strconv.Atoi(value)
	case "rerecordCount":
		h.RerecordCount, err = strconv.Atoi(value)
	case "palFlag":
		h.PAL, err = parseFlag(value)
	case "NewPPU":
		h.NewPPU, err = parseFlag(value)
	case "FDS":
		h.FDS, err = parseFlag(value)
	case "microphone":
		h.Microphone, err = parseFlag(value)
	case "fourscore":
		h.FourScore, err = parseFlag(value)
		if err == nil && h.FourScore {
			return ErrFourScore
		}
	case "binary":
		binary, perr := parseFlag(value)
		if perr != nil {
			return perr
		}
		if binary {
			return ErrBinaryMovie
		}
	case "romFilename":
		h.ROMFilename = value
	case "romChecksum":
		h.ROMChecksum = value
	case "guid":
		h.GUID = value
	case "port0", "port1", "port2":
		var n int
		n, err = strconv.Atoi(value)
		if err == nil && (n < int(DeviceNone) || n > int(DeviceZapper)) {
			err = fmt.Errorf("unknown device %d", n)
		}
		h.Ports[key[4]-'0'] = PortDevice(n)
	case "comment":
		h.Comments = append(h.Comments, value)
	case "subtitle":
		h.Subtitles = append(h.Subtitles, value)
	default:
		h.Extra[key] = value
	}

	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	return nil
}

func parseFlag(value string) (bool, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

// parseFrame reads a |commands|port0|port1|port2| record
func (h Header) parseFrame(text string) (Frame, error) {
	fields := strings.Split(text, "|")
	// leading and trailing separators give empty first and last fields
	if len(fields) < 4 {
		return Frame{}, fmt.Errorf("expected at least 3 fields, got %d", len(fields)-2)
	}
	fields = fields[1:]

	var f Frame

	cmd, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Frame{}, fmt.Errorf("commands: %w", err)
	}
	f.Commands = Command(cmd)

	for port := 0; port < playback.MaxPorts; port++ {
		if h.Ports[port] != DeviceGamepad {
			continue
		}
		if 1+port >= len(fields) {
			return Frame{}, fmt.Errorf("missing port%d field", port)
		}
		field := fields[1+port]
		mask, err := parseGamepad(field)
		if err != nil {
			return Frame{}, fmt.Errorf("port%d: %w", port, err)
		}
		f.Controllers[port] = mask
	}

	return f, nil
}

func parseGamepad(field string) (playback.InputBitmask, error) {
	if len(field) != len(gamepadColumns) {
		return 0, fmt.Errorf("gamepad field %q must be %d characters", field, len(gamepadColumns))
	}

	var mask playback.InputBitmask
	for i := 0; i < len(field); i++ {
		if field[i] != '.' && field[i] != ' ' {
			mask = mask.With(gamepadButtons[i])
		}
	}

	return mask, nil
}
