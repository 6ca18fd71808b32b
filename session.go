package playback

// Session holds the assets playback runs from
type Session struct {
	Program []byte
	Movie   []byte

	source MovieSource
}

func (s Session) HasProgram() bool {
	return len(s.Program) > 0
}

func (s Session) HasMovie() bool {
	return s.source != nil
}
