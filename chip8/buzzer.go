package chip8

// Buzzer sounds while the sound timer is active
type Buzzer interface {
	Play()
	Stop()
}

// DummyBuzzer only remembers whether it should be sounding
type DummyBuzzer struct {
	IsPlaying bool
}

func NewDummyBuzzer() *DummyBuzzer {
	return &DummyBuzzer{
		IsPlaying: false,
	}
}

// Play implements Buzzer.
func (b *DummyBuzzer) Play() {
	b.IsPlaying = true
}

// Stop implements Buzzer.
func (b *DummyBuzzer) Stop() {
	b.IsPlaying = false
}
