// Package options holds the command line flags shared by the commands
package options

import (
	"context"
	"errors"
	"fmt"

	"github.com/guslan/playback"
	"github.com/guslan/playback/assets"
	"github.com/guslan/playback/chip8"
)

// Assets names the program and movie to start with
type Assets struct {
	ROM      string `arg:"" optional:"" help:"Program image, a file path or an http(s) URL"`
	Movie    string `short:"m" help:"FM2 movie to replay, a file path or an http(s) URL"`
	Fragment string `help:"Asset references in the form rom=<ref>&fm2=<ref>"`
	Payload  string `env:"PLAYBACK_PAYLOAD" help:"Inline base64 assets in the form rom=<data>&fm2=<data>. Takes precedence over references"`
}

func (a *Assets) Validate() error {
	if a.Fragment != "" && (a.ROM != "" || a.Movie != "") {
		return errors.New("use either a fragment or the rom and movie flags")
	}

	return nil
}

// IsEmpty reports whether no asset was named at all
func (a Assets) IsEmpty() bool {
	return a.ROM == "" && a.Movie == "" && a.Fragment == "" && a.Payload == ""
}

func (a Assets) fragment() string {
	if a.Fragment != "" {
		return a.Fragment
	}

	return fmt.Sprintf("rom=%s&fm2=%s", a.ROM, a.Movie)
}

// Load resolves the named assets
func (a Assets) Load(ctx context.Context, loader *assets.Loader) (assets.Assets, error) {
	return loader.Resolve(ctx, a.fragment(), a.Payload)
}

// Playback tunes the scheduler and the reference machine
type Playback struct {
	EndPolicy string `enum:"pause,hold,loop" default:"pause" help:"What a replay does when the movie runs out: ${enum}"`
	Cycles    uint   `default:"10" help:"Instructions run per frame"`
	Autostart bool   `default:"true" negatable:"" help:"Start playing as soon as a program is loaded"`
}

func (p *Playback) Validate() error {
	if p.Cycles == 0 || p.Cycles > chip8.MaxCyclesPerFrame {
		return fmt.Errorf("cycles must be in [1, %d]", chip8.MaxCyclesPerFrame)
	}

	return nil
}

func (p Playback) Policy() playback.EndPolicy {
	policy, _ := playback.ParseEndPolicy(p.EndPolicy)
	return policy
}
