// Package assets fetches the program image and movie a session is made of.
//
// Assets are named by a fragment of the form rom=<ref>&fm2=<ref>, where a
// reference is an http(s) URL or a file path, or carried inline by a payload
// of the same form holding base64 data.
package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	programKey = "rom="
	movieKey   = "fm2="
)

// MaxSize bounds a single downloaded asset
const MaxSize = 16 << 20

// Request names where the assets come from. Empty fields are not loaded.
type Request struct {
	Program string
	Movie   string
}

func (r Request) IsEmpty() bool {
	return r.Program == "" && r.Movie == ""
}

// Assets are loaded program and movie bytes
type Assets struct {
	Program []byte
	Movie   []byte
}

// ErrStatus is returned for a download answered with a non 2xx status
type ErrStatus struct {
	URL  string
	Code int
}

func (err ErrStatus) Error() string {
	return fmt.Sprintf("fetching %s: unexpected status %d", err.URL, err.Code)
}

var ErrTooLarge = errors.New("asset is too large")

// ParseFragment reads rom= and fm2= pairs in any order. A leading # is ignored.
func ParseFragment(fragment string) Request {
	var req Request
	for _, part := range strings.Split(strings.TrimPrefix(fragment, "#"), "&") {
		switch {
		case strings.HasPrefix(part, programKey):
			req.Program = part[len(programKey):]
		case strings.HasPrefix(part, movieKey):
			req.Movie = part[len(movieKey):]
		}
	}

	return req
}

// DecodePayload reads a fragment whose values are base64 encoded data
func DecodePayload(payload string) (Assets, error) {
	req := ParseFragment(payload)

	var a Assets
	var err error
	if req.Program != "" {
		if a.Program, err = decodeBase64(req.Program); err != nil {
			return Assets{}, fmt.Errorf("decoding program payload: %w", err)
		}
	}
	if req.Movie != "" {
		if a.Movie, err = decodeBase64(req.Movie); err != nil {
			return Assets{}, fmt.Errorf("decoding movie payload: %w", err)
		}
	}

	return a, nil
}

func decodeBase64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

type Loader struct {
	client *http.Client
	log    *slog.Logger
}

type LoaderConfig struct {
	Client *http.Client
	Logger *slog.Logger
}
type LoaderConfigCb func(config *LoaderConfig)

func NewLoader(configs ...LoaderConfigCb) *Loader {
	config := &LoaderConfig{
		Client: &http.Client{Timeout: 30 * time.Second},
		Logger: slog.Default(),
	}
	for _, cb := range configs {
		cb(config)
	}

	return &Loader{
		client: config.Client,
		log:    config.Logger,
	}
}

// Load fetches the program and the movie concurrently
func (l *Loader) Load(ctx context.Context, req Request) (Assets, error) {
	var a Assets

	g, ctx := errgroup.WithContext(ctx)
	if req.Program != "" {
		g.Go(func() error {
			b, err := l.Fetch(ctx, req.Program)
			if err != nil {
				return fmt.Errorf("loading program: %w", err)
			}
			a.Program = b
			return nil
		})
	}
	if req.Movie != "" {
		g.Go(func() error {
			b, err := l.Fetch(ctx, req.Movie)
			if err != nil {
				return fmt.Errorf("loading movie: %w", err)
			}
			a.Movie = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Assets{}, err
	}

	return a, nil
}

// Fetch reads one reference, downloading URLs and reading anything else from disk
func (l *Loader) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		l.log.Debug("Reading asset", slog.String("path", ref))
		return os.ReadFile(ref)
	}

	l.log.Debug("Downloading asset", slog.String("url", ref))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ErrStatus{URL: ref, Code: resp.StatusCode}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxSize+1))
	if err != nil {
		return nil, err
	}
	if len(b) > MaxSize {
		return nil, fmt.Errorf("%s: %w", ref, ErrTooLarge)
	}

	return b, nil
}

// Resolve loads the assets named by fragment and overlays the inline
// payload, which wins when both provide the same asset
func (l *Loader) Resolve(ctx context.Context, fragment, payload string) (Assets, error) {
	inline, err := DecodePayload(payload)
	if err != nil {
		return Assets{}, err
	}

	req := ParseFragment(fragment)
	if inline.Program != nil {
		req.Program = ""
	}
	if inline.Movie != nil {
		req.Movie = ""
	}

	a, err := l.Load(ctx, req)
	if err != nil {
		return Assets{}, err
	}

	if inline.Program != nil {
		a.Program = inline.Program
	}
	if inline.Movie != nil {
		a.Movie = inline.Movie
	}

	return a, nil
}
