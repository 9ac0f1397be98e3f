// Package audio extracts playback duration from audio files.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/tcolgate/mp3"

	"github.com/samtupy/folderstats/internal/model"
)

// Info is what an Extractor knows about a single audio file.
type Info struct {
	Duration float64 // seconds
	Format   string  // lower case extension without the dot, e.g. "mp3"
}

// Extractor reads audio metadata of a single file.
type Extractor interface {
	// Supported is a cheap check, usually based on the file name only.
	Supported(path string) bool
	// Extract reads the file. It returns model.ErrUnsupported for files it
	// can't decode and model.ErrNoDuration when the duration is unknown.
	Extract(path string) (Info, error)
}

type decodeFunc func(f *os.File) (float64, error)

// Files decodes mp3 and wav files from the local filesystem.
type Files struct {
	decoders map[string]decodeFunc
}

func NewFiles() Files {
	return Files{
		decoders: map[string]decodeFunc{
			"mp3": mp3Duration,
			"wav": wavDuration,
		},
	}
}

func (e Files) Supported(path string) bool {
	_, ok := e.decoders[Format(path)]
	return ok
}

func (e Files) Extract(path string) (Info, error) {
	format := Format(path)
	decode, ok := e.decoders[format]
	if !ok {
		return Info{}, fmt.Errorf("format %q: %w", format, model.ErrUnsupported)
	}

	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer func() {
		_ = f.Close()
	}()

	d, err := decode(f)
	if err != nil {
		return Info{}, fmt.Errorf("decoding %s: %w", format, err)
	}
	if d <= 0 {
		return Info{}, model.ErrNoDuration
	}
	return Info{Duration: d, Format: format}, nil
}

// Format returns the lower case extension of path without the leading dot.
func Format(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

func mp3Duration(f *os.File) (float64, error) {
	var (
		dec     = mp3.NewDecoder(f)
		frame   mp3.Frame
		skipped int
		total   float64
		frames  int
	)
	for {
		err := dec.Decode(&frame, &skipped)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if frames == 0 {
				return 0, errors.Join(model.ErrUnsupported, err)
			}
			// a truncated tail still leaves the decoded part valid
			break
		}
		frames++
		total += frame.Duration().Seconds()
	}
	return total, nil
}

func wavDuration(f *os.File) (float64, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, model.ErrUnsupported
	}
	d, err := dec.Duration()
	if err != nil {
		return 0, err
	}
	return d.Seconds(), nil
}
