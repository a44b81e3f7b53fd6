// Package music exposes the background music library, a directory of
// audio files the operator curates.
package music

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"slidecast/internal/pkg/errors"
)

var audioExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
	".m4a": true,
}

// Track is one audio file available for background music.
type Track struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Library lists and resolves tracks from a directory.
type Library struct {
	dir string
}

func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// List returns the available tracks sorted by name. A missing library
// directory is an empty library, not an error.
func (l *Library) List() ([]Track, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Track{}, nil
		}
		return nil, errors.Wrap(err, "music.list", "failed to read music library")
	}

	tracks := make([]Track, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !audioExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		tracks = append(tracks, Track{Name: e.Name(), Size: info.Size()})
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Name < tracks[j].Name })
	return tracks, nil
}

// Resolve returns the absolute path of a named track. The name must
// refer to a file directly inside the library.
func (l *Library) Resolve(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	if filepath.Base(name) != name {
		return "", errors.ValidationField("music_file", "invalid track name")
	}
	if !audioExtensions[strings.ToLower(filepath.Ext(name))] {
		return "", errors.ValidationField("music_file", "unsupported audio format")
	}
	path := filepath.Join(l.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", errors.NotFound("music track", name)
	}
	return path, nil
}
