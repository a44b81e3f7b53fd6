package music

import (
	"os"
	"path/filepath"
	"testing"

	"slidecast/internal/pkg/errors"
)

func newTestLibrary(t *testing.T, names ...string) *Library {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("audio"), 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
	return NewLibrary(dir)
}

func TestListFiltersAndSorts(t *testing.T) {
	lib := newTestLibrary(t, "zeta.mp3", "alpha.wav", "notes.txt", "cover.jpg", "loop.m4a")

	tracks, err := lib.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"alpha.wav", "loop.m4a", "zeta.mp3"}
	if len(tracks) != len(want) {
		t.Fatalf("got %d tracks, want %d", len(tracks), len(want))
	}
	for i, w := range want {
		if tracks[i].Name != w {
			t.Errorf("tracks[%d] = %s, want %s", i, tracks[i].Name, w)
		}
	}
}

func TestListMissingDirectory(t *testing.T) {
	lib := NewLibrary(filepath.Join(t.TempDir(), "nope"))
	tracks, err := lib.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tracks) != 0 {
		t.Fatalf("expected empty library, got %d tracks", len(tracks))
	}
}

func TestResolve(t *testing.T) {
	lib := newTestLibrary(t, "song.mp3")

	path, err := lib.Resolve("song.mp3")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(path) != "song.mp3" {
		t.Fatalf("unexpected path %s", path)
	}

	if p, err := lib.Resolve(""); err != nil || p != "" {
		t.Fatalf("empty name should resolve to no track, got %q, %v", p, err)
	}

	if _, err := lib.Resolve("missing.mp3"); !errors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := lib.Resolve("../escape.mp3"); !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := lib.Resolve("song.ogg"); !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
