package uploads

import (
	"context"
	"strings"
	"testing"

	"slidecast/internal/adapters/storage/localfs"
	"slidecast/internal/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(localfs.New(t.TempDir()), Limits{
		MaxFileBytes:  1024,
		MaxTotalBytes: 2048,
		MaxFiles:      3,
	})
}

func incoming(name, body string) Incoming {
	return Incoming{Name: name, Size: int64(len(body)), Reader: strings.NewReader(body)}
}

func TestStoreAndResolve(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch, err := s.Store(ctx, []Incoming{
		incoming("beach.jpg", "first"),
		incoming("sunset.png", "second"),
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if batch.ID == "" {
		t.Fatal("expected a batch ID")
	}
	if len(batch.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(batch.Files))
	}
	if batch.Files[0].Name != "000_beach.jpg" || batch.Files[1].Name != "001_sunset.png" {
		t.Fatalf("unexpected stored names: %q, %q", batch.Files[0].Name, batch.Files[1].Name)
	}
	if batch.TotalSize != int64(len("first")+len("second")) {
		t.Fatalf("unexpected total size %d", batch.TotalSize)
	}

	got, err := s.Resolve(ctx, batch.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != batch.ID || len(got.Files) != 2 {
		t.Fatalf("resolved batch does not match stored batch: %+v", got)
	}
}

func TestStoreRejectsEmptyBatch(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Store(context.Background(), nil); !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStoreRejectsTooManyFiles(t *testing.T) {
	s := newTestStore(t)
	files := []Incoming{
		incoming("a.jpg", "x"),
		incoming("b.jpg", "x"),
		incoming("c.jpg", "x"),
		incoming("d.jpg", "x"),
	}
	if _, err := s.Store(context.Background(), files); !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStoreRejectsBadExtension(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"movie.mp4", "notes.txt", "noext"} {
		_, err := s.Store(context.Background(), []Incoming{incoming(name, "x")})
		if !errors.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestStoreRejectsOversizedFile(t *testing.T) {
	s := newTestStore(t)
	big := strings.Repeat("x", 2000)
	_, err := s.Store(context.Background(), []Incoming{incoming("big.jpg", big)})
	if !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStoreRejectsOversizedTotal(t *testing.T) {
	s := newTestStore(t)
	body := strings.Repeat("x", 900)
	files := []Incoming{
		incoming("a.jpg", body),
		incoming("b.jpg", body),
		incoming("c.jpg", body),
	}
	_, err := s.Store(context.Background(), files)
	if !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRejectedBatchPersistsNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Store(ctx, []Incoming{
		incoming("ok.jpg", "fine"),
		incoming("bad.exe", "nope"),
	})
	if !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// A later valid batch is the only thing resolvable.
	batch, err := s.Store(ctx, []Incoming{incoming("ok.jpg", "fine")})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := s.Resolve(ctx, batch.ID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
}

func TestResolveUnknown(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Resolve(context.Background(), "does-not-exist")
	if !errors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch, err := s.Store(ctx, []Incoming{incoming("a.jpg", "x")})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Delete(ctx, batch.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Resolve(ctx, batch.ID); !errors.IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"photo.jpg", "photo.jpg"},
		{"../../etc/passwd.png", "passwd.png"},
		{"my photo (1).jpg", "my_photo_1_.jpg"},
		{"..\\windows\\path.jpg", "path.jpg"},
	}
	for _, c := range cases {
		if got := sanitizeName(c.in); got != c.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
