package localfs

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"slidecast/internal/ports"
)

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	out, err := store.PutObject(ctx, putInput("uploads/b1/one.jpg", "image/jpeg", "fake jpeg bytes"))
	if err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}
	if out.ObjectKey != "uploads/b1/one.jpg" {
		t.Errorf("expected key round-trip, got %s", out.ObjectKey)
	}
	if out.Size != int64(len("fake jpeg bytes")) {
		t.Errorf("unexpected size %d", out.Size)
	}

	rc, contentType, size, err := store.GetObject(ctx, "uploads/b1/one.jpg")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "fake jpeg bytes" {
		t.Errorf("unexpected content: %s", data)
	}
	if contentType != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", contentType)
	}
	if size != out.Size {
		t.Errorf("expected size %d, got %d", out.Size, size)
	}

	if err := store.DeleteObject(ctx, "uploads/b1/one.jpg"); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}
	if _, _, _, err := store.GetObject(ctx, "uploads/b1/one.jpg"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist after delete, got %v", err)
	}
}

func TestPutRequiresKey(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.PutObject(context.Background(), putInput("", "", "x")); err == nil {
		t.Error("expected error for empty object key")
	}
}

func TestGetMissing(t *testing.T) {
	store := New(t.TempDir())
	if _, _, _, err := store.GetObject(context.Background(), "outputs/nope.mp4"); err == nil {
		t.Error("expected error for missing object")
	}
}

func putInput(key, contentType, body string) ports.PutObjectInput {
	return ports.PutObjectInput{
		ObjectKey:   key,
		ContentType: contentType,
		Reader:      strings.NewReader(body),
		Size:        int64(len(body)),
	}
}
