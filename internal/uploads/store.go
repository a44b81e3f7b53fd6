// Package uploads persists incoming image batches in the workspace.
// A batch is immutable once stored: an ordered list of image files
// under uploads/{upload_id}/ plus a manifest describing them.
package uploads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"slidecast/internal/pkg/errors"
	"slidecast/internal/ports"
)

// allowed image extensions, lowercase, without dot.
var imageExtensions = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Limits bounds a single upload batch.
type Limits struct {
	MaxFileBytes  int64
	MaxTotalBytes int64
	MaxFiles      int
}

// Incoming is one file of an upload request.
type Incoming struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// File is one stored image of a batch.
type File struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	ObjectKey string `json:"object_key"`
}

// Batch is an immutable set of uploaded images.
type Batch struct {
	ID        string    `json:"id"`
	Files     []File    `json:"files"`
	TotalSize int64     `json:"total_size"`
	CreatedAt time.Time `json:"created_at"`
}

// Store validates and persists upload batches.
type Store struct {
	objects ports.ObjectStore
	limits  Limits
}

func New(objects ports.ObjectStore, limits Limits) *Store {
	return &Store{objects: objects, limits: limits}
}

// Store validates the batch and persists it under a fresh upload ID.
// Validation runs before anything touches the object store, so a
// rejected batch persists no files.
func (s *Store) Store(ctx context.Context, files []Incoming) (*Batch, error) {
	if len(files) == 0 {
		return nil, errors.Validation("no images provided")
	}
	if len(files) > s.limits.MaxFiles {
		return nil, errors.Validationf("maximum %d images allowed", s.limits.MaxFiles)
	}

	var total int64
	for _, f := range files {
		if _, err := extFor(f.Name); err != nil {
			return nil, err
		}
		if f.Size > s.limits.MaxFileBytes {
			return nil, errors.Validationf("file %s exceeds %dMB limit",
				f.Name, s.limits.MaxFileBytes/(1024*1024)).WithField("file", f.Name)
		}
		total += f.Size
	}
	if total > s.limits.MaxTotalBytes {
		return nil, errors.Validationf("total upload size exceeds %dMB limit",
			s.limits.MaxTotalBytes/(1024*1024))
	}

	batch := &Batch{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	for i, f := range files {
		ext, _ := extFor(f.Name)
		name := fmt.Sprintf("%03d_%s", i, sanitizeName(f.Name))
		key := path.Join("uploads", batch.ID, name)

		out, err := s.objects.PutObject(ctx, ports.PutObjectInput{
			ObjectKey:   key,
			ContentType: imageExtensions[ext],
			Reader:      f.Reader,
			Size:        f.Size,
		})
		if err != nil {
			s.discard(ctx, batch)
			return nil, errors.Wrap(err, "uploads.store", "failed to persist upload")
		}

		// Sizes from the multipart header are advisory; the stored
		// byte count is authoritative.
		if out.Size > s.limits.MaxFileBytes {
			s.discard(ctx, batch)
			return nil, errors.Validationf("file %s exceeds %dMB limit",
				f.Name, s.limits.MaxFileBytes/(1024*1024)).WithField("file", f.Name)
		}

		batch.Files = append(batch.Files, File{Name: name, Size: out.Size, ObjectKey: out.ObjectKey})
		batch.TotalSize += out.Size
	}

	if batch.TotalSize > s.limits.MaxTotalBytes {
		s.discard(ctx, batch)
		return nil, errors.Validationf("total upload size exceeds %dMB limit",
			s.limits.MaxTotalBytes/(1024*1024))
	}

	if err := s.writeManifest(ctx, batch); err != nil {
		s.discard(ctx, batch)
		return nil, errors.Wrap(err, "uploads.store", "failed to write manifest")
	}

	return batch, nil
}

// Resolve loads a batch by ID.
func (s *Store) Resolve(ctx context.Context, id string) (*Batch, error) {
	rc, _, _, err := s.objects.GetObject(ctx, manifestKey(id))
	if err != nil {
		return nil, errors.NotFound("upload batch", id)
	}
	defer rc.Close()

	var batch Batch
	if err := json.NewDecoder(rc).Decode(&batch); err != nil {
		return nil, errors.Wrap(err, "uploads.resolve", "corrupt batch manifest")
	}
	return &batch, nil
}

// Open returns a reader over one stored file of a batch.
func (s *Store) Open(ctx context.Context, f File) (io.ReadCloser, error) {
	rc, _, _, err := s.objects.GetObject(ctx, f.ObjectKey)
	if err != nil {
		return nil, errors.Wrap(err, "uploads.open", "cannot read stored file")
	}
	return rc, nil
}

// Delete removes a batch and its files.
func (s *Store) Delete(ctx context.Context, id string) error {
	batch, err := s.Resolve(ctx, id)
	if err != nil {
		return err
	}
	s.discard(ctx, batch)
	return s.objects.DeleteObject(ctx, manifestKey(id))
}

func (s *Store) writeManifest(ctx context.Context, batch *Batch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	_, err = s.objects.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   manifestKey(batch.ID),
		ContentType: "application/json",
		Reader:      strings.NewReader(string(data)),
		Size:        int64(len(data)),
	})
	return err
}

func (s *Store) discard(ctx context.Context, batch *Batch) {
	for _, f := range batch.Files {
		_ = s.objects.DeleteObject(ctx, f.ObjectKey)
	}
}

func manifestKey(id string) string {
	return path.Join("uploads", id, "manifest.json")
}

func extFor(name string) (string, error) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return "", errors.Validationf("file %s has no extension", name).WithField("file", name)
	}
	ext := strings.ToLower(name[idx+1:])
	if _, ok := imageExtensions[ext]; !ok {
		return "", errors.Validationf("file type .%s is not an accepted image type", ext).
			WithField("file", name)
	}
	return ext, nil
}

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	return name
}
