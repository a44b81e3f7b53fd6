// Package localfs implements ports.ObjectStore on the local
// filesystem under a configured root directory.
package localfs

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"slidecast/internal/ports"
)

type LocalFS struct {
	root string
}

func New(root string) *LocalFS {
	return &LocalFS{root: root}
}

func (l *LocalFS) Provider() string { return "localfs" }

// Path returns the absolute filesystem path for an object key.
func (l *LocalFS) Path(objectKey string) string {
	return filepath.Join(l.root, filepath.FromSlash(objectKey))
}

func (l *LocalFS) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	if in.ObjectKey == "" {
		return ports.PutObjectOutput{}, fmt.Errorf("object_key is required")
	}

	dst := l.Path(in.ObjectKey)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ports.PutObjectOutput{}, err
	}

	outF, err := os.Create(dst)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	defer outF.Close()

	n, err := io.Copy(outF, in.Reader)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}

	return ports.PutObjectOutput{ObjectKey: in.ObjectKey, Size: n}, nil
}

func (l *LocalFS) GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error) {
	p := l.Path(objectKey)
	f, err := os.Open(p)
	if err != nil {
		return nil, "", 0, err
	}

	st, statErr := f.Stat()
	if statErr == nil {
		size = st.Size()
	}

	// Prefer extension-based type. If empty, sniff first bytes.
	contentType = mime.TypeByExtension(filepath.Ext(p))
	if contentType == "" {
		buf := make([]byte, 512)
		n, _ := f.Read(buf)
		_, _ = f.Seek(0, 0)
		contentType = http.DetectContentType(buf[:n])
	}

	return f, contentType, size, nil
}

func (l *LocalFS) DeleteObject(ctx context.Context, objectKey string) error {
	return os.Remove(l.Path(objectKey))
}
