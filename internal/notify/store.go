package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// cleanName accepts a bare file name and rejects anything that could address
// a location outside the store.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDocumentName, name)
	}
	return name, nil
}

// LocalStore keeps documents as files in a single directory. References are
// the bare file names.
type LocalStore struct {
	Dir string
}

// Save writes data to Dir/name, creating Dir when missing.
func (s LocalStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return "", fmt.Errorf("create outputs dir: %w", err)
	}
	// Write to a temp file first so readers never observe a partial PDF.
	tmp, err := os.CreateTemp(s.Dir, "."+name+".*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.Dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return name, nil
}

// Open returns the document stored under ref.
func (s LocalStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := cleanName(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}
	return f, err
}

// List returns stored document names in lexical order. A missing directory
// is an empty store.
func (s LocalStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// GCSStore keeps documents as objects in a Google Cloud Storage bucket under
// an optional prefix. References are the bare object names without prefix.
type GCSStore struct {
	Client *storage.Client
	Bucket string
	Prefix string
}

func (s GCSStore) object(name string) *storage.ObjectHandle {
	return s.Client.Bucket(s.Bucket).Object(s.Prefix + name)
}

// Save uploads data as name.
func (s GCSStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	w := s.object(name).NewWriter(ctx)
	w.ContentType = pdfContentType
	w.CacheControl = "no-cache, no-store, must-revalidate"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload gs://%s/%s%s: %w", s.Bucket, s.Prefix, name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close gs://%s/%s%s: %w", s.Bucket, s.Prefix, name, err)
	}
	return name, nil
}

// Open streams the object stored under ref.
func (s GCSStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	name, err := cleanName(ref)
	if err != nil {
		return nil, err
	}
	r, err := s.object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}
	return r, err
}

// List returns the object names under Prefix, prefix stripped.
func (s GCSStore) List(ctx context.Context) ([]string, error) {
	it := s.Client.Bucket(s.Bucket).Objects(ctx, &storage.Query{Prefix: s.Prefix})
	out := []string{}
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", s.Bucket, s.Prefix, err)
		}
		name := strings.TrimPrefix(attrs.Name, s.Prefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
