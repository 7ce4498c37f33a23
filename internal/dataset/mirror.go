package dataset

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ErrCacheExists guards Pull against clobbering a cache that is already in
// use. Purge first.
var ErrCacheExists = errors.New("dataset_cache_exists")

// Mirror pushes and pulls the dataset cache as a tar.gz object in the
// datasets bucket, keyed by project version.
type Mirror struct {
	client *minio.Client
	bucket string
}

func NewMirror(client *minio.Client, bucket string) (*Mirror, error) {
	if client == nil {
		return nil, errors.New("minio client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("bucket is required")
	}
	return &Mirror{client: client, bucket: bucket}, nil
}

// ObjectKey names the mirrored archive for a given project version.
func ObjectKey(version string) string {
	return fmt.Sprintf("%s-%s.tar.gz", DirName, version)
}

// Push uploads the cache archive. The cache must exist locally.
func (m *Mirror) Push(ctx context.Context, cache Cache, version string) error {
	if !cache.Exists() {
		return fmt.Errorf("dataset cache not present at %s", cache.Path())
	}
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(writeArchive(pw, cache.Path()))
	}()
	_, err := m.client.PutObject(ctx, m.bucket, ObjectKey(version), pr, -1,
		minio.PutObjectOptions{ContentType: "application/gzip"})
	if err != nil {
		return fmt.Errorf("push dataset archive: %w", err)
	}
	return nil
}

// Pull downloads and unpacks the cache archive. It refuses to overwrite an
// existing cache: staleness is undetectable, so replacement must be an
// explicit purge.
func (m *Mirror) Pull(ctx context.Context, cache Cache, version string) error {
	if cache.Exists() {
		return fmt.Errorf("%w: %s", ErrCacheExists, cache.Path())
	}
	obj, err := m.client.GetObject(ctx, m.bucket, ObjectKey(version), minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("fetch dataset archive: %w", err)
	}
	defer func() { _ = obj.Close() }()
	if err := extractArchive(obj, cache.Path()); err != nil {
		_ = cache.Purge()
		return fmt.Errorf("unpack dataset archive: %w", err)
	}
	return nil
}

func writeArchive(w io.Writer, dir string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			_, err = io.Copy(tw, f)
			_ = f.Close()
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func extractArchive(r io.Reader, dir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer func() { _ = gz.Close() }()
	tr := tar.NewReader(gz)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := safeJoin(dir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return err
			}
			_, err = io.Copy(f, tr)
			closeErr := f.Close()
			if err != nil {
				return err
			}
			if closeErr != nil {
				return closeErr
			}
		default:
			// symlinks and devices have no business in a dataset archive
			return fmt.Errorf("unsupported entry %q (type %d)", hdr.Name, hdr.Typeflag)
		}
	}
}

func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes target: %q", name)
	}
	return target, nil
}
