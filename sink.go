package slr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/memblob"  // mem:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver
)

// Sink writes exports to a bucket: file:///dir, mem://, gs://bucket or s3://bucket.
// Keys ending in ".zst" are zstd-compressed on the way out.
type Sink struct {
	bucket *blob.Bucket
	url    string
	log    *slog.Logger
}

// OpenSink opens the bucket at url.
func OpenSink(ctx context.Context, url string, log *slog.Logger) (*Sink, error) {
	if log == nil {
		log = slog.Default()
	}
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", url, err)
	}
	return &Sink{bucket: bucket, url: url, log: log}, nil
}

// Write stores data under key.
func (s *Sink) Write(ctx context.Context, key string, data []byte) error {
	contentType := contentTypeForKey(key)
	if strings.HasSuffix(key, ".zst") {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("zstd encoder: %w", err)
		}
		data = enc.EncodeAll(data, nil)
		enc.Close()
		contentType = "application/zstd"
	}

	w, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", key, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}

	s.log.Debug("Export written", "bucket", s.url, "key", key, "bytes", len(data))
	return nil
}

// Read returns the stored object, decompressing ".zst" keys.
func (s *Sink) Read(ctx context.Context, key string) ([]byte, error) {
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !strings.HasSuffix(key, ".zst") {
		return data, nil
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

// ExportResult writes the table as CSV and as markdown under prefix, returning
// the keys written. A ParseError from the CSV conversion leaves the markdown
// export in place.
func (s *Sink) ExportResult(ctx context.Context, prefix, markdown string, compress bool) ([]string, error) {
	ext := ""
	if compress {
		ext = ".zst"
	}

	mdKey := prefix + ".md" + ext
	if err := s.Write(ctx, mdKey, []byte(ToClipboardText(markdown))); err != nil {
		return nil, err
	}
	keys := []string{mdKey}

	csvData, err := ToCSV(markdown)
	if err != nil {
		return keys, err
	}
	csvKey := prefix + ".csv" + ext
	if err := s.Write(ctx, csvKey, csvData); err != nil {
		return keys, err
	}
	return append(keys, csvKey), nil
}

// Close releases the bucket.
func (s *Sink) Close() error {
	return s.bucket.Close()
}

func contentTypeForKey(key string) string {
	key = strings.TrimSuffix(key, ".zst")
	switch {
	case strings.HasSuffix(key, ".csv"):
		return "text/csv"
	case strings.HasSuffix(key, ".md"):
		return "text/markdown"
	default:
		return "application/octet-stream"
	}
}
