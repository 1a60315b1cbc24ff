package slr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LoadFiles reads the documents at paths concurrently and returns them in the
// same order, ready for SplitFiles. The first read error cancels the rest.
func LoadFiles(ctx context.Context, paths []string) ([]InputFile, error) {
	return LoadFilesWith(DefaultRunner(ctx), paths)
}

// LoadFilesWith is LoadFiles on a caller-supplied Runner.
func LoadFilesWith(r Runner, paths []string) ([]InputFile, error) {
	files := make([]InputFile, len(paths))
	for i, path := range paths {
		r.Go(func(context.Context) error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			files[i] = InputFile{
				Name:     filepath.Base(path),
				Data:     data,
				MimeType: mimeTypeFromPath(path, data),
			}
			return nil
		})
	}
	if err := r.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// mimeTypeFromPath detects the MIME type from content, falling back to the
// file extension when the content is not conclusive.
func mimeTypeFromPath(path string, data []byte) string {
	mt := detectMIME(data)
	if mt != "" && mt != "application/octet-stream" && mt != "text/plain" {
		return mt
	}

	switch filepath.Ext(path) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	case ".html", ".htm":
		return "text/html"
	}
	if mt != "" {
		return mt
	}
	return "application/octet-stream"
}
