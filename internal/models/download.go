// Package models makes sure a ggml model file is present on disk before the
// bridge loads it, copying a bundled copy or downloading it.
package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// ErrNoSource is returned by Ensure when the model is missing and there is
// neither a bundled copy nor a URL to fetch it from.
var ErrNoSource = errors.New("models: model missing and no source configured")

// Source describes where a missing model can be obtained.
type Source struct {
	BundledPath string    // local copy shipped with the application
	URL         string    // remote location, used when BundledPath is empty or missing
	Progress    io.Writer // download progress output; nil disables it
	Client      *http.Client
}

// Ensure returns dest once it holds a non-empty model file. A missing model
// is copied from src.BundledPath if that exists, otherwise downloaded from
// src.URL. Files are written to a temp path and renamed into place.
func Ensure(ctx context.Context, dest string, src Source) (string, error) {
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		slog.Debug("model present", "path", dest, "bytes", info.Size())
		return dest, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("models: creating models dir: %w", err)
	}

	if src.BundledPath != "" {
		if _, err := os.Stat(src.BundledPath); err == nil {
			slog.Info("copying bundled model", "from", src.BundledPath, "to", dest)
			if err := install(dest, func(tmp string) error { return copyFile(src.BundledPath, tmp) }); err != nil {
				return "", fmt.Errorf("models: copying bundled model: %w", err)
			}
			return dest, nil
		}
		slog.Warn("bundled model not found", "path", src.BundledPath)
	}

	if src.URL == "" {
		return "", fmt.Errorf("%w: %s", ErrNoSource, dest)
	}

	slog.Info("downloading model", "url", src.URL, "to", dest)
	if err := install(dest, func(tmp string) error { return download(ctx, src, tmp) }); err != nil {
		return "", fmt.Errorf("models: downloading model: %w", err)
	}
	return dest, nil
}

// install runs fill against dest.tmp and renames it over dest on success.
func install(dest string, fill func(tmp string) error) error {
	tmpPath := dest + ".tmp"
	if err := fill(tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("moving model file: %w", err)
	}
	return nil
}

func download(ctx context.Context, src Source, dest string) error {
	client := src.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	var w io.Writer = f
	if src.Progress != nil {
		w = &progressWriter{
			writer: f,
			out:    src.Progress,
			total:  resp.ContentLength,
			label:  filepath.Base(src.URL),
		}
	}

	written, err := io.Copy(w, resp.Body)
	closeErr := f.Close()
	if err != nil {
		return fmt.Errorf("writing model file: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("closing model file: %w", closeErr)
	}
	if written == 0 {
		return fmt.Errorf("download returned an empty body")
	}
	if src.Progress != nil {
		fmt.Fprintf(src.Progress, "\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// progressWriter wraps an io.Writer and prints download progress to out.
type progressWriter struct {
	writer  io.Writer
	out     io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}
