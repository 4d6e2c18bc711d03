package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phrazzld/scry-chat/internal/generation"
)

// Dir is a generation.ImageStore backed by a directory. The reference of a
// stored image is its bare file name.
type Dir struct {
	root   string
	logger *slog.Logger
}

// NewDir creates the directory if needed and returns a store rooted there.
func NewDir(root string, logger *slog.Logger) (*Dir, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: image directory cannot be empty", generation.ErrInvalidConfig)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &Dir{root: root, logger: logger.With("component", "imagestore")}, nil
}

// ValidateName rejects names that are empty, hidden, or contain path elements.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", generation.ErrInvalidImageName, name)
	}
	return nil
}

// Save moves the file at tempPath into the directory under name.
// A rename is tried first; across file systems the file is copied.
func (d *Dir) Save(ctx context.Context, tempPath, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dest := filepath.Join(d.root, name)
	if err := os.Rename(tempPath, dest); err == nil {
		return name, nil
	}

	if err := copyFile(tempPath, dest); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	if err := os.Remove(tempPath); err != nil {
		d.logger.Warn("failed to remove temporary image", "path", tempPath, "error", err)
	}
	return name, nil
}

// Open returns the stored image and its modification time.
func (d *Dir) Open(ref string) (io.ReadSeekCloser, time.Time, error) {
	if err := ValidateName(ref); err != nil {
		return nil, time.Time{}, err
	}

	f, err := os.Open(filepath.Join(d.root, ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, time.Time{}, fmt.Errorf("%w: %s", generation.ErrImageNotFound, ref)
		}
		return nil, time.Time{}, fmt.Errorf("failed to open image: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, time.Time{}, fmt.Errorf("failed to stat image: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, time.Time{}, fmt.Errorf("%w: %s", generation.ErrImageNotFound, ref)
	}
	return f, info.ModTime(), nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}
