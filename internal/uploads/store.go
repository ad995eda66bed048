// Package uploads stores user supplied images on the local filesystem and
// serves them back through the /uploads static route.
package uploads

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	// Subdirectories under the uploads root.
	ReceiptsDir        = "receipts"
	ProfilePicturesDir = "profile_pictures"

	MaxReceiptSize        = 5 << 20
	MaxProfilePictureSize = 2 << 20
)

var (
	ErrUnsupportedType = errors.New("only jpeg, jpg, png and gif images are allowed")
	ErrFileTooLarge    = errors.New("file exceeds the maximum allowed size")
)

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	for _, sub := range []string{ReceiptsDir, ProfilePicturesDir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0755); err != nil {
			return nil, fmt.Errorf("create uploads directory: %w", err)
		}
	}
	return &Store{root: root}, nil
}

// Save writes an uploaded image under the given subdirectory and returns its
// public URL path (relative, starting with /uploads/). The caller is expected
// to Remove the file if later validation fails.
func (s *Store) Save(ctx context.Context, file multipart.File, header *multipart.FileHeader, subdir, field string, maxSize int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return "", ErrUnsupportedType
	}
	if header.Size > maxSize {
		return "", ErrFileTooLarge
	}

	name := uniqueName(field, ext)
	dst := filepath.Join(s.root, subdir, name)

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, io.LimitReader(file, maxSize+1))
	if err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if written > maxSize {
		os.Remove(dst)
		return "", ErrFileTooLarge
	}

	slog.InfoContext(ctx, "File uploaded", "path", dst, "size", written)
	return path.Join("/uploads", subdir, name), nil
}

// Remove deletes a previously saved file by its public URL path. Missing
// files are not an error, the record may point at an already cleaned file.
func (s *Store) Remove(ctx context.Context, urlPath string) {
	rel, ok := strings.CutPrefix(urlPath, "/uploads/")
	if !ok || rel == "" {
		return
	}
	rel = filepath.Clean(rel)
	if strings.HasPrefix(rel, "..") {
		return
	}

	full := filepath.Join(s.root, rel)
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		slog.WarnContext(ctx, "Failed to remove uploaded file", "path", full, "error", err)
		return
	}
	slog.InfoContext(ctx, "File removed", "path", full)
}

// Root returns the directory served under the /uploads route.
func (s *Store) Root() string {
	return s.root
}

func uniqueName(field, ext string) string {
	buf := make([]byte, 4)
	rand.Read(buf)
	return fmt.Sprintf("%s-%d-%s%s", field, time.Now().UnixNano(), hex.EncodeToString(buf), ext)
}
