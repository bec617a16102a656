package upload

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"parkease/internal/pkg/apperr"
)

const MaxFileSize = 5 * 1024 * 1024 // 5 MB

var allowedMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var (
	ErrEmptyFile       = apperr.New(apperr.ErrValidation, "EMPTY_FILE", "File is empty")
	ErrFileTooLarge    = apperr.New(apperr.ErrValidation, "FILE_TOO_LARGE", "File exceeds 5 MB")
	ErrInvalidMimeType = apperr.New(apperr.ErrValidation, "INVALID_FILE_TYPE", "Only JPEG, PNG, GIF and WebP images are allowed")
)

// Store persists user uploaded images and returns their public URL.
type Store interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
}

// DiskStore writes files under baseDir/YYYY/MM/DD and serves them from urlBase.
type DiskStore struct {
	baseDir string
	urlBase string
	now     func() time.Time
}

func NewDiskStore(baseDir, urlBase string) *DiskStore {
	return &DiskStore{
		baseDir: baseDir,
		urlBase: strings.TrimRight(urlBase, "/"),
		now:     time.Now,
	}
}

func (s *DiskStore) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(head) == 0 {
		return "", ErrEmptyFile
	}

	mimeType := strings.Split(http.DetectContentType(head), ";")[0]
	defaultExt, ok := allowedMimeTypes[mimeType]
	if !ok {
		return "", ErrInvalidMimeType
	}

	now := s.now()
	relDir := fmt.Sprintf("%d/%02d/%02d", now.Year(), now.Month(), now.Day())
	absDir := filepath.Join(s.baseDir, filepath.FromSlash(relDir))
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = defaultExt
	}
	filename := fmt.Sprintf("%s_%s%s", uuid.NewString(), sanitizeName(originalName), ext)
	absPath := filepath.Join(absDir, filename)

	dst, err := os.Create(absPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	// one extra byte tells an exactly-5MB file from an oversized one
	n, err := io.Copy(dst, io.LimitReader(br, MaxFileSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(absPath)
		return "", fmt.Errorf("write file: %w", err)
	}
	if n > MaxFileSize {
		_ = os.Remove(absPath)
		return "", ErrFileTooLarge
	}

	return s.urlBase + "/" + relDir + "/" + filename, nil
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}
	if name == "" || name == "." {
		return "file"
	}
	return name
}
