// Package uploads stores files attached to project submissions.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/config"
)

const maxNameLen = 180

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Store writes accepted attachments into one directory.
type Store struct {
	dir      string
	maxTotal int64
	allowed  map[string]struct{}
	logger   *zap.Logger
}

// Rejected names a file that was skipped and why.
type Rejected struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// NewStore builds a store from config.
func NewStore(cfg config.UploadsConfig, logger *zap.Logger) *Store {
	allowed := make(map[string]struct{}, len(cfg.AllowedExts))
	for _, ext := range cfg.AllowedExts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return &Store{
		dir:      cfg.Dir,
		maxTotal: int64(cfg.MaxTotalMB) * 1024 * 1024,
		allowed:  allowed,
		logger:   logger,
	}
}

// SafeName strips directory parts and replaces anything outside
// [A-Za-z0-9_.-].
func SafeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)
	name = strings.TrimLeft(name, ".")
	name = unsafeChars.ReplaceAllString(name, "_")
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	if name == "" || name == "_" {
		return "file"
	}
	return name
}

// Allowed reports whether name carries a permitted extension.
func (s *Store) Allowed(name string) bool {
	_, ok := s.allowed[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Save writes each acceptable file and returns the stored names. Files
// with a disallowed extension, no content, or that would push the total
// past the cap are skipped and reported.
func (s *Store) Save(files []*multipart.FileHeader) ([]string, []Rejected, error) {
	saved := []string{}
	var rejected []Rejected
	if len(files) == 0 {
		return saved, nil, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create upload dir: %w", err)
	}

	var total int64
	for _, fh := range files {
		if fh == nil || fh.Filename == "" {
			continue
		}
		name := SafeName(fh.Filename)
		switch {
		case !s.Allowed(name):
			rejected = append(rejected, Rejected{Name: name, Reason: "extension not allowed"})
			continue
		case fh.Size == 0:
			rejected = append(rejected, Rejected{Name: name, Reason: "empty file"})
			continue
		case s.maxTotal > 0 && total+fh.Size > s.maxTotal:
			rejected = append(rejected, Rejected{Name: name, Reason: "size limit exceeded"})
			continue
		}
		stored, err := s.write(fh, name)
		if err != nil {
			return saved, rejected, err
		}
		saved = append(saved, stored)
		total += fh.Size
	}
	for _, r := range rejected {
		s.logger.Info("attachment skipped", zap.String("name", r.Name), zap.String("reason", r.Reason))
	}
	return saved, rejected, nil
}

func (s *Store) write(fh *multipart.FileHeader, name string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", name, err)
	}
	defer src.Close()

	stored := s.uniqueName(name)
	if err := atomic.WriteFile(filepath.Join(s.dir, stored), io.LimitReader(src, fh.Size)); err != nil {
		return "", fmt.Errorf("store upload %s: %w", stored, err)
	}
	return stored, nil
}

func (s *Store) uniqueName(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(s.dir, candidate)); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
}
