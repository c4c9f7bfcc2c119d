package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
)

const fileLockRetry = 10 * time.Millisecond

type fileOverlayStore struct {
	path string
}

// NewFileOverlayStore keeps the overlay as one JSON document replaced by
// write-to-temp-then-rename. Writers lock the sibling "<path>.lock" file.
func NewFileOverlayStore(path string) OverlayStore {
	return &fileOverlayStore{path: path}
}

func (s *fileOverlayStore) Lock(ctx context.Context) (func() error, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	lock := flock.New(s.path + ".lock")
	ok, err := lock.TryLockContext(ctx, fileLockRetry)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: not acquired", lock.Path())
	}
	return lock.Unlock, nil
}

func (s *fileOverlayStore) ensureDir() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create overlay dir: %w", err)
		}
	}
	return nil
}

func (s *fileOverlayStore) Load(ctx context.Context) (OverlayState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return OverlayState{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return OverlayState{}, nil
	}
	state := OverlayState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return state, nil
}

func (s *fileOverlayStore) Save(ctx context.Context, state OverlayState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode overlay: %w", err)
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
