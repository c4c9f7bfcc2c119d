package repository

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/domain"
	"github.com/spec-kit/intake-desk/internal/observability"
)

type fileSubmissionLog struct {
	path    string
	mu      sync.Mutex
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewFileSubmissionLog stores submissions as JSON lines at path. A sibling
// legacy file (.json next to .jsonl, or the reverse) is read as well.
func NewFileSubmissionLog(path string, logger *zap.Logger, metrics *observability.Metrics) SubmissionLog {
	return &fileSubmissionLog{path: path, logger: logger, metrics: metrics}
}

func (l *fileSubmissionLog) Append(ctx context.Context, s domain.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Attachments == nil {
		s.Attachments = []string{}
	}
	line, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode submission %s: %w", s.Ticket, err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open submission log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("write submission log: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync submission log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close submission log: %w", err)
	}
	return nil
}

func (l *fileSubmissionLog) ReadAll(ctx context.Context) ([]domain.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var records []domain.Submission
	primary, alt := l.path, alternatePath(l.path)
	for _, path := range []string{primary, alt} {
		if path == "" {
			continue
		}
		var (
			items []domain.Submission
			err   error
		)
		if strings.HasSuffix(path, ".json") {
			items, err = l.readJSON(path)
		} else {
			items, err = l.readJSONL(path)
		}
		if err != nil {
			return nil, err
		}
		records = append(records, items...)
	}
	return Materialize(records), nil
}

func alternatePath(path string) string {
	switch {
	case strings.HasSuffix(path, ".jsonl"):
		return strings.TrimSuffix(path, ".jsonl") + ".json"
	case strings.HasSuffix(path, ".json"):
		return path + "l"
	}
	return ""
}

func (l *fileSubmissionLog) readJSONL(path string) ([]domain.Submission, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var out []domain.Submission
	reader := bufio.NewReader(f)
	lineNo := 0
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			if rec, ok := l.decode(bytes.TrimSpace(line), path, lineNo); ok {
				out = append(out, rec)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read %s: %w", path, readErr)
		}
	}
	return out, nil
}

func (l *fileSubmissionLog) readJSON(path string) ([]domain.Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var wrapped struct {
			Items []json.RawMessage `json:"items"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil || wrapped.Items == nil {
			l.corrupt(path, 0, err)
			return nil, nil
		}
		raw = wrapped.Items
	}
	out := make([]domain.Submission, 0, len(raw))
	for i, item := range raw {
		if rec, ok := l.decode(item, path, i+1); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (l *fileSubmissionLog) decode(data []byte, path string, n int) (domain.Submission, bool) {
	if len(data) == 0 {
		return domain.Submission{}, false
	}
	var rec domain.Submission
	if err := json.Unmarshal(data, &rec); err != nil {
		l.corrupt(path, n, err)
		return domain.Submission{}, false
	}
	if rec.Ticket == "" {
		l.corrupt(path, n, errors.New("missing ticket"))
		return domain.Submission{}, false
	}
	return rec, true
}

func (l *fileSubmissionLog) corrupt(path string, n int, err error) {
	l.metrics.Inc(observability.MetricCorruptLogRecord)
	l.logger.Warn("skipping corrupt submission record",
		zap.String("file", path), zap.Int("record", n), zap.Error(err))
}
