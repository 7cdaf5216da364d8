package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JsonlFeed appends notification records to a JSONL file, one record
// per line.
type JsonlFeed struct {
	path string
	mu   sync.Mutex
}

func NewJsonlFeed(path string) *JsonlFeed {
	return &JsonlFeed{path: path}
}

// PutRecord appends a single record as a JSON line.
func (s *JsonlFeed) PutRecord(record FeedRecord) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal feed record: %w", err)
	}
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write feed record: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
