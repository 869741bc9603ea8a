package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// File appends decisions to a newline-delimited JSON file, flushing after
// every record.
type File struct {
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

func NewFile(path string) (*File, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open decision journal: %w", err)
	}
	return &File{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (f *File) Append(_ context.Context, decision Decision) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.writer.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write decision: %w", err)
	}
	if err := f.writer.Flush(); err != nil {
		return fmt.Errorf("flush decision journal: %w", err)
	}
	return nil
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writer.Flush(); err != nil {
		_ = f.file.Close()
		return err
	}
	return f.file.Close()
}
