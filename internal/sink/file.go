package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// fileSink appends JSON-lines records. The file is opened with O_APPEND and
// each record goes out in a single Write call, which is what keeps records
// intact under concurrent writers; the sink never reads existing content.
type fileSink struct {
	f *os.File
}

func openFile(target string) (*fileSink, error) {
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open result file: %w", err)
	}
	return &fileSink{f: f}, nil
}

// Append implements Sink.
func (s *fileSink) Append(_ context.Context, rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal result record: %w", err)
	}
	line = append(line, '\n')
	if _, err := s.f.Write(line); err != nil {
		return fmt.Errorf("failed to write result record: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *fileSink) Close() error {
	return s.f.Close()
}
