package writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pontosflow/logger"
)

// Object is one encoded export file.
type Object struct {
	VesselID string
	Day      time.Time
	Name     string
	Data     []byte
}

// Sink persists encoded export files.
type Sink interface {
	Store(ctx context.Context, obj Object) error
}

// FileSink writes export files below a local directory.
type FileSink struct {
	dir  string
	nest bool
	log  *logger.Log
}

// NewFileSink returns a sink rooted at dir. With nest set every export goes
// into its own "<vessel_id>_<YYYY-MM-DD>" sub directory.
func NewFileSink(dir string, nest bool) *FileSink {
	if dir == "" {
		dir = "."
	}
	return &FileSink{dir: dir, nest: nest, log: logger.GetLogger()}
}

// Path returns where obj is written.
func (s *FileSink) Path(obj Object) string {
	if s.nest {
		return filepath.Join(s.dir, VesselDayDir(obj.VesselID, obj.Day), obj.Name)
	}
	return filepath.Join(s.dir, obj.Name)
}

// Store writes obj, replacing any existing file of the same name.
func (s *FileSink) Store(ctx context.Context, obj Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := s.Path(obj)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(p, obj.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}

	logger.IncrementFileWritten(len(obj.Data))
	s.log.WithComponent("file_sink").WithFields(logger.Fields{
		"path":  p,
		"bytes": len(obj.Data),
	}).Info("export file written")
	return nil
}
