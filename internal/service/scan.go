package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gilvegliach/CallReminder/internal/orders"
)

// ErrEmptyInput is returned when an input stream has no customer line.
var ErrEmptyInput = errors.New("input is empty")

// ReadRequest reads the stream layout: the customer on the first line, then
// the header and the order records.
func ReadRequest(r io.Reader) (Request, error) {
	lines, err := orders.ReadRecords(r)
	if err != nil {
		return Request{}, err
	}
	if len(lines) == 0 {
		return Request{}, ErrEmptyInput
	}
	return Request{Customer: lines[0], Records: lines[1:]}, nil
}

// ProcessFile runs a prediction for a single customer file.
func (s *Service) ProcessFile(ctx context.Context, path string, skipDelivered bool) (Outcome, error) {
	file, err := os.Open(path)
	if err != nil {
		return Outcome{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	req, err := ReadRequest(file)
	if err != nil {
		return Outcome{}, fmt.Errorf("read %s: %w", path, err)
	}
	req.SkipDelivered = skipDelivered
	return s.Process(ctx, req)
}

// ScanResult summarises a directory scan.
type ScanResult struct {
	Processed int
	Skipped   int
	Failed    int
}

// ScanDir processes every *.csv customer file in dir. A failing file is
// logged and does not stop the scan.
func (s *Service) ScanDir(ctx context.Context, dir string) (ScanResult, error) {
	var res ScanResult

	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return res, err
	}
	if !proceed {
		s.logger.Debug().Str("dir", dir).Msg("skip scan because advisory lock held elsewhere")
		return res, nil
	}
	if unlock != nil {
		defer unlock()
	}

	started := time.Now()
	defer s.metrics.RecordScan(started)

	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return res, fmt.Errorf("list customer files: %w", err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		out, err := s.ProcessFile(ctx, path, true)
		switch {
		case err != nil:
			res.Failed++
			s.logger.Error().Err(err).Str("file", path).Msg("customer file failed")
		case out.Skipped:
			res.Skipped++
		default:
			res.Processed++
		}
	}

	s.logger.Info().
		Str("dir", dir).
		Int("processed", res.Processed).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("scan completed")
	return res, nil
}
