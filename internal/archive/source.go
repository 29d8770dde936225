package archive

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"tickbacktest/internal/replay"
	"tickbacktest/types"
)

// FileSource replays a list of archive files back to back. Files are loaded
// one at a time as the previous one is exhausted.
type FileSource struct {
	name  string
	paths []string
	log   *zap.Logger

	file    int
	buf     []types.Tick
	pos     int
	open    bool
	skipped int
}

var _ replay.Source = (*FileSource)(nil)

// NewFileSource serves paths in the given order, which should be by date.
func NewFileSource(log *zap.Logger, name string, paths ...string) *FileSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileSource{
		name:  name,
		paths: paths,
		log:   log.Named("archive").With(zap.String("source", name)),
	}
}

// OpenSymbol builds a FileSource over the files of symbol in dir between
// start and end.
func OpenSymbol(log *zap.Logger, dir, symbol string, start, end int) (*FileSource, error) {
	paths, err := FindFiles(dir, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoFiles, symbol, dir)
	}
	return NewFileSource(log, symbol, paths...), nil
}

// OpenSymbols builds one FileSource per symbol. A symbol without files still
// gets a source, whose Open fails, so the scheduler reports and excludes it
// while the other symbols replay.
func OpenSymbols(log *zap.Logger, dir string, symbols []string, start, end int) ([]*FileSource, error) {
	sources := make([]*FileSource, 0, len(symbols))
	for _, sym := range symbols {
		paths, err := FindFiles(dir, sym, start, end)
		if err != nil {
			return nil, err
		}
		src := NewFileSource(log, sym, paths...)
		if len(paths) == 0 {
			src.log.Warn("no archive files", zap.String("dir", dir), zap.Int("start", start), zap.Int("end", end))
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func (s *FileSource) Name() string {
	return s.name
}

func (s *FileSource) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Open rewinds to the first file. It fails when there are no files or any
// of them is missing.
func (s *FileSource) Open() error {
	if len(s.paths) == 0 {
		return fmt.Errorf("%w: %s", ErrNoFiles, s.name)
	}
	for _, p := range s.paths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	s.file = -1
	s.skipped = 0
	s.buf = nil
	s.pos = 0
	s.open = true
	return nil
}

func (s *FileSource) Next() (types.Tick, error) {
	if !s.open {
		return types.Tick{}, fmt.Errorf("%s: %w", s.name, replay.ErrSourceNotOpen)
	}
	for s.pos >= len(s.buf) {
		if s.file+1 >= len(s.paths) {
			return types.Tick{}, io.EOF
		}
		s.file++
		ticks, err := ReadTicks(s.paths[s.file])
		if err != nil {
			s.skipped++
			s.log.Warn("archive file skipped", zap.String("path", s.paths[s.file]), zap.Error(err))
			s.buf, s.pos = nil, 0
			continue
		}
		s.log.Debug("loaded archive file",
			zap.String("path", s.paths[s.file]),
			zap.Int("ticks", len(ticks)))
		s.buf = ticks
		s.pos = 0
	}
	t := s.buf[s.pos]
	s.pos++
	return t, nil
}

// Skipped counts files of the current pass that could not be read.
func (s *FileSource) Skipped() int {
	return s.skipped
}

// Estimate sums the footer row counts. Unreadable files count as zero.
func (s *FileSource) Estimate() int {
	var total int64
	for _, p := range s.paths {
		n, err := CountRows(p)
		if err != nil {
			s.log.Warn("count rows failed", zap.String("path", p), zap.Error(err))
			continue
		}
		total += n
	}
	return int(total)
}

func (s *FileSource) Close() error {
	s.buf = nil
	s.open = false
	return nil
}
