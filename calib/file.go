package calib

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// FileStore keeps the baseline history of one device in a text file named
// <prefix>.0x5a, one decimal value per line, newest last.
type FileStore struct {
	mx      sync.Mutex
	path    string
	maxKeep int
}

func NewFileStore(prefix string, addr byte, maxKeep int) *FileStore {
	if maxKeep <= 0 {
		maxKeep = DefaultMaxKeep
	}
	return &FileStore{
		path:    fmt.Sprintf("%s.%#x", prefix, addr),
		maxKeep: maxKeep,
	}
}

func (s *FileStore) Path() string {
	return s.path
}

// ReadAll returns the stored values, oldest first. A missing file is an
// empty history.
func (s *FileStore) ReadAll() ([]uint16, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	h, err := s.load()
	if err != nil {
		return nil, err
	}
	return h.ReadAll()
}

// Append adds v and rewrites the file, dropping the oldest values beyond
// the cap.
func (s *FileStore) Append(v uint16) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	h, err := s.load()
	if err != nil {
		return err
	}
	_ = h.Append(v)
	return s.save(h)
}

func (s *FileStore) load() (*History, error) {
	h := NewHistory(s.maxKeep)
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("calib: could not open %s: %w", s.path, err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseUint(text, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("calib: %s:%d: %w", s.path, line, err)
		}
		h.push(uint16(v))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("calib: could not read %s: %w", s.path, err)
	}
	return h, nil
}

// save writes to a temporary file first so a crash never leaves a
// truncated history behind.
func (s *FileStore) save(h *History) error {
	values, _ := h.ReadAll()
	var b strings.Builder
	for _, v := range values {
		b.WriteString(strconv.FormatUint(uint64(v), 10))
		b.WriteByte('\n')
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("calib: could not create temp file: %w", err)
	}
	if _, err := tmp.WriteString(b.String()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("calib: could not write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("calib: could not write %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("calib: could not replace %s: %w", s.path, err)
	}
	return nil
}
