package storage

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Memory is an in-memory Storage for tests. It counts hash computations so
// tests can assert that cheap checks short-circuit expensive ones, and can
// be told to fail specific operations.
type Memory struct {
	files map[string][]byte
	dirs  map[string]bool

	// HashCalls counts FileHashMD5 invocations.
	HashCalls int

	// FailDeleteDirectory makes DeleteDirectory fail for the given paths.
	FailDeleteDirectory map[string]error
	// FailWriteFile makes WriteFile fail for the given paths.
	FailWriteFile map[string]error
}

// NewMemory returns an empty in-memory Storage.
func NewMemory() *Memory {
	return &Memory{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func norm(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

func (m *Memory) ReadFile(p string) ([]byte, error) {
	data, ok := m.files[norm(p)]
	if !ok {
		return nil, os.ErrNotExist
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) WriteFile(p string, data []byte) error {
	p = norm(p)
	if err, ok := m.FailWriteFile[p]; ok {
		return err
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.files[p] = stored
	m.dirs[path.Dir(p)] = true
	return nil
}

func (m *Memory) DeleteFile(p string) error {
	delete(m.files, norm(p))
	return nil
}

func (m *Memory) MoveFile(src, dst string) error {
	src, dst = norm(src), norm(dst)
	data, ok := m.files[src]
	if !ok {
		return os.ErrNotExist
	}
	delete(m.files, src)
	m.files[dst] = data
	m.dirs[path.Dir(dst)] = true
	return nil
}

func (m *Memory) FileExists(p string) bool {
	_, ok := m.files[norm(p)]
	return ok
}

func (m *Memory) FileSize(p string) (int64, error) {
	data, ok := m.files[norm(p)]
	if !ok {
		return 0, os.ErrNotExist
	}
	return int64(len(data)), nil
}

func (m *Memory) FileHashMD5(p string) (string, error) {
	m.HashCalls++
	data, ok := m.files[norm(p)]
	if !ok {
		return "", os.ErrNotExist
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

func (m *Memory) ListFiles(dir, pattern string, recursive bool) ([]string, error) {
	dir = norm(dir)
	var out []string
	for p := range m.files {
		if !strings.HasPrefix(p, dir+"/") {
			continue
		}
		rel := strings.TrimPrefix(p, dir+"/")
		if !recursive && strings.Contains(rel, "/") {
			continue
		}
		if pattern != "" {
			ok, err := path.Match(pattern, path.Base(p))
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) CreateDirectory(p string) error {
	m.dirs[norm(p)] = true
	return nil
}

func (m *Memory) DeleteDirectory(p string) error {
	p = norm(p)
	if err, ok := m.FailDeleteDirectory[p]; ok {
		return err
	}
	delete(m.dirs, p)
	for d := range m.dirs {
		if strings.HasPrefix(d, p+"/") {
			delete(m.dirs, d)
		}
	}
	for f := range m.files {
		if strings.HasPrefix(f, p+"/") {
			delete(m.files, f)
		}
	}
	return nil
}

func (m *Memory) MoveDirectory(src, dst string) error {
	src, dst = norm(src), norm(dst)
	if !m.DirectoryExists(src) {
		return os.ErrNotExist
	}
	if m.DirectoryExists(dst) {
		return fmt.Errorf("destination %q already exists", dst)
	}
	for f, data := range m.files {
		if strings.HasPrefix(f, src+"/") {
			delete(m.files, f)
			m.files[dst+"/"+strings.TrimPrefix(f, src+"/")] = data
		}
	}
	for d := range m.dirs {
		if d == src || strings.HasPrefix(d, src+"/") {
			delete(m.dirs, d)
			m.dirs[dst+strings.TrimPrefix(d, src)] = true
		}
	}
	m.dirs[dst] = true
	return nil
}

func (m *Memory) DirectoryExists(p string) bool {
	p = norm(p)
	if m.dirs[p] {
		return true
	}
	for f := range m.files {
		if strings.HasPrefix(f, p+"/") {
			return true
		}
	}
	return false
}

func (m *Memory) ListDirectories(dir string) ([]string, error) {
	dir = norm(dir)
	seen := make(map[string]bool)
	collect := func(p string) {
		if strings.HasPrefix(p, dir+"/") {
			rel := strings.TrimPrefix(p, dir+"/")
			first := strings.SplitN(rel, "/", 2)[0]
			seen[dir+"/"+first] = true
		}
	}
	for d := range m.dirs {
		collect(d)
	}
	for f := range m.files {
		if strings.Contains(strings.TrimPrefix(f, dir+"/"), "/") {
			collect(path.Dir(f))
		}
	}
	var out []string
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}
