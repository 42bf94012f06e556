package media

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/auctions/pkg/common"
	"go.uber.org/zap"
)

const imageDir = "images"

var ErrOutsideRoot = errors.New("media path escapes the media root")

// Store keeps uploaded item images under a root directory. Paths handed out are
// relative to the root and use forward slashes, e.g. "images/1234_photo.jpg".
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

// Save stores an uploaded file and returns its relative path
func (s *Store) Save(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "open upload")
	}
	defer src.Close()
	return s.SaveReader(fh.Filename, src)
}

// SaveReader stores the content of r under a unique name derived from name
func (s *Store) SaveReader(name string, r io.Reader) (string, error) {
	rel := fmt.Sprintf("%s/%d_%s", imageDir, common.UUIDint64(), cleanName(name))
	dst, err := s.abs(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", errors.Wrap(err, "create media dir")
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", errors.Wrap(err, "create media file")
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(dst)
		return "", errors.Wrap(err, "write media file")
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "close media file")
	}
	return rel, nil
}

// Delete removes rel; a missing file is not an error
func (s *Store) Delete(rel string) error {
	if rel == "" {
		return nil
	}
	p, err := s.abs(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove media file")
	}
	return nil
}

func (s *Store) Exists(rel string) bool {
	p, err := s.abs(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Sweep deletes image files that are not referenced and were modified more than
// olderThan ago. It returns the number of removed files.
func (s *Store) Sweep(referenced map[string]bool, olderThan time.Duration) (int, error) {
	dir := filepath.Join(s.root, imageDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "read media dir")
	}
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		rel := imageDir + "/" + e.Name()
		if referenced[rel] {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			zap.L().Warn("sweep media file", zap.String("file", rel), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *Store) abs(rel string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(rel))
	r, err := filepath.Rel(s.root, p)
	if err != nil || r == "." || strings.HasPrefix(r, "..") {
		return "", ErrOutsideRoot
	}
	return p, nil
}

func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if len(out) > 100 {
		out = out[len(out)-100:]
	}
	if out == "" || out == "." || out == ".." {
		out = "upload"
	}
	return out
}
