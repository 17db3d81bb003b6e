package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrUnsupportedFileType = errors.New("unsupported file type")

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Saver writes uploaded profile photos to a local directory. Stored
// names are "<username>_<sanitized original name>".
type Saver struct {
	dir string
}

func NewSaver(dir string) (*Saver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &Saver{dir: dir}, nil
}

func (s *Saver) Save(src io.Reader, username, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return "", ErrUnsupportedFileType
	}

	filename := username + "_" + sanitizeFilename(originalName)
	fullPath := filepath.Join(s.dir, filename)

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write file %s: %w", fullPath, err)
	}
	return filename, nil
}

func (s *Saver) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// sanitizeFilename strips path components and replaces anything outside
// a conservative character set.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
