// Package storage keeps uploaded company media on the local disk and maps
// stored files to the public URLs saved in the database.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const MaxImageSize = 10 * 1024 * 1024 // 10 MB

var AllowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var (
	ErrFileTooLarge     = errors.New("file is larger than 10 MB")
	ErrInvalidExtension = errors.New("unsupported file type, allowed: jpg, jpeg, png, gif, webp")
	ErrEmptyFile        = errors.New("file is empty")
	ErrOutsideMedia     = errors.New("path is outside the media directory")
)

// FileError names the offending upload.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s: %v", e.Name, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }

// ValidateImage applies the image upload rules to a multipart file.
func ValidateImage(fh *multipart.FileHeader) error {
	if fh == nil {
		return nil
	}
	if fh.Size == 0 {
		return &FileError{Name: fh.Filename, Err: ErrEmptyFile}
	}
	if fh.Size > MaxImageSize {
		return &FileError{Name: fh.Filename, Err: ErrFileTooLarge}
	}
	if !AllowedImageExtensions[Ext(fh.Filename)] {
		return &FileError{Name: fh.Filename, Err: ErrInvalidExtension}
	}
	return nil
}

// Ext returns the lower-cased extension including the dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// Local stores files under baseDir and serves them from urlBase.
type Local struct {
	baseDir string
	urlBase string
}

func NewLocal(baseDir, urlBase string) *Local {
	if !strings.HasSuffix(urlBase, "/") {
		urlBase += "/"
	}
	return &Local{baseDir: baseDir, urlBase: urlBase}
}

func (l *Local) BaseDir() string { return l.baseDir }

// Save writes the upload to the relative name (slash separated) and returns
// its URL. An existing file with the same name is never overwritten; a
// random suffix is added instead.
func (l *Local) Save(name string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	return l.SaveReader(name, src)
}

func (l *Local) SaveReader(name string, r io.Reader) (string, error) {
	rel := path.Clean("/" + name)[1:]
	abs := filepath.Join(l.baseDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create media directory: %w", err)
	}

	dst, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		ext := path.Ext(rel)
		rel = strings.TrimSuffix(rel, ext) + "_" + uuid.NewString()[:8] + ext
		abs = filepath.Join(l.baseDir, filepath.FromSlash(rel))
		dst, err = os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		_ = os.Remove(abs)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(abs)
		return "", fmt.Errorf("close file: %w", err)
	}
	return l.urlBase + rel, nil
}

// Delete removes the file behind a stored URL. A missing file is not an error.
func (l *Local) Delete(url string) error {
	abs, err := l.PathFor(url)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// PathFor maps a stored URL back to its path on disk.
func (l *Local) PathFor(url string) (string, error) {
	rel := strings.TrimPrefix(url, l.urlBase)
	if rel == url && strings.HasPrefix(url, "/") {
		return "", ErrOutsideMedia
	}
	clean := path.Clean("/" + rel)[1:]
	if clean == "" || clean != rel {
		return "", ErrOutsideMedia
	}
	return filepath.Join(l.baseDir, filepath.FromSlash(clean)), nil
}

// List returns the URLs of every file stored under the relative directory.
func (l *Local) List(dir string) ([]string, error) {
	root := filepath.Join(l.baseDir, filepath.FromSlash(dir))
	var urls []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.baseDir, p)
		if err != nil {
			return err
		}
		urls = append(urls, l.urlBase+filepath.ToSlash(rel))
		return nil
	})
	return urls, err
}
