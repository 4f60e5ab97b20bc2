package certify

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
)

// CertificateInfo describes one stored certificate file.
type CertificateInfo struct {
	// Name is the certificate file name.
	Name string `json:"name"`

	// CreatedAt is the file's modification time.
	CreatedAt time.Time `json:"created_at"`

	// SizeBytes is the file size.
	SizeBytes int64 `json:"size_bytes"`
}

// Registry manages the certificate files under one directory: listing,
// resolving download paths, and deletion. Certificate names from clients
// are untrusted; any name that does not resolve to a direct child of the
// directory is rejected.
type Registry struct {
	dir string
}

// NewRegistry creates a registry over the given directory, creating it if
// needed.
func NewRegistry(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating certificates directory %q: %w", dir, err)
	}
	return &Registry{dir: dir}, nil
}

// Dir returns the registry's directory.
func (r *Registry) Dir() string { return r.dir }

// List returns every certificate PDF in the directory, newest first.
func (r *Registry) List() ([]CertificateInfo, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []CertificateInfo{}, nil
		}
		return nil, fmt.Errorf("reading certificates directory: %w", err)
	}

	certs := make([]CertificateInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pdf") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		certs = append(certs, CertificateInfo{
			Name:      entry.Name(),
			CreatedAt: info.ModTime(),
			SizeBytes: info.Size(),
		})
	}

	sort.Slice(certs, func(i, j int) bool {
		return certs[i].CreatedAt.After(certs[j].CreatedAt)
	})

	return certs, nil
}

// Path resolves a certificate name to its file path. Unknown names yield
// domain.ErrCertificateNotFound; names attempting to escape the directory
// are treated as not found without touching the filesystem.
func (r *Registry) Path(name string) (string, error) {
	if !validName(name) {
		return "", domain.ErrCertificateNotFound
	}
	path := filepath.Join(r.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", domain.ErrCertificateNotFound
	}
	return path, nil
}

// Delete removes a certificate by name.
func (r *Registry) Delete(name string) error {
	path, err := r.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting certificate %q: %w", name, err)
	}
	return nil
}

// validName accepts only plain PDF file names: no separators, no parent
// references, nothing hidden.
func validName(name string) bool {
	if name == "" || !strings.HasSuffix(name, ".pdf") {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return filepath.Base(name) == name && !strings.HasPrefix(name, ".")
}
