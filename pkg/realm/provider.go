package realm

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// ContentProvider looks up a resource path inside one search path entry
type ContentProvider interface {
	Find(entry, name string) (*Resource, bool)
}

// FilesystemProvider resolves resources inside directory entries
type FilesystemProvider struct {
	fs billy.Filesystem
}

// NewFilesystemProvider creates a provider over fs
func NewFilesystemProvider(fs billy.Filesystem) *FilesystemProvider {
	return &FilesystemProvider{fs: fs}
}

// Find implements ContentProvider
func (p *FilesystemProvider) Find(entry, name string) (*Resource, bool) {
	full := p.fs.Join(entry, name)
	fi, err := p.fs.Stat(full)
	if err != nil || fi.IsDir() {
		return nil, false
	}
	return NewResource(name, entry, full, func() (io.ReadCloser, error) {
		f, err := p.fs.Open(full)
		if err != nil {
			return nil, fmt.Errorf("billy: open %q: %w", full, err)
		}
		return f, nil
	}), true
}

// ArchiveProvider resolves resources inside .jar and .zip entries. Archive
// indices are read once and cached.
type ArchiveProvider struct {
	fs billy.Filesystem

	mu      sync.Mutex
	indices map[string]map[string]*zip.File
}

// NewArchiveProvider creates a provider reading archives from fs
func NewArchiveProvider(fs billy.Filesystem) *ArchiveProvider {
	return &ArchiveProvider{
		fs:      fs,
		indices: make(map[string]map[string]*zip.File),
	}
}

// Find implements ContentProvider
func (p *ArchiveProvider) Find(entry, name string) (*Resource, bool) {
	index, err := p.index(entry)
	if err != nil {
		return nil, false
	}
	f, ok := index[name]
	if !ok {
		return nil, false
	}
	return NewResource(name, entry, "jar:"+entry+"!/"+name, func() (io.ReadCloser, error) {
		return f.Open()
	}), true
}

func (p *ArchiveProvider) index(entry string) (map[string]*zip.File, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.indices[entry]; ok {
		return idx, nil
	}

	data, err := util.ReadFile(p.fs, entry)
	if err != nil {
		return nil, fmt.Errorf("billy: read %q: %w", entry, err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("archive %q: %w", entry, err)
	}

	idx := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() {
			idx[f.Name] = f
		}
	}
	p.indices[entry] = idx
	return idx, nil
}

// SearchPathProvider dispatches archive entries to an ArchiveProvider and
// everything else to a FilesystemProvider.
type SearchPathProvider struct {
	dirs     *FilesystemProvider
	archives *ArchiveProvider
}

// NewSearchPathProvider creates the default provider over fs
func NewSearchPathProvider(fs billy.Filesystem) *SearchPathProvider {
	return &SearchPathProvider{
		dirs:     NewFilesystemProvider(fs),
		archives: NewArchiveProvider(fs),
	}
}

// NewOSSearchPathProvider creates the default provider over the host filesystem
func NewOSSearchPathProvider() *SearchPathProvider {
	return NewSearchPathProvider(osfs.New("/"))
}

// Find implements ContentProvider
func (p *SearchPathProvider) Find(entry, name string) (*Resource, bool) {
	if IsArchiveEntry(entry) {
		return p.archives.Find(entry, name)
	}
	return p.dirs.Find(entry, name)
}

// IsArchiveEntry reports whether a search path entry names an archive
func IsArchiveEntry(entry string) bool {
	lower := strings.ToLower(entry)
	return strings.HasSuffix(lower, ".jar") || strings.HasSuffix(lower, ".zip")
}
