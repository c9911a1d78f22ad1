package resolver

import (
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of entries each cache tier keeps.
const DefaultCacheSize = 4000

type statEntry struct {
	info os.FileInfo
	err  error
}

type fileEntry struct {
	data []byte
	err  error
}

// FileCache memoizes stat results and file contents keyed by path. It is safe
// for concurrent use and is shared by reference between parent and child
// resolvers. Entries never expire; Purge drops everything.
type FileCache struct {
	fs    billy.Filesystem
	stats *lru.Cache[string, statEntry]
	files *lru.Cache[string, fileEntry]
}

// NewFileCache wraps fs. A nil fs means the host filesystem.
func NewFileCache(fs billy.Filesystem, size int) (*FileCache, error) {
	if fs == nil {
		fs = osfs.New("/")
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	stats, err := lru.New[string, statEntry](size)
	if err != nil {
		return nil, err
	}
	files, err := lru.New[string, fileEntry](size)
	if err != nil {
		return nil, err
	}
	return &FileCache{fs: fs, stats: stats, files: files}, nil
}

// FS returns the underlying filesystem.
func (c *FileCache) FS() billy.Filesystem {
	return c.fs
}

// Stat returns the cached stat result for p.
func (c *FileCache) Stat(p string) (os.FileInfo, error) {
	if e, ok := c.stats.Get(p); ok {
		return e.info, e.err
	}
	info, err := c.fs.Stat(p)
	c.stats.Add(p, statEntry{info: info, err: err})
	return info, err
}

// IsFile reports whether p exists and is not a directory.
func (c *FileCache) IsFile(p string) bool {
	info, err := c.Stat(p)
	return err == nil && !info.IsDir()
}

// IsDir reports whether p exists and is a directory.
func (c *FileCache) IsDir(p string) bool {
	info, err := c.Stat(p)
	return err == nil && info.IsDir()
}

// ReadFile returns the cached contents of p.
func (c *FileCache) ReadFile(p string) ([]byte, error) {
	if e, ok := c.files.Get(p); ok {
		return e.data, e.err
	}
	data, err := util.ReadFile(c.fs, p)
	c.files.Add(p, fileEntry{data: data, err: err})
	return data, err
}

// Purge drops every cached entry.
func (c *FileCache) Purge() {
	c.stats.Purge()
	c.files.Purge()
}

// Len returns the number of cached stat and file entries.
func (c *FileCache) Len() int {
	return c.stats.Len() + c.files.Len()
}
