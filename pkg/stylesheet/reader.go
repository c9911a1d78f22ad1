// Package stylesheet holds the text-level CSS collaborators used during
// discovery: reading files, following @import statements, locating @config
// references and extracting @source patterns.
package stylesheet

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// ErrReadFailure marks a file that could not be read. Callers treat the file
// as empty.
var ErrReadFailure = errors.New("read failure")

// Reader loads file text.
type Reader interface {
	Read(ctx context.Context, path string) (string, error)
}

var commentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)

// StripComments removes block comments, keeping their line breaks so line
// numbers still match the original text.
func StripComments(text string) string {
	return commentPattern.ReplaceAllStringFunc(text, func(c string) string {
		return strings.Repeat("\n", strings.Count(c, "\n"))
	})
}

// LineOf returns the 1-based line of byte offset in text.
func LineOf(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	return strings.Count(text[:offset], "\n") + 1
}

// FileReader reads stylesheets from a filesystem and strips their comments.
type FileReader struct {
	FS billy.Filesystem
}

// NewFileReader returns a reader over fs, or the host filesystem when fs is nil.
func NewFileReader(fs billy.Filesystem) *FileReader {
	if fs == nil {
		fs = osfs.New("/")
	}
	return &FileReader{FS: fs}
}

// Read returns the comment-free text of path.
func (r *FileReader) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := util.ReadFile(r.FS, path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrReadFailure, path, err)
	}
	return StripComments(string(data)), nil
}
