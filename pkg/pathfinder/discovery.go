package pathfinder

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/fulmenhq/twproj/pkg/ignore"
	"github.com/fulmenhq/twproj/pkg/logger"
	"github.com/fulmenhq/twproj/pkg/pathutil"
)

// GlobScanner walks the local filesystem.
type GlobScanner struct {
	// FollowSymlinks descends into symlinked directories. A directory whose
	// real path is already on the current descent path is not entered again.
	FollowSymlinks bool
	// Ignore, when set, prunes gitignored paths.
	Ignore *ignore.Matcher
}

// NewGlobScanner creates a scanner that follows symlinks.
func NewGlobScanner() *GlobScanner {
	return &GlobScanner{FollowSymlinks: true}
}

type walkState struct {
	base     string
	patterns []string
	exclude  []string
	active   map[string]struct{}
	files    []string
}

// Scan implements Scanner. Errors below the root are logged and skipped; only
// an unreadable root is reported, wrapped in ErrScanFailure.
func (s *GlobScanner) Scan(ctx context.Context, base string, patterns, exclude []string) ([]string, error) {
	root := filepath.FromSlash(base)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrScanFailure, base, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrScanFailure, base)
	}
	if _, err := os.ReadDir(root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrScanFailure, base, err)
	}

	st := &walkState{
		base:     pathutil.FromOS(root),
		patterns: patterns,
		exclude:  NormalizeExcludes(exclude),
		active:   make(map[string]struct{}),
	}
	if err := s.walk(ctx, st, root, ""); err != nil {
		return nil, err
	}

	sort.Strings(st.files)
	return st.files, nil
}

func (s *GlobScanner) walk(ctx context.Context, st *walkState, dir, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if real, err := filepath.EvalSymlinks(dir); err == nil {
		if _, open := st.active[real]; open {
			return nil
		}
		st.active[real] = struct{}{}
		defer delete(st.active, real)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Debug("skipping unreadable directory", logger.String("path", dir), logger.Err(err))
		return nil
	}

	for _, entry := range entries {
		name := entry.Name()
		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}
		childPath := filepath.Join(dir, name)

		isDir := entry.IsDir()
		if entry.Type()&os.ModeSymlink != 0 {
			target, err := os.Stat(childPath)
			if err != nil {
				continue
			}
			if target.IsDir() && !s.FollowSymlinks {
				continue
			}
			isDir = target.IsDir()
		}

		if isDir {
			if s.excludedDir(st, childRel, childPath) {
				continue
			}
			if err := s.walk(ctx, st, childPath, childRel); err != nil {
				return err
			}
			continue
		}

		if MatchesAnyPattern(childRel, st.exclude) || s.Ignore.IsIgnored(childPath, false) {
			continue
		}
		if MatchesAnyPattern(childRel, st.patterns) {
			st.files = append(st.files, path.Join(st.base, childRel))
		}
	}
	return nil
}

// excludedDir prunes a directory when an exclude pattern matches it or
// everything below it. A literal `**` segment stands in for any descendant.
func (s *GlobScanner) excludedDir(st *walkState, rel, abs string) bool {
	if MatchesAnyPattern(rel, st.exclude) || MatchesAnyPattern(rel+"/**", st.exclude) {
		return true
	}
	return s.Ignore.IsIgnored(abs, true)
}
