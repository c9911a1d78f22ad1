package stylesheet

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/fulmenhq/twproj/pkg/logger"
	"github.com/fulmenhq/twproj/pkg/pathfinder"
	"github.com/fulmenhq/twproj/pkg/pathutil"
)

// Resolved is a stylesheet with its imports inlined.
type Resolved struct {
	Text string
	// Dependencies lists every inlined file once, in the order first reached.
	Dependencies []string
}

// ImportResolver inlines @import statements.
type ImportResolver interface {
	ResolveImports(ctx context.Context, text, from string) (Resolved, error)
}

// IDResolver maps an @import target to a file path. A miss returns id.
type IDResolver interface {
	ResolveStylesheetID(id, base string) (string, error)
}

var (
	importStatement = regexp.MustCompile(`@import\s+(?:url\(\s*)?(?:"([^"]*)"|'([^']*)')\s*\)?([^;{}]*);?`)
	urlScheme       = regexp.MustCompile(`^(?:[a-zA-Z][a-zA-Z0-9+.-]+:|//)`)
	layerClause     = regexp.MustCompile(`^layer(?:\(([^)]*)\))?`)
	supportsClause  = regexp.MustCompile(`^supports\(((?:[^()]|\([^()]*\))*)\)`)
	sourceClause    = regexp.MustCompile(`^(?:source|theme|prefix)\([^)]*\)`)
)

// ImportError is a failed @import that aborts inlining, such as a path
// mapping whose target was rejected.
type ImportError struct {
	From string
	ID   string
	Line int
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("resolve @import %q in %s:%d: %v", e.ID, e.From, e.Line, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Importer resolves and inlines @import statements recursively. Imports of
// URLs and of preprocessor-only stylesheets are left in place. Imports the
// resolver cannot find are dropped.
type Importer struct {
	Resolver IDResolver
	Reader   Reader
}

// NewImporter builds an Importer.
func NewImporter(res IDResolver, reader Reader) *Importer {
	return &Importer{Resolver: res, Reader: reader}
}

type importState struct {
	seen map[string]bool
	deps []string
}

// ResolveImports inlines the imports of text, which was read from from.
func (im *Importer) ResolveImports(ctx context.Context, text, from string) (Resolved, error) {
	from = pathutil.Normalize(from)
	st := &importState{seen: map[string]bool{from: true}}
	out, err := im.inline(ctx, text, from, st)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Text: out, Dependencies: st.deps}, nil
}

func (im *Importer) inline(ctx context.Context, text, from string, st *importState) (string, error) {
	matches := importStatement.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		b.WriteString(text[last:m[0]])
		last = m[1]
		stmt := text[m[0]:m[1]]

		id := submatch(text, m, 1)
		if id == "" {
			id = submatch(text, m, 2)
		}
		if id == "" || urlScheme.MatchString(id) || pathfinder.IsPreprocessed(id) {
			b.WriteString(stmt)
			continue
		}

		target, err := im.Resolver.ResolveStylesheetID(id, pathutil.Dir(from))
		if err != nil {
			return "", &ImportError{From: from, ID: id, Line: LineOf(text, m[0]), Err: err}
		}
		if !pathutil.IsAbs(target) {
			logger.Debug("dropping unresolved @import", logger.String("id", id), logger.String("path", from))
			continue
		}
		target = pathutil.Normalize(target)
		if pathfinder.IsPreprocessed(target) {
			b.WriteString(stmt)
			continue
		}
		if st.seen[target] {
			continue
		}
		st.seen[target] = true

		content, err := im.Reader.Read(ctx, target)
		if err != nil {
			if errors.Is(err, ErrReadFailure) {
				logger.Debug("dropping unreadable @import", logger.String("path", target), logger.Err(err))
				continue
			}
			return "", err
		}
		st.deps = append(st.deps, target)

		inner, err := im.inline(ctx, content, target, st)
		if err != nil {
			return "", err
		}
		b.WriteString(wrapConditions(inner, submatch(text, m, 3)))
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

func submatch(text string, m []int, group int) string {
	if m[2*group] < 0 {
		return ""
	}
	return text[m[2*group]:m[2*group+1]]
}

// wrapConditions applies the layer, supports and media conditions trailing
// an @import to the inlined text.
func wrapConditions(text, conditions string) string {
	rest := strings.TrimSpace(conditions)
	var layer, supports *string
	for rest != "" {
		if m := layerClause.FindStringSubmatch(rest); m != nil {
			name := strings.TrimSpace(m[1])
			layer = &name
			rest = strings.TrimSpace(rest[len(m[0]):])
			continue
		}
		if m := supportsClause.FindStringSubmatch(rest); m != nil {
			cond := strings.TrimSpace(m[1])
			supports = &cond
			rest = strings.TrimSpace(rest[len(m[0]):])
			continue
		}
		if m := sourceClause.FindString(rest); m != "" {
			rest = strings.TrimSpace(rest[len(m):])
			continue
		}
		break
	}

	out := text
	if rest != "" {
		out = "@media " + rest + " {\n" + out + "\n}"
	}
	if supports != nil {
		out = "@supports (" + *supports + ") {\n" + out + "\n}"
	}
	if layer != nil {
		if *layer == "" {
			out = "@layer {\n" + out + "\n}"
		} else {
			out = "@layer " + *layer + " {\n" + out + "\n}"
		}
	}
	return out
}
