package toolchain

import (
	"strings"
)

// ScriptConfig is what a static read of a script config can recover. Values
// computed at runtime are skipped.
type ScriptConfig struct {
	// Files are the string entries of `content` (or `content.files`).
	Files []string `json:"files,omitempty" yaml:"files,omitempty" toml:"files,omitempty"`
	// Raw are the `{ raw: "…" }` entries of the content list.
	Raw []string `json:"raw,omitempty" yaml:"raw,omitempty" toml:"raw,omitempty"`
	// Relative is `content.relative`.
	Relative bool `json:"relative,omitempty" yaml:"relative,omitempty" toml:"relative,omitempty"`
	// RelativeByDefault is `future.relativeContentPathsByDefault`.
	RelativeByDefault bool `json:"relativeByDefault,omitempty" yaml:"relativeByDefault,omitempty" toml:"relativeByDefault,omitempty"`
	// Purge holds the file entries of the pre-3.0 `purge` option.
	Purge []string `json:"purge,omitempty" yaml:"purge,omitempty" toml:"purge,omitempty"`
}

// ParseScriptConfig reads the content options out of script config source.
func ParseScriptConfig(src string) ScriptConfig {
	toks := lex(src)
	var cfg ScriptConfig

	top := topLevelDepth(toks)
	if top < 0 {
		return cfg
	}

	if v, ok := valueOf(toks, "content", top); ok {
		switch v.kind {
		case valArray:
			cfg.Files, cfg.Raw = contentList(v)
		case valObject:
			if files, ok := v.field("files"); ok {
				cfg.Files, cfg.Raw = contentList(files)
			}
			if rel, ok := v.field("relative"); ok {
				cfg.Relative = rel.kind == valBool && rel.b
			}
		}
	}

	if v, ok := valueOf(toks, "future", top); ok {
		if rel, ok := v.field("relativeContentPathsByDefault"); ok {
			cfg.RelativeByDefault = rel.kind == valBool && rel.b
		}
	}

	if v, ok := valueOf(toks, "purge", top); ok {
		switch v.kind {
		case valArray:
			cfg.Purge, _ = contentList(v)
		case valObject:
			if c, ok := v.field("content"); ok {
				cfg.Purge, _ = contentList(c)
			}
		}
	}

	return cfg
}

func contentList(v jsValue) (files, raw []string) {
	if v.kind != valArray {
		return nil, nil
	}
	for _, item := range v.items {
		switch item.kind {
		case valString:
			files = append(files, item.s)
		case valObject:
			if r, ok := item.field("raw"); ok && r.kind == valString {
				raw = append(raw, r.s)
			}
		}
	}
	return files, raw
}

type tokKind int

const (
	tokPunct tokKind = iota
	tokString
	tokTemplate
	tokIdent
	tokNumber
)

type token struct {
	kind  tokKind
	text  string
	depth int
}

// lex splits JS source into the tokens the value reader needs. Regex literals
// and template substitutions are not understood.
func lex(src string) []token {
	var toks []token
	depth := 0
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case strings.HasPrefix(src[i:], "//"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				return toks
			}
			i += end
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return toks
			}
			i += end + 4
		case c == '\'' || c == '"' || c == '`':
			s, n, clean := readString(src[i:])
			kind := tokString
			if c == '`' && !clean {
				kind = tokTemplate
			}
			toks = append(toks, token{kind: kind, text: s, depth: depth})
			i += n
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j], depth: depth})
			i = j
		case c >= '0' && c <= '9':
			j := i + 1
			for j < len(src) && (isIdentPart(src[j]) || src[j] == '.') {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: src[i:j], depth: depth})
			i = j
		default:
			if c == '}' || c == ']' || c == ')' {
				depth--
			}
			toks = append(toks, token{kind: tokPunct, text: string(c), depth: depth})
			if c == '{' || c == '[' || c == '(' {
				depth++
			}
			i++
		}
	}
	return toks
}

// readString reads a quoted literal starting at s[0]. clean is false for a
// template literal with substitutions.
func readString(s string) (string, int, bool) {
	quote := s[0]
	var b strings.Builder
	clean := true
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[i])
			}
		case c == quote:
			return b.String(), i + 1, clean
		case quote == '`' && c == '$' && i+1 < len(s) && s[i+1] == '{':
			clean = false
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), len(s), clean
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// isKey reports whether toks[i] is a property name: it follows `{` or `,` and
// precedes `:`. Type annotations such as `const config: Config` do not qualify.
func isKey(toks []token, i int) bool {
	if i == 0 || i+1 >= len(toks) {
		return false
	}
	if toks[i+1].kind != tokPunct || toks[i+1].text != ":" {
		return false
	}
	if prev := toks[i-1]; prev.kind != tokPunct || (prev.text != "{" && prev.text != ",") {
		return false
	}
	return toks[i].kind == tokIdent || toks[i].kind == tokString
}

// topLevelDepth is the shallowest depth holding a `key:` pair, i.e. the
// config object itself.
func topLevelDepth(toks []token) int {
	top := -1
	for i := range toks {
		if isKey(toks, i) && (top < 0 || toks[i].depth < top) {
			top = toks[i].depth
		}
	}
	return top
}

func valueOf(toks []token, key string, depth int) (jsValue, bool) {
	for i := range toks {
		if toks[i].depth == depth && toks[i].text == key && isKey(toks, i) {
			p := &parser{toks: toks, pos: i + 2}
			return p.value(), true
		}
	}
	return jsValue{}, false
}

type valKind int

const (
	valUnknown valKind = iota
	valString
	valBool
	valArray
	valObject
)

type jsValue struct {
	kind   valKind
	s      string
	b      bool
	items  []jsValue
	keys   []string
	fields []jsValue
}

func (v jsValue) field(name string) (jsValue, bool) {
	if v.kind != valObject {
		return jsValue{}, false
	}
	for i, k := range v.keys {
		if k == name {
			return v.fields[i], true
		}
	}
	return jsValue{}, false
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) isPunct(s string) bool {
	t, ok := p.peek()
	return ok && t.kind == tokPunct && t.text == s
}

func (p *parser) value() jsValue {
	t, ok := p.peek()
	if !ok {
		return jsValue{}
	}
	switch {
	case t.kind == tokPunct && t.text == "[":
		return p.array()
	case t.kind == tokPunct && t.text == "{":
		return p.object()
	case t.kind == tokString:
		p.pos++
		if p.endsValue() {
			return jsValue{kind: valString, s: t.text}
		}
	case t.kind == tokIdent && (t.text == "true" || t.text == "false"):
		p.pos++
		if p.endsValue() {
			return jsValue{kind: valBool, b: t.text == "true"}
		}
	}
	p.skipExpression()
	return jsValue{}
}

// endsValue reports whether the current token closes the value just read.
func (p *parser) endsValue() bool {
	t, ok := p.peek()
	if !ok {
		return true
	}
	return t.kind == tokPunct && (t.text == "," || t.text == "]" || t.text == "}" || t.text == ";")
}

// skipExpression advances to the next `,` or closing bracket at the current depth.
func (p *parser) skipExpression() {
	if p.pos >= len(p.toks) {
		return
	}
	depth := p.toks[p.pos].depth
	for ; p.pos < len(p.toks); p.pos++ {
		t := p.toks[p.pos]
		if t.depth < depth {
			return
		}
		if t.depth == depth && t.kind == tokPunct && (t.text == "," || t.text == ";") {
			return
		}
	}
}

func (p *parser) array() jsValue {
	v := jsValue{kind: valArray}
	p.pos++
	for p.pos < len(p.toks) {
		if p.isPunct("]") {
			p.pos++
			return v
		}
		if p.isPunct(",") {
			p.pos++
			continue
		}
		start := p.pos
		v.items = append(v.items, p.value())
		if p.pos == start {
			p.pos++
		}
	}
	return v
}

func (p *parser) object() jsValue {
	v := jsValue{kind: valObject}
	p.pos++
	for p.pos < len(p.toks) {
		if p.isPunct("}") {
			p.pos++
			return v
		}
		if p.isPunct(",") {
			p.pos++
			continue
		}
		start := p.pos
		if isKey(p.toks, p.pos) {
			key := p.toks[p.pos].text
			p.pos += 2
			v.keys = append(v.keys, key)
			v.fields = append(v.fields, p.value())
		} else {
			// spread, shorthand, method or computed key
			p.skipExpression()
		}
		if p.pos == start {
			p.pos++
		}
	}
	return v
}
