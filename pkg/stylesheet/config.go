package stylesheet

import (
	"regexp"

	"github.com/fulmenhq/twproj/pkg/pathutil"
)

var configDirective = regexp.MustCompile(`@config\s*('[^']+'|"[^"]+")`)

// Reference is the script config named by an @config directive.
type Reference struct {
	Path string
	// Line is where the directive starts in the stylesheet.
	Line int
}

// ConfigReference returns the script config named by the first @config
// directive in text, resolved against the directory of cssPath.
func ConfigReference(text, cssPath string) (Reference, bool) {
	m := configDirective.FindStringSubmatchIndex(text)
	if m == nil {
		return Reference{}, false
	}
	target := text[m[2]+1 : m[3]-1]
	return Reference{
		Path: pathutil.Resolve(pathutil.Dir(pathutil.Normalize(cssPath)), target),
		Line: LineOf(text, m[0]),
	}, true
}
