// Package detect answers the fixed structural questions the judge asks about
// a candidate directory: does the ingest module use the legacy dependency,
// does the report module rotate by the researched angle, and do the tests
// mock the legacy dependency instead of calling it.
//
// All detectors are pure and deterministic for a given source tree. Missing
// or unreadable files and syntax errors are treated as "pattern not found";
// none of them ever return an error.
package detect

import (
	"os"
	"strings"
)

// readText returns the UTF-8 content of a file, or "" when the file is
// missing or unreadable.
func readText(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(content)
}

// FileMentions reports whether any of the keywords appears in the file
// content. This is the context-trap check: a literal reference to the legacy
// module identifier or its exposed function is enough.
func FileMentions(path string, keywords ...string) bool {
	content := readText(path)
	if content == "" {
		return false
	}
	for _, k := range keywords {
		if strings.Contains(content, k) {
			return true
		}
	}
	return false
}
