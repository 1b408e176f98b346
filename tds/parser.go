package tds

import (
	"regexp"
	"strings"

	"github.com/dvsuite/queryexec/errs"
)

// acceptedLeadingKeywords is the read-only accept-list (§4.5): a statement
// whose first non-whitespace keyword isn't here is rejected before dialling.
var acceptedLeadingKeywords = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"DECLARE": true,
	"SET":     true,
	"IF":      true,
	"BEGIN":   true,
	"TRY":     true,
}

var lineCommentRe = regexp.MustCompile(`(?m)^\s*--.*$`)
var blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)

// stripLeadingComments removes `--` line comments and `/* */` block
// comments, grounded on the teacher's trimMarginComments/splitDDLs
// regex-based approach in database/parser.go.
func stripLeadingComments(sql string) string {
	s := blockCommentRe.ReplaceAllString(sql, "")
	s = lineCommentRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func firstKeyword(sql string) string {
	s := strings.TrimSpace(sql)
	i := 0
	for i < len(s) && (isWordChar(s[i])) {
		i++
	}
	return strings.ToUpper(s[:i])
}

func isWordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_'
}

// checkReadOnly rejects any statement not in acceptedLeadingKeywords after
// stripping leading comments.
func checkReadOnly(sql string) error {
	stripped := stripLeadingComments(sql)
	kw := firstKeyword(stripped)
	if !acceptedLeadingKeywords[kw] {
		return errs.New(errs.NotSupported, "statement not permitted by the read-only accept-list: "+kw).WithTarget(kw)
	}
	return nil
}
