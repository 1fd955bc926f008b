package k8sschema

import (
	"strconv"
	"strings"
)

func trimPrefixSlash(s string) string {
	return strings.TrimPrefix(s, "/")
}

func splitPointer(s string) []string {
	if s == "" {
		return nil
	}

	return strings.Split(s, "/")
}

// unescapePointerToken reverses RFC 6901 "~1"/"~0" escaping.
func unescapePointerToken(tok string) string {
	tok = strings.ReplaceAll(tok, "~1", "/")
	tok = strings.ReplaceAll(tok, "~0", "~")

	return tok
}

func parsePointerIndex(tok string) (int, bool) {
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}

	return n, true
}
