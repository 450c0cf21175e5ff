package core

import "strings"

// MatchPattern matches name against a pattern containing at most one
// "*" wildcard, which greedily captures the substring it stands for.
// A pattern without "*" matches only the identical name, capturing
// nothing.
func MatchPattern(pattern, name string) (capture string, ok bool) {
	star := strings.IndexByte(pattern, '*')
	if star < 0 {
		return "", pattern == name
	}
	prefix, suffix := pattern[:star], pattern[star+1:]
	if len(name) < len(prefix)+len(suffix) || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return "", false
	}
	return name[len(prefix) : len(name)-len(suffix)], true
}

// Substitute replaces the "*" in targetPattern with capture.
func Substitute(targetPattern, capture string) string {
	return strings.Replace(targetPattern, "*", capture, 1)
}
