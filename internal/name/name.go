// Package name composes and decomposes endpoint names: the strings the
// core subscribes to and the dispatch layer looks requests up by.
//
// An endpoint name is prefix + logical_path + method_suffix. The method
// suffix is one of /options, /head, /get, /put, /post; a bare logical
// path (no suffix) is used only when HTTP-method routing is disabled.
package name

import "strings"

// Method identifies which of the file's exposed operations an endpoint
// name's suffix selects.
type Method string

const (
	Options Method = "options"
	Head    Method = "head"
	Get     Method = "get"
	Put     Method = "put"
	Post    Method = "post"
)

// ReadMethods are subscribed for every file the table admits with read
// access.
var ReadMethods = []Method{Options, Head, Get}

// indexNames are the filenames that synthesize a directory-level alias.
var indexNames = []string{"index.htm", "index.html"}

// Suffixed returns logicalName + "/" + suffix, or logicalName unchanged
// when routing is disabled (suffix is not appended).
func Suffixed(logicalName string, method Method, routingEnabled bool) string {
	if !routingEnabled {
		return logicalName
	}
	return logicalName + "/" + string(method)
}

// Split separates an endpoint name into its logical path and method
// suffix, splitting on the final "/". ok is false if name carries no
// recognized method suffix (the bare-name, routing-disabled case).
func Split(endpointName string) (logicalPath string, method Method, ok bool) {
	idx := strings.LastIndex(endpointName, "/")
	if idx < 0 {
		return endpointName, "", false
	}
	tail := Method(endpointName[idx+1:])
	switch tail {
	case Options, Head, Get, Put, Post:
		return endpointName[:idx], tail, true
	default:
		return endpointName, "", false
	}
}

// IndexAlias reports whether logicalName's final path segment is a
// recognized index filename (index.htm or index.html), and if so
// returns the directory-level alias name: logicalName with that segment
// removed (trailing slash trimmed too, so a root-level index file
// aliases to the empty string).
func IndexAlias(logicalName string) (alias string, ok bool) {
	idx := strings.LastIndex(logicalName, "/")
	segment := logicalName
	dir := ""
	if idx >= 0 {
		segment = logicalName[idx+1:]
		dir = logicalName[:idx]
	}
	for _, candidate := range indexNames {
		if segment == candidate {
			return dir, true
		}
	}
	return "", false
}

// HasPrefixPattern reports whether endpointName matches the pattern
// pathPrefix + "/*" used by OPTIONS to enumerate a path's subscribed
// methods: every endpoint whose logical path equals pathPrefix exactly,
// regardless of method suffix.
func HasPrefixPattern(endpointName, pathPrefix string) bool {
	logical, _, ok := Split(endpointName)
	if !ok {
		return endpointName == pathPrefix
	}
	return logical == pathPrefix
}
