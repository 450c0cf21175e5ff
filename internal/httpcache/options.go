package httpcache

import "strings"

// AllowHeader builds the comma-separated, uppercased method list for
// an OPTIONS response from the subscribed endpoint names that share
// pathPrefix, given each endpoint's method tail.
func AllowHeader(methodTails []string) string {
	upper := make([]string, len(methodTails))
	for i, tail := range methodTails {
		upper[i] = strings.ToUpper(tail)
	}
	return strings.Join(upper, ",")
}
