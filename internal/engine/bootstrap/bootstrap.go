// Package bootstrap carries the JavaScript library loaded into every fresh
// execution context before any client command runs.
package bootstrap

import (
	"embed"
	"sort"
	"strings"
)

//go:embed js/*.js
var files embed.FS

// Source returns the full bootstrap library: every embedded script joined
// in file-name order into one block of source. Assembled once at build
// time via go:embed; callers must treat the result as immutable.
func Source() string {
	entries, err := files.ReadDir("js")
	if err != nil {
		// The directory is embedded at compile time; this cannot fail at
		// runtime with a well-formed binary.
		panic(err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		data, err := files.ReadFile("js/" + name)
		if err != nil {
			panic(err)
		}
		parts = append(parts, string(data))
	}
	return strings.Join(parts, "\n\n")
}
