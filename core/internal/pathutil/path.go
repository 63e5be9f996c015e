// Package pathutil splits slash-separated member paths for directory
// listings synthesized over a flat archive table.
package pathutil

import "strings"

// Base returns the final element of p. The root, "." or "", has base ".".
func Base(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" || p == "." {
		return "."
	}
	return p[strings.LastIndexByte(p, '/')+1:]
}

// DirPrefix returns the key prefix shared by every member below dir.
// The root yields the empty prefix.
func DirPrefix(dir string) string {
	if dir == "." || dir == "" {
		return ""
	}
	return dir + "/"
}

// Child returns the first element of p after prefix and whether more
// elements follow it, meaning the child is a directory. p must start with
// prefix.
func Child(p, prefix string) (name string, isDir bool) {
	rest := p[len(prefix):]
	name, _, isDir = strings.Cut(rest, "/")
	return name, isDir
}
