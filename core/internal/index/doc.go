// Package index provides an ordered path index over archive members.
//
// FPS4 stores no lookup structure of its own; the index is built once when an
// archive is opened and is read-only afterwards.
package index
