// Package cache wraps slow byte sources with an in-memory block cache.
//
// Opening an archive reads the header, every table record, metadata strings
// and the archive name with small ReadAt calls. Over a remote source each of
// those is a round trip; caching fixed-size blocks collapses them into a
// handful of fetches. Large reads, such as whole-member copies during
// extraction, bypass the cache.
package cache
