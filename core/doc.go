// Package fps4 reads and writes FPS4 archives.
//
// FPS4 is a container whose file-table record layout is selected at runtime
// by a 16-bit content bitmask. Records may carry start pointers, sector and
// file sizes, fixed-width names and types, a pointer to a free-form metadata
// string and two opaque words. Information the format does not store is
// recovered heuristically when an archive is opened:
//   - Byte order, from the plausibility of the header size
//   - A location multiplier, for archives whose offsets are stored divided
//     by a constant factor
//   - Whether missing sizes may be taken from the next record's location
//   - Member paths, from the name field, metadata or the record index
//
// [Open] parses an archive from a [ByteSource] and serves index-based and
// path-based lookups over views of the content without copying it. The
// returned [Archive] implements fs.FS, fs.StatFS, fs.ReadFileFS and
// fs.ReadDirFS. [Pack] performs the inverse transform, and
// [DetectDuplicates] marks requests whose content can share storage.
package fps4
