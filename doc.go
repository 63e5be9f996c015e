// Package fps4 reads and writes FPS4 archives stored as files.
//
// FPS4 is a container whose file table layout is chosen per archive by a
// 16-bit content bitmask. Depending on the bitmask a record may carry a start
// pointer, sector and file sizes, a fixed-width name, a type tag, a pointer to
// a metadata string and two reserved words. What the format leaves out, such
// as byte order or the location multiplier used by very large archives, is
// recovered heuristically when the archive is opened.
//
// This package adds file handling on top of the format engine in the [core]
// subpackage: opening single-file and split archives, writing archives
// atomically, collecting pack inputs from a directory tree and YAML pack
// manifests.
//
// # Reading
//
//	af, err := fps4.OpenFile("chara.dat")
//	if err != nil {
//	    return err
//	}
//	defer af.Close()
//	data, err := af.ReadFile("chara/title.tm2")
//
// An opened archive implements fs.FS, so fs.WalkDir, fs.Glob and
// http.FS work on it directly.
//
// # Writing
//
//	reqs, err := fps4.CollectDir("./chara")
//	if err != nil {
//	    return err
//	}
//	res, err := fps4.PackFile(ctx, "chara.dat", reqs,
//	    fps4.PackWithSchema(0x004F),
//	    fps4.PackWithMetadata(fps4.MetadataPath),
//	)
//
// # Warnings
//
// Unknown bitmask bits and an inferred location multiplier do not fail
// Open; they are collected by Archive.Warnings and logged at Warn level.
//
// [core]: https://pkg.go.dev/github.com/meigma/fps4/core
package fps4
