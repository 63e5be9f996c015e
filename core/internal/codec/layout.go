package codec

import "github.com/meigma/fps4/core/internal/fpstype"

// Layout holds the byte offset of every field inside one record.
// Fields absent from the schema have offset -1.
type Layout struct {
	Start    int
	Sector   int
	Size     int
	Name     int
	Type     int
	Metadata int
	FieldA   int
	FieldB   int

	// Width is the total record width implied by the schema.
	Width int
}

// NewLayout computes field offsets for schema. Fields are contiguous in the
// fixed order start, sector, size, name, type, metadata, A, B.
func NewLayout(schema fpstype.ContentSchema) Layout {
	l := Layout{Start: -1, Sector: -1, Size: -1, Name: -1, Type: -1, Metadata: -1, FieldA: -1, FieldB: -1}
	off := 0
	place := func(present bool, dst *int, width int) {
		if !present {
			return
		}
		*dst = off
		off += width
	}
	place(schema.HasStartPointers(), &l.Start, fpstype.WordWidth)
	place(schema.HasSectorSizes(), &l.Sector, fpstype.WordWidth)
	place(schema.HasFileSizes(), &l.Size, fpstype.WordWidth)
	place(schema.HasFileNames(), &l.Name, fpstype.FileNameWidth)
	place(schema.HasFileTypes(), &l.Type, fpstype.FileTypeWidth)
	place(schema.HasMetadata(), &l.Metadata, fpstype.WordWidth)
	place(schema.HasFieldA(), &l.FieldA, fpstype.WordWidth)
	place(schema.HasFieldB(), &l.FieldB, fpstype.WordWidth)
	l.Width = off
	return l
}
