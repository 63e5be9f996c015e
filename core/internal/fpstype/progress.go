package fpstype

// ProgressEvent represents a progress update during packing, duplicate
// detection or extraction.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the file currently being processed, if applicable.
	Path string

	// BytesDone is the number of bytes completed in the current operation.
	BytesDone uint64

	// BytesTotal is the total bytes for the current operation.
	// Zero indicates the total is unknown.
	BytesTotal uint64

	// FilesDone is the number of files completed.
	FilesDone int

	// FilesTotal is the total number of files.
	FilesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages.
const (
	// StageHashing indicates pack sources are being digested for deduplication.
	StageHashing ProgressStage = iota

	// StageWritingTable indicates the header and file table are being written.
	StageWritingTable

	// StageWritingData indicates file contents are being written.
	StageWritingData

	// StageExtracting indicates members are being extracted.
	StageExtracting
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageHashing:
		return "hashing"
	case StageWritingTable:
		return "writing table"
	case StageWritingData:
		return "writing data"
	case StageExtracting:
		return "extracting"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
// Implementations must be safe for concurrent calls.
type ProgressFunc func(ProgressEvent)
