package pipeline

import "fmt"

// OutputExistsError indicates the output path is already taken. Checked
// before any network access so a run never clobbers an existing file.
type OutputExistsError struct {
	Path string
}

func (e *OutputExistsError) Error() string {
	return fmt.Sprintf("pipeline: output path %s already exists", e.Path)
}

// SegmentError indicates a segment could not be fetched or decoded. Any
// segment failure aborts the whole run; a partial output file is not a
// valid result.
type SegmentError struct {
	// Index is the zero-based position of the segment in the manifest.
	Index int
	URL   string
	Err   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("pipeline: segment %d (%s) failed: %v", e.Index, e.URL, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }
