package reconcile

// Stage identifies a phase of a reconciliation run. Stages are
// progress reporting only; callers observe outcomes through the
// returned Result or error, never through stages.
type Stage string

// Run stages in order of occurrence.
const (
	StageDedup       Stage = "dedup"
	StageFetching    Stage = "fetching"
	StageMergeVideos Stage = "merge_videos"
	StageMergeIndex  Stage = "merge_index"
	StageReadback    Stage = "readback"
	StageDone        Stage = "done"
)

// ProgressFunc receives stage transitions during a run. During
// StageFetching, done and total count fetch batches and the callback
// may be invoked concurrently from multiple fetch goroutines; for all
// other stages both counts are zero.
type ProgressFunc func(stage Stage, done, total int)
