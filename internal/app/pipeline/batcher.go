package pipeline

import (
	"regexp"
	"sort"

	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
)

//BatchOptions configures transcript splitting
type BatchOptions struct {
	Size         int
	Overlap      int
	GapThreshold float64 // seconds of silence suggesting a speaker change
	SnapWindow   int     // cues before a default cut where a boundary may attract the cut
}

//DefaultBatchOptions returns options used when config provides none
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{Size: 100, Overlap: 5, GapThreshold: 3.0, SnapWindow: 10}
}

//BatchOptionsFromConfig reads diarizer.batch.* settings
func BatchOptionsFromConfig() BatchOptions {
	res := DefaultBatchOptions()
	if v := cmdapp.Config.GetInt("diarizer.batch.size"); v > 0 {
		res.Size = v
	}
	if v := cmdapp.Config.GetInt("diarizer.batch.overlap"); v > 0 {
		res.Overlap = v
	}
	if v := cmdapp.Config.GetFloat64("diarizer.batch.gapThreshold"); v > 0 {
		res.GapThreshold = v
	}
	if v := cmdapp.Config.GetInt("diarizer.batch.snapWindow"); v > 0 {
		res.SnapWindow = v
	}
	if res.Overlap >= res.Size {
		res.Overlap = res.Size - 1
	}
	return res
}

//Batch is a contiguous slice of cues sent to a provider together.
//The first Overlap cues repeat the tail of the previous batch for context
type Batch struct {
	Cues    []persistence.Cue
	Overlap int
}

// handoff phrases close a turn, the next cue likely starts a new speaker
var handoffRegexp = regexp.MustCompile(`(?i)\b(thank you|thanks very much|i give the floor|the floor is yours|over to you|back to you)\b[^a-zA-Z]*$`)

// intro phrases open a turn
var introRegexp = regexp.MustCompile(`(?i)^[^a-zA-Z]*(my name is|good morning|good afternoon|good evening|please welcome|allow me to introduce|distinguished delegates|excellencies)\b`)

// SplitBatches partitions cues into batches of about opts.Size cues.
// Cut points snap to the nearest detected speaker change boundary within
// opts.SnapWindow cues before the default cut. A snap never shrinks a batch
// below opts.Overlap+1 cues; with no usable boundary the fixed cut stays.
// Correctness does not depend on boundary detection - it only moves cuts
func SplitBatches(cues []persistence.Cue, opts BatchOptions) []Batch {
	if len(cues) == 0 {
		return nil
	}
	boundaries := detectBoundaries(cues, opts.GapThreshold)
	res := make([]Batch, 0, len(cues)/opts.Size+1)
	from := 0
	for from < len(cues) {
		cut := from + opts.Size
		if cut >= len(cues) {
			cut = len(cues)
		} else {
			cut = snapCut(boundaries, from, cut, opts)
		}
		overlap := 0
		start := from
		if from > 0 {
			overlap = opts.Overlap
			if overlap > from {
				overlap = from
			}
			start = from - overlap
		}
		res = append(res, Batch{Cues: cues[start:cut], Overlap: overlap})
		from = cut
	}
	cmdapp.Log.Infof("Split %d cue(s) into %d batch(es)", len(cues), len(res))
	return res
}

// snapCut moves the default cut to the closest boundary in
// (cut-SnapWindow, cut], keeping at least Overlap+1 cues in the batch
func snapCut(boundaries map[int]bool, from, cut int, opts BatchOptions) int {
	floor := from + opts.Overlap + 1
	for c := cut; c > cut-opts.SnapWindow && c >= floor; c-- {
		if boundaries[c] {
			return c
		}
	}
	return cut
}

// detectBoundaries returns positions i where cues[i] likely starts a new
// speaker turn: a long pause before it, a handoff phrase ending the previous
// cue or an introduction phrase opening this one
func detectBoundaries(cues []persistence.Cue, gapThreshold float64) map[int]bool {
	res := make(map[int]bool)
	for i := 1; i < len(cues); i++ {
		if cues[i].Start-cues[i-1].End > gapThreshold ||
			handoffRegexp.MatchString(cues[i-1].Text) ||
			introRegexp.MatchString(cues[i].Text) {
			res[i] = true
		}
	}
	return res
}

// MergeLabeled flattens labeled batches back into one cue sequence.
// Overlap duplicates are resolved by sequence index, a later batch wins
func MergeLabeled(batches [][]persistence.Cue) []persistence.Cue {
	byIndex := make(map[int]persistence.Cue)
	for _, b := range batches {
		for _, c := range b {
			byIndex[c.Index] = c
		}
	}
	res := make([]persistence.Cue, 0, len(byIndex))
	for _, c := range byIndex {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Index < res[j].Index })
	return res
}
