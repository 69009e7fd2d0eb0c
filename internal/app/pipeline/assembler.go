package pipeline

import (
	"strings"

	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
)

// AssembleTurns merges consecutive same speaker cues into turns
// in one linear pass and resolves every raw speaker label.
// A cue without a label gets the placeholder speaker
func AssembleTurns(cues []persistence.Cue) []persistence.Turn {
	if len(cues) == 0 {
		return nil
	}
	res := make([]persistence.Turn, 0)
	var texts []string
	var current persistence.Turn
	currentLabel := ""
	for i, c := range cues {
		label := c.Speaker
		if strings.TrimSpace(label) == "" {
			label = UnknownSpeaker
		}
		if i == 0 || label != currentLabel {
			if i > 0 {
				current.Content = strings.Join(texts, " ")
				res = append(res, current)
			}
			currentLabel = label
			name, repr := ResolveSpeaker(label)
			current = persistence.Turn{Speaker: name, Representing: repr,
				StartTime: c.Start, EndTime: c.End, CueCount: 1}
			texts = texts[:0]
			texts = append(texts, c.Text)
			continue
		}
		texts = append(texts, c.Text)
		current.EndTime = c.End
		current.CueCount++
	}
	current.Content = strings.Join(texts, " ")
	res = append(res, current)
	cmdapp.Log.Infof("Assembled %d cue(s) into %d turn(s)", len(cues), len(res))
	return res
}
