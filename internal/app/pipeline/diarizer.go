package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/llm"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
	"github.com/pkg/errors"
)

// Diarizer attributes transcript cues to speakers batch by batch.
// Every batch prompt carries the compact roster, a few sample quotes
// per already seen speaker and the labeled tail of the previous batch
type Diarizer struct {
	chain       *llm.Chain
	maxAttempts int
	maxTokens   int
	contextCues int
	exampleLen  int
	maxExamples int
}

//NewDiarizer creates a batch diarizer over the provider chain
func NewDiarizer(chain *llm.Chain) (*Diarizer, error) {
	if chain == nil {
		return nil, errors.New("No provider chain")
	}
	cmdapp.Config.SetDefault("diarizer.attempts", 3)
	cmdapp.Config.SetDefault("diarizer.maxTokens", 4000)
	cmdapp.Config.SetDefault("diarizer.contextCues", 10)
	cmdapp.Config.SetDefault("diarizer.exampleLen", 200)
	cmdapp.Config.SetDefault("diarizer.maxExamples", 2)
	return &Diarizer{chain: chain,
		maxAttempts: cmdapp.Config.GetInt("diarizer.attempts"),
		maxTokens:   cmdapp.Config.GetInt("diarizer.maxTokens"),
		contextCues: cmdapp.Config.GetInt("diarizer.contextCues"),
		exampleLen:  cmdapp.Config.GetInt("diarizer.exampleLen"),
		maxExamples: cmdapp.Config.GetInt("diarizer.maxExamples")}, nil
}

//Label attributes every cue of every batch to a speaker and merges the
//batches back into one sequence. A batch no provider could label keeps
//placeholder labels instead of failing the whole transcript
func (d *Diarizer) Label(title string, roster []persistence.SpeakerProfile, batches []Batch) []persistence.Cue {
	ids := rosterIDs(roster)
	sctx := newSpeakerContext(d.maxExamples, d.exampleLen)
	labeled := make([][]persistence.Cue, 0, len(batches))
	var tail []persistence.Cue
	failed := 0
	for bi, b := range batches {
		cues, err := d.labelBatch(title, ids, sctx, tail, b)
		if err != nil {
			cmdapp.Log.Errorf("Can't label batch %d/%d: %s", bi+1, len(batches), err.Error())
			cues = placeholderLabels(b.Cues)
			failed++
		}
		labeled = append(labeled, cues)
		sctx.add(cues)
		tail = lastCues(cues, d.contextCues)
	}
	if failed > 0 {
		cmdapp.Log.Warnf("%d of %d batch(es) kept placeholder labels", failed, len(batches))
	}
	return MergeLabeled(labeled)
}

// labelBatch asks the chain for one batch and maps compact IDs back
// to canonical roster names
func (d *Diarizer) labelBatch(title string, ids rosterLookup, sctx *speakerContext,
	tail []persistence.Cue, b Batch) ([]persistence.Cue, error) {
	prompt := diarizePrompt(title, ids, sctx, tail, b)
	var answer labelAnswer
	_, err := completeWithFallback(d.chain, prompt, d.maxTokens, d.maxAttempts,
		func(text string) error {
			if looksTruncated(text) {
				return errors.New("Truncated answer")
			}
			answer = labelAnswer{}
			if err := json.Unmarshal([]byte(text), &answer); err != nil {
				return err
			}
			return validateLabels(answer, b.Cues)
		})
	if err != nil {
		return nil, err
	}
	bySeq := make(map[int]string, len(answer.Labels))
	for _, l := range answer.Labels {
		bySeq[l.Index] = l.Speaker
	}
	res := make([]persistence.Cue, len(b.Cues))
	for i, c := range b.Cues {
		c.Speaker = ids.canonical(bySeq[c.Index])
		res[i] = c
	}
	return res, nil
}

type speakerLabel struct {
	Index   int    `json:"index"`
	Speaker string `json:"speaker"`
}

type labelAnswer struct {
	Labels []speakerLabel `json:"labels"`
}

// validateLabels rejects an answer not covering the exact cue index set
// or leaving a label empty
func validateLabels(answer labelAnswer, cues []persistence.Cue) error {
	if len(answer.Labels) != len(cues) {
		return errors.Errorf("Expected %d label(s), got %d", len(cues), len(answer.Labels))
	}
	seen := make(map[int]bool, len(answer.Labels))
	for _, l := range answer.Labels {
		if strings.TrimSpace(l.Speaker) == "" {
			return errors.Errorf("Empty speaker for cue %d", l.Index)
		}
		if seen[l.Index] {
			return errors.Errorf("Duplicate label for cue %d", l.Index)
		}
		seen[l.Index] = true
	}
	for _, c := range cues {
		if !seen[c.Index] {
			return errors.Errorf("No label for cue %d", c.Index)
		}
	}
	return nil
}

//rosterLookup maps compact prompt IDs (S1, S2, ...) to canonical names
type rosterLookup map[string]string

func rosterIDs(roster []persistence.SpeakerProfile) rosterLookup {
	res := make(rosterLookup, len(roster))
	for i, p := range roster {
		res[fmt.Sprintf("S%d", i+1)] = p.Name
	}
	return res
}

// canonical resolves a compact ID to the roster name. Labels outside
// the roster (Participant N, real names the model picked up) pass through
func (r rosterLookup) canonical(label string) string {
	label = strings.TrimSpace(label)
	if name, found := r[label]; found {
		return name
	}
	return label
}

func (r rosterLookup) promptLines() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
	res := make([]string, 0, len(keys))
	for _, k := range keys {
		res = append(res, fmt.Sprintf("%s: %s", k, r[k]))
	}
	return res
}

// speakerContext keeps a few short sample quotes per already
// attributed speaker, carried between batches
type speakerContext struct {
	maxExamples int
	exampleLen  int
	examples    map[string][]string
	order       []string
}

func newSpeakerContext(maxExamples, exampleLen int) *speakerContext {
	return &speakerContext{maxExamples: maxExamples, exampleLen: exampleLen,
		examples: make(map[string][]string)}
}

func (s *speakerContext) add(cues []persistence.Cue) {
	for _, c := range cues {
		if c.Speaker == "" || c.Speaker == UnknownSpeaker {
			continue
		}
		ex, found := s.examples[c.Speaker]
		if !found {
			s.order = append(s.order, c.Speaker)
		}
		if len(ex) >= s.maxExamples {
			continue
		}
		text := strings.TrimSpace(c.Text)
		if len(text) < 20 {
			continue
		}
		s.examples[c.Speaker] = append(ex, truncateOnRune(text, s.exampleLen))
	}
}

// truncateOnRune cuts s to at most max bytes without splitting a rune
func truncateOnRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func (s *speakerContext) promptLines() []string {
	var res []string
	for _, speaker := range s.order {
		for _, ex := range s.examples[speaker] {
			res = append(res, fmt.Sprintf("%s: \"%s\"", speaker, ex))
		}
	}
	return res
}

func diarizePrompt(title string, ids rosterLookup, sctx *speakerContext,
	tail []persistence.Cue, b Batch) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Meeting: %s\n\n", title)
	sb.WriteString("Attribute every transcript cue below to a speaker.\n")
	if len(ids) > 0 {
		sb.WriteString("Known speakers - answer with the ID when one of them talks:\n")
		for _, l := range ids.promptLines() {
			sb.WriteString(l)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("For a speaker not in the list use a stable label Participant 1, Participant 2, ...\n")
	sb.WriteString("Answer with JSON only: {\"labels\": [{\"index\": 0, \"speaker\": \"S1\"}]}.\n")
	sb.WriteString("Provide exactly one label per cue, no index skipped.\n\n")
	if lines := sctx.promptLines(); len(lines) > 0 {
		sb.WriteString("Sample quotes of speakers heard so far:\n")
		for _, l := range lines {
			sb.WriteString(l)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	if len(tail) > 0 {
		sb.WriteString("End of the previous part, already attributed:\n")
		for _, c := range tail {
			fmt.Fprintf(sb, "[%s] %s\n", c.Speaker, c.Text)
		}
		sb.WriteString("\n")
	}
	if b.Overlap > 0 {
		fmt.Fprintf(sb, "The first %d cue(s) repeat the end of the previous part for context.\n", b.Overlap)
	}
	sb.WriteString("Cues:\n")
	for _, c := range b.Cues {
		fmt.Fprintf(sb, "{\"index\": %d, \"text\": %s}\n", c.Index, jsonString(c.Text))
	}
	return sb.String()
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func placeholderLabels(cues []persistence.Cue) []persistence.Cue {
	res := make([]persistence.Cue, len(cues))
	for i, c := range cues {
		c.Speaker = UnknownSpeaker
		res[i] = c
	}
	return res
}

func lastCues(cues []persistence.Cue, n int) []persistence.Cue {
	if len(cues) <= n {
		return cues
	}
	return cues[len(cues)-n:]
}
