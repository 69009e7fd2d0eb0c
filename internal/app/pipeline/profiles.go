package pipeline

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/llm"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
	"github.com/pkg/errors"
)

// ProfileExtractor builds the speaker roster for a meeting in two passes
// over sampled transcript excerpts: a mention pass collecting every
// name-like reference, and a roster pass deduplicating mentions into
// full speaker profiles
type ProfileExtractor struct {
	chain       *llm.Chain
	maxAttempts int
	openingCues int
	sampleCount int
	sampleCues  int
	maxTokens   int
	rnd         *rand.Rand
}

//NewProfileExtractor creates a roster extractor over the provider chain
func NewProfileExtractor(chain *llm.Chain) (*ProfileExtractor, error) {
	if chain == nil {
		return nil, errors.New("No provider chain")
	}
	cmdapp.Config.SetDefault("diarizer.profile.attempts", 3)
	cmdapp.Config.SetDefault("diarizer.profile.openingCues", 40)
	cmdapp.Config.SetDefault("diarizer.profile.samples", 4)
	cmdapp.Config.SetDefault("diarizer.profile.sampleCues", 12)
	cmdapp.Config.SetDefault("diarizer.profile.maxTokens", 2000)
	return &ProfileExtractor{chain: chain,
		maxAttempts: cmdapp.Config.GetInt("diarizer.profile.attempts"),
		openingCues: cmdapp.Config.GetInt("diarizer.profile.openingCues"),
		sampleCount: cmdapp.Config.GetInt("diarizer.profile.samples"),
		sampleCues:  cmdapp.Config.GetInt("diarizer.profile.sampleCues"),
		maxTokens:   cmdapp.Config.GetInt("diarizer.profile.maxTokens"),
		rnd:         rand.New(rand.NewSource(rand.Int63()))}, nil
}

type speakerMention struct {
	Name    string `json:"name"`
	Context string `json:"context"`
}

type mentionAnswer struct {
	Mentions []speakerMention `json:"mentions"`
}

type rosterAnswer struct {
	Speakers []persistence.SpeakerProfile `json:"speakers"`
}

//Extract returns the deduplicated speaker roster for the transcript.
//A failed extraction is a degraded condition, not a fatal one -
//the caller proceeds with an empty roster
func (e *ProfileExtractor) Extract(title string, cues []persistence.Cue) ([]persistence.SpeakerProfile, error) {
	if len(cues) == 0 {
		return nil, nil
	}
	excerpts := e.collectExcerpts(cues)
	mentions, err := e.extractMentions(title, excerpts)
	if err != nil {
		return nil, errors.Wrap(err, "Can't extract speaker mentions")
	}
	if len(mentions) == 0 {
		cmdapp.Log.Infof("No speaker mentions found")
		return nil, nil
	}
	roster, err := e.buildRoster(title, mentions, e.localizedExcerpts(mentions, cues))
	if err != nil {
		return nil, errors.Wrap(err, "Can't build speaker roster")
	}
	roster = dedupeRoster(roster)
	cmdapp.Log.Infof("Extracted %d speaker profile(s) from %d mention(s)", len(roster), len(mentions))
	return roster, nil
}

// collectExcerpts samples the transcript: the opening section, windows
// around introduction phrases and a few random windows from the rest
func (e *ProfileExtractor) collectExcerpts(cues []persistence.Cue) []string {
	var res []string
	opening := e.openingCues
	if opening > len(cues) {
		opening = len(cues)
	}
	res = append(res, joinCueTexts(cues[:opening]))
	for i := opening; i < len(cues); i++ {
		if introRegexp.MatchString(strings.ToLower(cues[i].Text)) {
			to := i + e.sampleCues/2
			if to > len(cues) {
				to = len(cues)
			}
			from := i - e.sampleCues/2
			if from < 0 {
				from = 0
			}
			res = append(res, joinCueTexts(cues[from:to]))
			i = to
		}
	}
	for i := 0; i < e.sampleCount && len(cues) > opening+e.sampleCues; i++ {
		from := opening + e.rnd.Intn(len(cues)-opening-e.sampleCues)
		res = append(res, joinCueTexts(cues[from:from+e.sampleCues]))
	}
	return res
}

//maxNameWindows limits the localized windows taken per mentioned name
const maxNameWindows = 2

// localizedExcerpts returns the opening section plus windows around the
// occurrences of each mentioned name, so the roster pass reads the text
// introducing a person instead of the global sample set
func (e *ProfileExtractor) localizedExcerpts(mentions []speakerMention, cues []persistence.Cue) []string {
	opening := e.openingCues
	if opening > len(cues) {
		opening = len(cues)
	}
	res := []string{joinCueTexts(cues[:opening])}
	used := make([]bool, len(cues))
	for i := 0; i < opening; i++ {
		used[i] = true
	}
	for _, m := range mentions {
		name := strings.ToLower(strings.TrimSpace(m.Name))
		if name == "" {
			continue
		}
		found := 0
		for i := opening; i < len(cues) && found < maxNameWindows; i++ {
			if used[i] || !strings.Contains(strings.ToLower(cues[i].Text), name) {
				continue
			}
			from := i - e.sampleCues/2
			if from < 0 {
				from = 0
			}
			to := i + e.sampleCues/2
			if to > len(cues) {
				to = len(cues)
			}
			res = append(res, joinCueTexts(cues[from:to]))
			for j := from; j < to; j++ {
				used[j] = true
			}
			found++
		}
	}
	return res
}

func (e *ProfileExtractor) extractMentions(title string, excerpts []string) ([]speakerMention, error) {
	prompt := mentionPrompt(title, excerpts)
	var answer mentionAnswer
	_, err := completeWithFallback(e.chain, prompt, e.maxTokens, e.maxAttempts,
		func(text string) error {
			if looksTruncated(text) {
				return errors.New("Truncated answer")
			}
			answer = mentionAnswer{}
			return json.Unmarshal([]byte(text), &answer)
		})
	if err != nil {
		return nil, err
	}
	return answer.Mentions, nil
}

func (e *ProfileExtractor) buildRoster(title string, mentions []speakerMention, excerpts []string) ([]persistence.SpeakerProfile, error) {
	prompt := rosterPrompt(title, mentions, excerpts)
	var answer rosterAnswer
	_, err := completeWithFallback(e.chain, prompt, e.maxTokens, e.maxAttempts,
		func(text string) error {
			if looksTruncated(text) {
				return errors.New("Truncated answer")
			}
			answer = rosterAnswer{}
			return json.Unmarshal([]byte(text), &answer)
		})
	if err != nil {
		return nil, err
	}
	return answer.Speakers, nil
}

func mentionPrompt(title string, excerpts []string) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Meeting: %s\n\n", title)
	sb.WriteString("List every person mentioned by name in the transcript excerpts below.\n")
	sb.WriteString("Include self introductions, chair announcements and references to other speakers.\n")
	sb.WriteString("Answer with JSON only: {\"mentions\": [{\"name\": \"...\", \"context\": \"...\"}]}\n\n")
	for i, ex := range excerpts {
		fmt.Fprintf(sb, "--- Excerpt %d ---\n%s\n\n", i+1, ex)
	}
	return sb.String()
}

func rosterPrompt(title string, mentions []speakerMention, excerpts []string) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Meeting: %s\n\n", title)
	sb.WriteString("Merge the mentions below into a deduplicated list of distinct people.\n")
	sb.WriteString("Same person may appear under several spellings - collect those as variants.\n")
	sb.WriteString("Fill title, organization and country when the excerpts support it, else use \"" +
		NotSpecified + "\".\n")
	sb.WriteString("Category is one of: official, moderator, expert, participant.\n")
	sb.WriteString("Answer with JSON only: {\"speakers\": [{\"name\": \"...\", \"title\": \"...\", " +
		"\"organization\": \"...\", \"country\": \"...\", \"category\": \"...\", " +
		"\"confidence\": 0.0, \"variants\": [\"...\"]}]}\n\nMentions:\n")
	for _, m := range mentions {
		fmt.Fprintf(sb, "- %s: %s\n", m.Name, m.Context)
	}
	sb.WriteString("\nExcerpts:\n")
	for i, ex := range excerpts {
		fmt.Fprintf(sb, "--- Excerpt %d ---\n%s\n\n", i+1, ex)
	}
	return sb.String()
}

// dedupeRoster merges profiles sharing a normalized name.
// The higher confidence entry wins, names of the loser go to variants
func dedupeRoster(roster []persistence.SpeakerProfile) []persistence.SpeakerProfile {
	byName := make(map[string]*persistence.SpeakerProfile)
	var order []string
	for _, p := range roster {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		key := normalizeName(p.Name)
		old, found := byName[key]
		if !found {
			cp := p
			byName[key] = &cp
			order = append(order, key)
			continue
		}
		if p.Confidence > old.Confidence {
			p.Variants = mergeVariants(p.Variants, append(old.Variants, old.Name))
			*old = p
		} else {
			old.Variants = mergeVariants(old.Variants, append(p.Variants, p.Name))
		}
	}
	res := make([]persistence.SpeakerProfile, 0, len(order))
	for _, key := range order {
		p := *byName[key]
		p.Variants = dropSelf(p.Variants, p.Name)
		res = append(res, p)
	}
	return res
}

var honorifics = []string{"dr.", "dr", "mr.", "mr", "ms.", "ms", "mrs.", "mrs",
	"prof.", "prof", "h.e.", "hon.", "sir", "madam"}

// normalizeName lowers the case and strips leading honorifics
func normalizeName(name string) string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	for len(parts) > 1 {
		found := false
		for _, h := range honorifics {
			if parts[0] == h {
				parts = parts[1:]
				found = true
				break
			}
		}
		if !found {
			break
		}
	}
	return strings.Join(parts, " ")
}

func mergeVariants(a, b []string) []string {
	seen := make(map[string]bool)
	var res []string
	for _, v := range append(a, b...) {
		v = strings.TrimSpace(v)
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		res = append(res, v)
	}
	sort.Strings(res)
	return res
}

func dropSelf(variants []string, name string) []string {
	res := variants[:0]
	for _, v := range variants {
		if !strings.EqualFold(v, name) {
			res = append(res, v)
		}
	}
	if len(res) == 0 {
		return nil
	}
	return res
}

func joinCueTexts(cues []persistence.Cue) string {
	texts := make([]string, 0, len(cues))
	for _, c := range cues {
		texts = append(texts, c.Text)
	}
	return strings.Join(texts, " ")
}
