package notes

import (
	"fmt"
	"strings"

	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/llm"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
	"bitbucket.org/airenas/meetgo/internal/pkg/retry"
	"github.com/pkg/errors"
)

//Generator writes the executive summary and structured minutes
//for a completed meeting using the provider chain
type Generator struct {
	chain       *llm.Chain
	maxAttempts int
	maxTokens   int
}

//NewGenerator creates a notes generator
func NewGenerator(chain *llm.Chain) (*Generator, error) {
	if chain == nil {
		return nil, errors.New("No provider chain")
	}
	cmdapp.Config.SetDefault("notes.attempts", 3)
	cmdapp.Config.SetDefault("notes.maxTokens", 4000)
	return &Generator{chain: chain,
		maxAttempts: cmdapp.Config.GetInt("notes.attempts"),
		maxTokens:   cmdapp.Config.GetInt("notes.maxTokens")}, nil
}

//Generate produces both documents from the final turn list
func (g *Generator) Generate(id, title string, turns []persistence.Turn) (*persistence.Notes, error) {
	if len(turns) == 0 {
		return nil, errors.New("No turns")
	}
	transcript := formatTranscript(turns)
	summary, err := g.complete(summaryPrompt(title, transcript))
	if err != nil {
		return nil, errors.Wrap(err, "Can't generate summary")
	}
	minutes, err := g.complete(minutesPrompt(title, transcript))
	if err != nil {
		return nil, errors.Wrap(err, "Can't generate minutes")
	}
	return &persistence.Notes{ID: id, Summary: summary, Minutes: minutes}, nil
}

// complete walks the chain, each provider gets a bounded retry budget
func (g *Generator) complete(prompt string) (string, error) {
	var lastErr error
	for _, p := range g.chain.Providers() {
		var text string
		err := retry.Do(func() error {
			res, err := p.Complete(prompt, g.maxTokens)
			if err != nil {
				return err
			}
			if strings.TrimSpace(res.Text) == "" {
				return errors.New("Empty answer")
			}
			text = strings.TrimSpace(res.Text)
			return nil
		}, g.maxAttempts)
		if err == nil {
			return text, nil
		}
		lastErr = err
		cmdapp.Log.Warnf("Provider %s exhausted: %s", p.Name(), err.Error())
	}
	return "", errors.Wrap(lastErr, "All providers failed")
}

func formatTranscript(turns []persistence.Turn) string {
	sb := &strings.Builder{}
	for _, t := range turns {
		speaker := t.Speaker
		if t.Representing != "" && t.Representing != "Not specified" {
			speaker = fmt.Sprintf("%s (%s)", t.Speaker, t.Representing)
		}
		fmt.Fprintf(sb, "%s: %s\n", speaker, t.Content)
	}
	return sb.String()
}

func summaryPrompt(title, transcript string) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Meeting: %s\n\n", title)
	sb.WriteString("Write a concise executive summary of the meeting transcript below.\n")
	sb.WriteString("Cover the purpose, the main discussion points, decisions and commitments.\n\n")
	sb.WriteString(transcript)
	return sb.String()
}

func minutesPrompt(title, transcript string) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Meeting: %s\n\n", title)
	sb.WriteString("Write structured meeting minutes from the transcript below.\n")
	sb.WriteString("Sections: Participants, Agenda, Discussion, Decisions, Action items.\n")
	sb.WriteString("Attribute statements to speakers where it matters.\n\n")
	sb.WriteString(transcript)
	return sb.String()
}
