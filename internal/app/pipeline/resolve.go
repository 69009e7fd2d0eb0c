package pipeline

import (
	"regexp"
	"strings"
)

//NotSpecified is the representing value when no rule matches
const NotSpecified = "Not specified"

//UnknownSpeaker is the placeholder label for cues no provider could attribute
const UnknownSpeaker = "Unknown Speaker"

var countryKeywords = []string{
	"Afghanistan", "Albania", "Algeria", "Argentina", "Australia", "Austria", "Bangladesh",
	"Belgium", "Brazil", "Canada", "China", "Colombia", "Denmark", "Egypt", "France",
	"Germany", "India", "Indonesia", "Iran", "Iraq", "Italy", "Japan", "Jordan",
	"Kenya", "Lithuania", "Malaysia", "Mexico", "Morocco", "Netherlands", "Nigeria", "Norway",
	"Pakistan", "Philippines", "Poland", "Russia", "Saudi Arabia", "South Africa",
	"Spain", "Sweden", "Switzerland", "Turkey", "Ukraine", "United Kingdom", "UK",
	"United States", "USA", "Venezuela", "Vietnam", "Yemen", "Zimbabwe",
	"Dominican Republic", "East African",
}

var orgKeywords = []string{
	"United Nations", "UNESCO", "UNICEF", "WHO", "IMF", "World Bank",
	"European Union", "African Union", "ASEAN", "NATO", "OSCE",
	"Ministry", "Department", "Office", "Committee", "Council", "Commission",
	"Organization", "Organisation", "Government", "Embassy", "Delegation",
	"Secretariat", "Agency", "Bureau", "Institute", "Foundation", "Society",
	"Association", "Federation", "Union", "Alliance", "Coalition",
	"Asian Development Bank",
}

var titleKeywords = []string{
	"Secretary-General", "Secretary General", "Undersecretary", "Under-Secretary",
	"Assistant Secretary", "Special Representative", "Special Envoy", "Special Advisor",
	"Ambassador", "Permanent Representative", "Minister", "Deputy Minister",
	"Director-General", "Director General", "Executive Director", "President",
	"Vice President", "Chairman", "Chair", "Commissioner",
	"Representative", "Delegate", "Coordinator", "Adviser", "Advisor", "CEO",
}

var roleRepresenting = []struct{ role, representing string }{
	{"moderator", "Event Moderator"},
	{"chairperson", "Session Chair"},
	{"chair", "Session Chair"},
	{"host", "Event Host"},
	{"facilitator", "Session Facilitator"},
}

type resolveRule struct {
	name  string
	apply func(label string) (string, string, bool)
}

// resolveRules are tried in fixed priority order, first match wins
var resolveRules = []resolveRule{
	{"paren", resolveParen},
	{"dash", resolveDash},
	{"comma", resolveComma},
	{"colon", resolveColon},
	{"title", resolveTitle},
	{"country", resolveCountry},
	{"org", resolveOrg},
	{"role", resolveRole},
	{"of", resolveOf},
}

//ResolveSpeaker splits a raw speaker label into clean name and representing.
//Resolution is deterministic - rules are tried in fixed order, first match wins.
//An unmatched label keeps its name with representing 'Not specified'
func ResolveSpeaker(label string) (string, string) {
	label = strings.TrimSpace(label)
	if label == "" {
		return UnknownSpeaker, "Unknown"
	}
	for _, r := range resolveRules {
		if name, repr, ok := r.apply(label); ok {
			return name, repr
		}
	}
	return cleanupName(label), NotSpecified
}

var parenRegexp = regexp.MustCompile(`^(.+?)\s*\((.+?)\)$`)

// "Name (Organization/Country)"
func resolveParen(label string) (string, string, bool) {
	if m := parenRegexp.FindStringSubmatch(label); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
	}
	return "", "", false
}

var dashRegexp = regexp.MustCompile(`^(.+?)\s*[–-]\s*(.+)$`)

// "Name - Organization"
func resolveDash(label string) (string, string, bool) {
	if m := dashRegexp.FindStringSubmatch(label); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
	}
	return "", "", false
}

// "Name, Title, Organization" - trailing clause must name a known org or country
func resolveComma(label string) (string, string, bool) {
	parts := strings.Split(label, ",")
	if len(parts) < 2 {
		return "", "", false
	}
	remaining := strings.TrimSpace(strings.Join(parts[1:], ","))
	if containsAny(remaining, orgKeywords) || containsAny(remaining, countryKeywords) {
		return strings.TrimSpace(parts[0]), remaining, true
	}
	return "", "", false
}

var colonRegexp = regexp.MustCompile(`^(.+?):\s*(.+)$`)

// "Organization: Name" - organization comes first in this pattern
func resolveColon(label string) (string, string, bool) {
	if m := colonRegexp.FindStringSubmatch(label); m != nil {
		return strings.TrimSpace(m[2]), strings.TrimSpace(m[1]), true
	}
	return "", "", false
}

var titleRegexps = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(titleKeywords))
	for _, title := range titleKeywords {
		res = append(res, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(title)+`\s+(?:of|for|from)\s+(?:the\s+)?(.+)$`))
	}
	return res
}()

// "<Title> of X" keeps the full label as name and X as representing
func resolveTitle(label string) (string, string, bool) {
	for _, re := range titleRegexps {
		if m := re.FindStringSubmatch(label); m != nil {
			org := strings.TrimSpace(m[1])
			if len(org) > 2 && (containsAny(org, countryKeywords) || containsAny(org, orgKeywords)) {
				return label, org, true
			}
		}
	}
	return "", "", false
}

// a country name inside the label
func resolveCountry(label string) (string, string, bool) {
	for _, country := range countryKeywords {
		if containsFold(label, country) {
			if containsAny(label, []string{"Minister", "Government", "Representative", "Ambassador"}) {
				return label, country + " Government", true
			}
			return label, country, true
		}
	}
	return "", "", false
}

var unRegexp = regexp.MustCompile(`\bUN\b`)

// an organization name inside the label
func resolveOrg(label string) (string, string, bool) {
	if containsFold(label, "World Bank") {
		return label, "World Bank", true
	}
	if containsFold(label, "Asian Development Bank") {
		return label, "Asian Development Bank", true
	}
	if containsFold(label, "United Nations") || unRegexp.MatchString(label) {
		if containsFold(label, "Office") {
			return label, "UN Office", true
		}
		return label, "United Nations", true
	}
	for _, org := range orgKeywords {
		if containsFold(label, org) {
			return label, org, true
		}
	}
	return "", "", false
}

// common event roles
func resolveRole(label string) (string, string, bool) {
	for _, r := range roleRepresenting {
		if containsFold(label, r.role) {
			return label, r.representing, true
		}
	}
	return "", "", false
}

var ofRegexp = regexp.MustCompile(`(?i)^(.+?)\s+of\s+(?:the\s+)?(.+)$`)

// "Name of Organization"
func resolveOf(label string) (string, string, bool) {
	if m := ofRegexp.FindStringSubmatch(label); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
	}
	return "", "", false
}

// cleanupName drops descriptive suffixes from an unresolved label
func cleanupName(label string) string {
	if i := strings.Index(label, " ("); i > 0 {
		return strings.TrimSpace(label[:i])
	}
	return label
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if containsFold(s, k) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
