package export

import (
	"path"
	"regexp"
	"strings"

	"github.com/arbovm/levenshtein"
)

var (
	participantPattern = regexp.MustCompile(`(?i)^(p\d+|participant\w*)$`)
	conditionPattern   = regexp.MustCompile(`(?i)^(neutral|physical|cognitive|condition\w*)$`)
)

// knownConditions are the condition words a misspelled token may be matched against
var knownConditions = []string{"neutral", "physical", "cognitive"}

// fuzzyMinLength keeps short tokens like "pain" from matching a condition by accident
const fuzzyMinLength = 5

// Condition match kinds
const (
	MatchExact = "exact"
	MatchFuzzy = "fuzzy"
)

// FilenameMetadata is an advisory guess at study metadata encoded in a filename
type FilenameMetadata struct {
	Tokens               []string `json:"tokens"`
	PotentialParticipant *string  `json:"potential_participant"`
	PotentialCondition   *string  `json:"potential_condition"`
	ConditionMatch       string   `json:"condition_match,omitempty"`
}

// ParseFilename splits a filename on "_" and "-" and looks for participant and condition tokens.
// It never fails; fields without a match stay nil.
func ParseFilename(filename string) FilenameMetadata {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}

	tokens := strings.FieldsFunc(strings.ToLower(base), func(r rune) bool {
		return r == '_' || r == '-'
	})
	meta := FilenameMetadata{Tokens: make([]string, 0, len(tokens))}
	meta.Tokens = append(meta.Tokens, tokens...)

	for _, tok := range tokens {
		if participantPattern.MatchString(tok) {
			meta.PotentialParticipant = stringPtr(tok)
			break
		}
	}
	for _, tok := range tokens {
		if conditionPattern.MatchString(tok) {
			meta.PotentialCondition = stringPtr(tok)
			meta.ConditionMatch = MatchExact
			return meta
		}
	}
	for _, tok := range tokens {
		if cond, ok := fuzzyCondition(tok); ok {
			meta.PotentialCondition = stringPtr(cond)
			meta.ConditionMatch = MatchFuzzy
			return meta
		}
	}
	return meta
}

// fuzzyCondition matches a token within one edit of a known condition
func fuzzyCondition(token string) (string, bool) {
	if len(token) < fuzzyMinLength {
		return "", false
	}
	for _, cond := range knownConditions {
		if levenshtein.Distance(token, cond) <= 1 {
			return cond, true
		}
	}
	return "", false
}

func stringPtr(s string) *string {
	return &s
}
