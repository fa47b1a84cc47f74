package intent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/coregx/ahocorasick"
	"github.com/orsinium-labs/stopwords"

	"persona-chatter/internal/persona"
)

type triggerKind int

const (
	triggerBack triggerKind = iota
	triggerSwitch
	triggerBecome
)

type trigger struct {
	phrase string
	kind   triggerKind
}

// Ordered by priority; a lower index wins when several triggers match.
var triggers = []trigger{
	{"back to ", triggerBack},
	{"switch to ", triggerSwitch},
	{"act like my ", triggerBecome},
	{"act like an ", triggerBecome},
	{"act like a ", triggerBecome},
	{"act as my ", triggerBecome},
	{"act as an ", triggerBecome},
	{"act as a ", triggerBecome},
	{"act like ", triggerBecome},
	{"act as ", triggerBecome},
	{"be my ", triggerBecome},
	{"be an ", triggerBecome},
	{"be a ", triggerBecome},
}

// Words and phrases allowed between the start of a clause and a trigger,
// as in "now act like an investor" or "could you be my mentor".
var leadWords = map[string]bool{
	"now": true, "please": true, "ok": true, "okay": true, "and": true,
	"so": true, "then": true, "hey": true, "just": true, "alright": true,
}

var leadPhrases = [][]string{
	{"can", "you"},
	{"could", "you"},
	{"would", "you"},
	{"will", "you"},
	{"i", "want", "you", "to"},
	{"i'd", "like", "you", "to"},
	{"let's"},
}

const clauseBreaks = ".!?,;:\n"

// KeywordClassifier recognises explicit trigger phrases such as
// "act like my mentor" or "back to investor". A trigger only counts at the
// start of a clause, so "I will be an hour late" is not a request.
type KeywordClassifier struct {
	ac        *ahocorasick.Automaton
	stopwords *stopwords.Stopwords
}

func NewKeywordClassifier() (*KeywordClassifier, error) {
	patterns := make([]string, len(triggers))
	for i, t := range triggers {
		patterns[i] = t.phrase
	}
	ac, err := ahocorasick.NewBuilder().AddStrings(patterns).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build trigger automaton: %w", err)
	}
	return &KeywordClassifier{ac: ac, stopwords: stopwords.MustGet("en")}, nil
}

type candidate struct {
	pattern int
	start   int
	end     int
}

func (k *KeywordClassifier) Classify(_ context.Context, message string, known []string) Decision {
	lower := strings.ToLower(message)
	if strings.TrimSpace(lower) == "" {
		return Continue{}
	}

	var cands []candidate
	for _, m := range k.ac.FindAllOverlapping([]byte(lower)) {
		if m.Start > 0 && isWordByte(lower[m.Start-1]) {
			continue
		}
		if !opensClause(lower[:m.Start]) {
			continue
		}
		cands = append(cands, candidate{pattern: m.PatternID, start: m.Start, end: m.End})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].pattern != cands[j].pattern {
			return cands[i].pattern < cands[j].pattern
		}
		return cands[i].start < cands[j].start
	})

	set := make(map[string]bool, len(known))
	for _, n := range known {
		set[persona.Normalize(n)] = true
	}

	for _, c := range cands {
		name, clause := k.nameAfter(lower[c.end:])
		if name == "" {
			continue
		}
		if set[name] {
			return SwitchTo{Name: name}
		}
		if triggers[c.pattern].kind != triggerBecome {
			return Continue{}
		}
		return CreateNew{Name: name, Description: clause}
	}
	return Continue{}
}

// nameAfter returns the first non-stopword token of the clause following a
// trigger, and the clause itself.
func (k *KeywordClassifier) nameAfter(rest string) (string, string) {
	if i := strings.IndexAny(rest, clauseBreaks); i >= 0 {
		rest = rest[:i]
	}
	clause := strings.TrimSpace(rest)
	tokens := strings.FieldsFunc(clause, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_')
	})
	for _, tok := range tokens {
		if k.stopwords.Contains(tok) {
			continue
		}
		if persona.ValidName(tok) {
			return tok, clause
		}
		return "", ""
	}
	return "", ""
}

// opensClause reports whether the text before a trigger, back to the last
// clause break, is empty or made only of lead-in words.
func opensClause(before string) bool {
	if i := strings.LastIndexAny(before, clauseBreaks); i >= 0 {
		before = before[i+1:]
	}
	words := strings.Fields(strings.ReplaceAll(before, "’", "'"))
	for len(words) > 0 {
		if leadWords[words[0]] {
			words = words[1:]
			continue
		}
		n := leadPhraseLen(words)
		if n == 0 {
			return false
		}
		words = words[n:]
	}
	return true
}

func leadPhraseLen(words []string) int {
	for _, p := range leadPhrases {
		if len(words) < len(p) {
			continue
		}
		match := true
		for i, w := range p {
			if words[i] != w {
				match = false
				break
			}
		}
		if match {
			return len(p)
		}
	}
	return 0
}

func isWordByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b >= 0x80
}
