package feature

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again against all am an and any are as at be
because been before being below between both but by can could did do does doing down during each
few for from further had has have having he her here hers herself him himself his how i if in into
is it its itself just me more most my myself no nor not now of off on once only or other our ours
ourselves out over own same she should so some such than that the their theirs them themselves then
there these they this those through to too under until up very was we were what when where which
while who whom why will with would you your yours yourself yourselves etc e g ie must able using
use work working within across via per also well new`) {
		stopWords[w] = struct{}{}
	}
}

// singleRuneTerms survive the minimum token length rule.
var singleRuneTerms = map[string]struct{}{"c": {}, "r": {}}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#'
}

// Tokens splits text into lower-case words with stop words and one-letter noise removed.
func Tokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !isTokenRune(r) })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		// keep c++ and c#, drop bare operators
		f = strings.TrimLeft(f, "+#")
		if f == "" {
			continue
		}
		if len([]rune(f)) < 2 {
			if _, ok := singleRuneTerms[f]; !ok {
				continue
			}
		}
		if _, ok := stopWords[f]; ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Terms returns the unigrams followed by the bigrams of consecutive kept tokens. Bigrams never
// span a line break, so fields joined by JobDocument and CandidateDocument stay apart.
func Terms(text string) []string {
	var unigrams, bigrams []string
	for _, line := range strings.Split(text, "\n") {
		toks := Tokens(line)
		unigrams = append(unigrams, toks...)
		for i := 0; i+1 < len(toks); i++ {
			bigrams = append(bigrams, toks[i]+" "+toks[i+1])
		}
	}
	if len(unigrams) == 0 {
		return nil
	}
	return append(unigrams, bigrams...)
}
