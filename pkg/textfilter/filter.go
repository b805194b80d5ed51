// Package textfilter softens generated text for family-friendly play.
package textfilter

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// replacements maps words that are too strong for family play to milder
// ones. Keys are lowercase.
var replacements = map[string]string{
	// profanity
	"fuck":     "fudge",
	"shit":     "shoot",
	"damn":     "dang",
	"goddamn":  "gosh-dang",
	"hell":     "heck",
	"ass":      "butt",
	"asshole":  "jerk",
	"bitch":    "jerk",
	"bastard":  "jerk",
	"crap":     "crud",
	"bullshit": "baloney",

	// gore
	"gore":        "grime",
	"gory":        "grim",
	"entrail":     "remain",
	"viscera":     "remains",
	"disembowel":  "maul",
	"eviscerate":  "maul",
	"decapitate":  "strike down",
	"dismember":   "tear apart",
	"mutilate":    "maim",
	"bloodsoaked": "stained",
}

// Filter replaces strong words with milder ones, preserving case and
// simple plurals.
type Filter struct {
	re *regexp.Regexp
}

// New compiles the filter.
func New() *Filter {
	words := make([]string, 0, len(replacements))
	for w := range replacements {
		words = append(words, regexp.QuoteMeta(w))
	}
	// Longest first so "asshole" wins over "ass".
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	return &Filter{
		re: regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)(s?)\b`),
	}
}

// Apply returns text with every filtered word replaced.
func (f *Filter) Apply(text string) string {
	return f.re.ReplaceAllStringFunc(text, func(match string) string {
		m := f.re.FindStringSubmatch(match)
		word, plural := m[1], m[2]
		out := preserveCase(word, replacements[strings.ToLower(word)])
		if plural != "" {
			out += preserveCase(plural, "s")
		}
		return out
	})
}

// Flagged reports whether text contains any filtered word.
func (f *Filter) Flagged(text string) bool {
	return f.re.MatchString(text)
}

// preserveCase applies the case pattern of original to replacement.
func preserveCase(original, replacement string) string {
	switch {
	case original == "":
		return replacement
	case strings.ToUpper(original) == original:
		return strings.ToUpper(replacement)
	case strings.ToLower(original) == original:
		return strings.ToLower(replacement)
	}

	caser := cases.Title(language.English)
	if caser.String(strings.ToLower(original)) == original {
		return caser.String(replacement)
	}

	// Mixed case: copy the pattern rune by rune.
	orig := []rune(original)
	out := []rune(replacement)
	for i, r := range out {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out[i] = unicode.ToUpper(r)
		} else {
			out[i] = unicode.ToLower(r)
		}
	}
	return string(out)
}
