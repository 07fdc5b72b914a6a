package policy

import "strings"

// exclusionFamilies expands each configured exclusion phrase into the
// keyword family it belongs to, so that free-text bill items and diagnoses
// match even when they never quote the phrase verbatim.
var exclusionFamilies = map[string][]string{
	"cosmetic":       {"cosmetic", "beauty", "whitening", "aesthetic"},
	"weight loss":    {"weight loss", "slimming", "obesity treatment", "bariatric"},
	"infertility":    {"infertility", "ivf", "fertility"},
	"experimental":   {"experimental", "trial", "investigational"},
	"self inflicted": {"self-inflicted", "suicide attempt"},
	"vitamins":       {"vitamin", "supplement", "multivitamin"},
}

// IsExcluded reports whether the text falls under any configured exclusion.
// Matching is three-tiered: the exclusion phrase itself as a substring, then
// the keyword family whose label appears in the phrase, then a broad scan of
// every family keyword and the first token of multi-word keywords. The broad
// tier over-matches on purpose (e.g. "trial" flags experimental care).
func (c *Configuration) IsExcluded(text string) bool {
	t := strings.ToLower(text)
	for _, excl := range c.doc.Exclusions {
		phrase := strings.ToLower(excl)
		if strings.Contains(t, phrase) {
			return true
		}
		normalized := normalizeLabel(phrase)
		for family, keywords := range exclusionFamilies {
			if !strings.Contains(normalized, family) {
				continue
			}
			for _, kw := range keywords {
				if strings.Contains(t, kw) {
					return true
				}
			}
		}
		for _, keywords := range exclusionFamilies {
			for _, kw := range keywords {
				if strings.Contains(t, kw) {
					return true
				}
				if first, _, ok := strings.Cut(kw, " "); ok && strings.Contains(t, first) {
					return true
				}
			}
		}
	}
	return false
}

// normalizeLabel folds underscore and hyphen spellings so "self_inflicted",
// "self-inflicted" and "self inflicted" all name the same family.
func normalizeLabel(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	return strings.ReplaceAll(s, "-", " ")
}
