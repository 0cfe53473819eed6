package strform

import (
	"regexp"
	"strings"
)

// Field cleaners ported from the converter's normalization rules. They cut
// bleed-over from neighboring boxes (age text picking up the gender column,
// MyKad numbers picking up the age column, and so on).

var (
	ageRe         = regexp.MustCompile(`(\d+\s*TAHUN)`)
	digitsRe      = regexp.MustCompile(`\D+`)
	numbersRe     = regexp.MustCompile(`\d+`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	trailingRMRe  = regexp.MustCompile(`(?i)\s*RM\s*$`)
	nonAlphaRe    = regexp.MustCompile(`[^a-zA-Z\s]`)
	doubleCommaRe = regexp.MustCompile(`,\s*,+`)
)

// cleanAge keeps only the "NN TAHUN" part of the age box.
func cleanAge(s string) string {
	if s == "" {
		return ""
	}
	if m := ageRe.FindString(strings.ToUpper(s)); m != "" {
		return m
	}
	return s
}

// stripSectionLabels removes a trailing section label that leaked into a
// value box.
func stripSectionLabels(s string) string {
	if s == "" {
		return ""
	}
	for _, label := range []string{"Pemohon", "Pasangan", "Waris", "Anak"} {
		re := regexp.MustCompile(`(?i)\s*` + label + `.*$`)
		s = re.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ","))
}

func digitsOnly(s string) string {
	if s == "" {
		return ""
	}
	return digitsRe.ReplaceAllString(s, "")
}

func stripNumbers(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(numbersRe.ReplaceAllString(s, "")), " ")
}

func stripWhitespace(s string) string {
	if s == "" {
		return ""
	}
	return whitespaceRe.ReplaceAllString(s, "")
}

func stripTrailingRM(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(trailingRMRe.ReplaceAllString(s, ""))
}

func lettersOnly(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(nonAlphaRe.ReplaceAllString(s, "")), " ")
}

// cleanGender keeps only the gender keyword; the jantina box sits next to the
// employment column and often captures both.
func cleanGender(s string) string {
	if s == "" {
		return ""
	}
	upper := strings.ToUpper(s)
	switch {
	case strings.Contains(upper, "PEREMPUAN"):
		return "PEREMPUAN"
	case strings.Contains(upper, "LELAKI"):
		return "LELAKI"
	}
	return lettersOnly(s)
}

// cleanMyKad keeps the first 12 digits before any whitespace.
func cleanMyKad(s string) string {
	if s == "" {
		return ""
	}
	fields := strings.Fields(s)
	first := s
	if len(fields) > 0 {
		first = fields[0]
	}
	digits := digitsOnly(first)
	if len(digits) > 12 {
		return digits[:12]
	}
	return digits
}

// stateVariations maps a Malaysian state to spellings that count as the same
// state when checking whether an address already names it.
var stateVariations = map[string][]string{
	"W.P.":                 {"WILAYAH PERSEKUTUAN", "WP", "W.P.", "W.P"},
	"WILAYAH PERSEKUTUAN":  {"W.P.", "WP", "WILAYAH PERSEKUTUAN"},
	"KUALA LUMPUR":         {"KL", "K.L.", "KUALA LUMPUR"},
	"SELANGOR":             {"SELANGOR", "SEL"},
	"PULAU PINANG":         {"PULAU PINANG", "PENANG", "P.PINANG"},
	"JOHOR":                {"JOHOR", "JHR"},
	"MELAKA":               {"MELAKA", "MALACCA", "MLK"},
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stateInAddress reports whether the state (or a known variant) already
// appears in the address.
func stateInAddress(state, address string) bool {
	if state == "" || address == "" {
		return false
	}
	stateNorm := normalizeSpace(strings.ToUpper(state))
	addrNorm := normalizeSpace(strings.ToUpper(address))

	if strings.Contains(addrNorm, stateNorm) {
		return true
	}
	for key, variants := range stateVariations {
		if !strings.Contains(stateNorm, key) {
			continue
		}
		for _, v := range variants {
			if strings.Contains(addrNorm, v) {
				return true
			}
		}
	}

	stateWords := strings.Fields(stateNorm)
	addrWords := make(map[string]struct{})
	for _, w := range strings.Fields(addrNorm) {
		addrWords[w] = struct{}{}
	}
	overlap := 0
	for _, w := range stateWords {
		if _, ok := addrWords[w]; ok {
			overlap++
		}
	}
	return overlap*2 >= len(stateWords)
}

// combineAddress merges the street address with postal code, district and
// state, skipping parts the address already contains.
func combineAddress(alamat, poskod, bandar, negeri string) string {
	addrUpper := normalizeSpace(strings.ToUpper(alamat))

	poskodClean := digitsOnly(poskod)
	bandarClean := stripNumbers(bandar)
	negeriClean := stripSectionLabels(negeri)

	var extra []string
	if poskodClean != "" && !strings.Contains(addrUpper, poskodClean) {
		extra = append(extra, poskodClean)
	}
	if bandarClean != "" {
		bandarNorm := normalizeSpace(strings.ToUpper(bandarClean))
		if !strings.Contains(addrUpper, bandarNorm) && !halfWordsPresent(bandarNorm, addrUpper) {
			extra = append(extra, bandarClean)
		}
	}
	if negeriClean != "" && !stateInAddress(negeriClean, alamat) {
		extra = append(extra, negeriClean)
	}

	parts := make([]string, 0, 1+len(extra))
	if alamat != "" {
		parts = append(parts, alamat)
	}
	parts = append(parts, extra...)

	combined := strings.Join(parts, ", ")
	combined = stripSectionLabels(combined)
	combined = doubleCommaRe.ReplaceAllString(combined, ",")
	combined = normalizeSpace(combined)
	return strings.TrimSpace(strings.Trim(combined, ","))
}

// halfWordsPresent reports whether at least half of a's words occur in b.
func halfWordsPresent(a, b string) bool {
	aWords := strings.Fields(a)
	if len(aWords) == 0 {
		return false
	}
	bWords := make(map[string]struct{})
	for _, w := range strings.Fields(b) {
		bWords[w] = struct{}{}
	}
	hits := 0
	for _, w := range aWords {
		if _, ok := bWords[w]; ok {
			hits++
		}
	}
	return hits*2 >= len(aWords)
}
