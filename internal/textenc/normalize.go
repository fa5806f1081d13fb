// Package textenc repairs mojibake in inbound text before it reaches the
// dispatch path. A string is either returned untouched or replaced by a
// strictly better whole-string repair; there are no partial rewrites.
package textenc

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// NormalizationError reports text that still looks corrupted after repair
// was attempted, used only in strict mode.
type NormalizationError struct {
	FieldPath string
	Sample    string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("invalid text encoding at %s", e.FieldPath)
}

// mojibakeMarkers are characters that show up when UTF-8 bytes were
// mis-decoded through a single-byte codepage.
var mojibakeMarkers = []string{"Ã", "Â", "æ", "ç", "å", "ä", "é", "è", "ê", "ô", "ö", "ï", "ð"}

var repairSources = []*charmap.Charmap{charmap.ISO8859_1, charmap.Windows1252}

// NormalizeText returns value unchanged when it looks healthy, a repaired
// string when a re-decode scores better, and in strict mode an error when
// the text looks corrupted and no repair improves it.
func NormalizeText(value, fieldPath string, strict bool) (string, error) {
	if value == "" {
		return value, nil
	}

	if !looksMojibake(value) {
		return value, nil
	}

	if repaired, ok := repairText(value); ok && qualityScore(repaired) > qualityScore(value) {
		return repaired, nil
	}

	if strict {
		return "", &NormalizationError{FieldPath: fieldPath, Sample: sample(value)}
	}
	return value, nil
}

// NormalizeStringMap normalizes every value of a metadata map. Keys are
// left alone.
func NormalizeStringMap(values map[string]string, fieldPath string, strict bool) (map[string]string, error) {
	if values == nil {
		return nil, nil
	}

	normalized := make(map[string]string, len(values))
	for key, current := range values {
		v, err := NormalizeText(current, fieldPath+"."+key, strict)
		if err != nil {
			return nil, err
		}
		normalized[key] = v
	}
	return normalized, nil
}

func looksMojibake(value string) bool {
	if strings.ContainsRune(value, utf8.RuneError) {
		return true
	}
	if controlCharCount(value) > 0 {
		return true
	}
	hits := 0
	for _, marker := range mojibakeMarkers {
		hits += strings.Count(value, marker)
	}
	return hits >= 2
}

// controlCharCount counts C1 control characters, which never appear in
// healthy text but are common fallout of codepage mis-decodes.
func controlCharCount(value string) int {
	count := 0
	for _, r := range value {
		if r >= 0x80 && r <= 0x9F {
			count++
		}
	}
	return count
}

// repairText re-encodes the string through each candidate codepage and
// keeps the best strictly-improving UTF-8 re-decode.
func repairText(value string) (string, bool) {
	best := value
	bestScore := qualityScore(value)
	for _, source := range repairSources {
		candidate, ok := tryDecode(value, source)
		if !ok || candidate == value {
			continue
		}
		if score := qualityScore(candidate); score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	if best == value {
		return "", false
	}
	return best, true
}

// tryDecode reverses one mis-decode: encode the string back to the
// single-byte codepage it was wrongly read as, then reinterpret those
// bytes as UTF-8. Fails when the string does not round-trip.
func tryDecode(value string, source *charmap.Charmap) (string, bool) {
	raw, err := source.NewEncoder().Bytes([]byte(value))
	if err != nil {
		return "", false
	}
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

// qualityScore ranks candidate decodings: CJK text and printable runes
// score up, control characters, replacement runes and mojibake markers
// score down.
func qualityScore(value string) float64 {
	cjk := 0
	printable := 0
	replacement := 0
	for _, r := range value {
		if r >= '一' && r <= '龿' {
			cjk++
		}
		if !unicode.IsControl(r) {
			printable++
		}
		if r == utf8.RuneError {
			replacement++
		}
	}
	markerHits := 0
	for _, marker := range mojibakeMarkers {
		markerHits += strings.Count(value, marker)
	}
	return float64(cjk)*6.0 +
		float64(printable)*0.05 -
		float64(controlCharCount(value))*8.0 -
		float64(replacement)*12.0 -
		float64(markerHits)*2.0
}

func sample(value string) string {
	runes := []rune(value)
	if len(runes) <= 80 {
		return value
	}
	return string(runes[:80])
}
