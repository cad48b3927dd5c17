package catalog

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Filter vocabulary arrives from many sources: origin payloads, crawler
// metadata and user input, in mixed languages and spellings. Every raw value
// is folded to one canonical bucket; filtering then matches any synonym of
// that bucket so rows ingested with legacy spellings still match.

var separatorPattern = regexp.MustCompile(`[\s_\-]+`)

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeToken lower-cases a raw vocabulary value, folds accents and
// collapses separator runs to single spaces.
func NormalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if folded, _, err := transform.String(accentFolder, s); err == nil {
		s = folded
	}
	return separatorPattern.ReplaceAllString(s, " ")
}

// Canonical rarity buckets.
const (
	RarityCommon    = "common"
	RarityUncommon  = "uncommon"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// Canonical color buckets (domain identities plus their French labels, which
// the origin site uses interchangeably).
const (
	ColorCalm  = "calm"
	ColorChaos = "chaos"
	ColorFury  = "fury"
	ColorMind  = "mind"
	ColorBody  = "body"
	ColorOrder = "order"
)

var raritySynonyms = map[string][]string{
	RarityCommon:    {"common", "commune", "c"},
	RarityUncommon:  {"uncommon", "inhabituelle", "peu commune", "uc"},
	RarityRare:      {"rare", "r"},
	RarityEpic:      {"epic", "epique", "e"},
	RarityLegendary: {"legendary", "legendaire", "l"},
}

var colorSynonyms = map[string][]string{
	ColorCalm:  {"calm", "calme", "green", "vert"},
	ColorChaos: {"chaos", "purple", "violet"},
	ColorFury:  {"fury", "fureur", "red", "rouge"},
	ColorMind:  {"mind", "esprit", "blue", "bleu"},
	ColorBody:  {"body", "corps", "orange"},
	ColorOrder: {"order", "ordre", "yellow", "jaune"},
}

var (
	rarityLookup = buildLookup(raritySynonyms)
	colorLookup  = buildLookup(colorSynonyms)
)

func buildLookup(synonyms map[string][]string) map[string]string {
	lookup := make(map[string]string)
	for bucket, words := range synonyms {
		lookup[bucket] = bucket
		for _, word := range words {
			lookup[NormalizeToken(word)] = bucket
		}
	}
	return lookup
}

// CanonicalRarity resolves a raw rarity value to its bucket. Unknown values
// normalize to themselves so filtering still behaves deterministically.
func CanonicalRarity(raw string) string {
	token := NormalizeToken(raw)
	if bucket, ok := rarityLookup[token]; ok {
		return bucket
	}
	return token
}

// CanonicalColor resolves a raw color value to its bucket.
func CanonicalColor(raw string) string {
	token := NormalizeToken(raw)
	if bucket, ok := colorLookup[token]; ok {
		return bucket
	}
	return token
}

// RarityMatchTerms returns every synonym of the bucket the raw value resolves
// to, including the bucket itself, for matching stored rows that still carry
// legacy spellings.
func RarityMatchTerms(raw string) []string {
	return matchTerms(CanonicalRarity(raw), raritySynonyms)
}

// ColorMatchTerms returns every synonym of the resolved color bucket.
func ColorMatchTerms(raw string) []string {
	return matchTerms(CanonicalColor(raw), colorSynonyms)
}

func matchTerms(bucket string, synonyms map[string][]string) []string {
	words, ok := synonyms[bucket]
	if !ok {
		return []string{bucket}
	}

	terms := make([]string, 0, len(words)+1)
	terms = append(terms, bucket)
	for _, word := range words {
		normalized := NormalizeToken(word)
		if normalized != bucket {
			terms = append(terms, normalized)
		}
	}
	return terms
}
