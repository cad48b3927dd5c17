package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeToken(t *testing.T) {
	require.Equal(t, "legendaire", NormalizeToken("Légendaire"))
	require.Equal(t, "peu commune", NormalizeToken("  Peu_Commune "))
	require.Equal(t, "ultra rare", NormalizeToken("ULTRA--RARE"))
	require.Equal(t, "epique", NormalizeToken("Épique"))
}

func TestCanonicalRarityResolvesSynonyms(t *testing.T) {
	inputs := []string{"légendaire", "legendaire", "LEGENDARY", " legendary ", "L"}
	for _, in := range inputs {
		require.Equal(t, RarityLegendary, CanonicalRarity(in), "input %q", in)
	}

	require.Equal(t, RarityUncommon, CanonicalRarity("Peu Commune"))
	require.Equal(t, RarityEpic, CanonicalRarity("Épique"))
}

func TestCanonicalRarityUnknownPassesThroughNormalized(t *testing.T) {
	require.Equal(t, "promo", CanonicalRarity(" PROMO "))
}

func TestCanonicalColorResolvesSynonyms(t *testing.T) {
	require.Equal(t, ColorFury, CanonicalColor("Fureur"))
	require.Equal(t, ColorFury, CanonicalColor("ROUGE"))
	require.Equal(t, ColorMind, CanonicalColor("bleu"))
	require.Equal(t, ColorCalm, CanonicalColor("Calme"))
}

func TestRarityMatchTermsIncludeAllSynonyms(t *testing.T) {
	terms := RarityMatchTerms("légendaire")
	require.Contains(t, terms, "legendary")
	require.Contains(t, terms, "legendaire")
	require.Contains(t, terms, "l")
}

func TestMatchTermsForUnknownBucket(t *testing.T) {
	require.Equal(t, []string{"promo"}, RarityMatchTerms("Promo"))
}
