package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"github.com/EvoluTechs/riftcollect/internal/database/testutil"
)

func TestOriginClientFetchCatalog(t *testing.T) {
	client := NewOriginClient("https://origin.example.com", 5*time.Second)

	httpmock.ActivateNonDefault(client.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://origin.example.com/catalog.json",
		httpmock.NewStringResponder(200, `{
			"expansions": {"OGN": {"nom": "Origines", "release_date": "2024-10-01"}},
			"cards": {"OGN-001": {"nom": "Dragon of the Rift", "rarete": "légendaire", "couleur": "fureur"}}
		}`))

	doc, err := client.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Cards, 1)
	require.Len(t, doc.Expansions, 1)
}

func TestOriginClientRejectsNon200(t *testing.T) {
	client := NewOriginClient("https://origin.example.com", 5*time.Second)

	httpmock.ActivateNonDefault(client.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://origin.example.com/catalog.json",
		httpmock.NewStringResponder(503, "maintenance"))

	_, err := client.FetchCatalog(context.Background())
	require.Error(t, err)
}

func TestSyncFromOriginNormalizesLegacyAliases(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	origin := &fakeOrigin{doc: OriginCatalog{
		Expansions: map[string]CardPayload{"ogn": {"nom": "Origines"}},
		Cards: map[string]CardPayload{
			"OGN-001":  {"nom": "Dragon of the Rift", "rarete": "légendaire", "couleur": "fureur", "type": "Unit"},
			"bad card": {"nom": "Malformed"},
		},
	}}

	svc, err := NewService(db, WithOrigin(origin))
	require.NoError(t, err)

	cards, expansions, err := svc.SyncFromOrigin(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, cards, "malformed ids are skipped, not fatal")
	require.Equal(t, 1, expansions)

	stored, err := svc.GetByID(context.Background(), "OGN-001")
	require.NoError(t, err)
	require.Equal(t, "Dragon of the Rift", stored.Name)
	require.Equal(t, RarityLegendary, stored.Rarity)
	require.Equal(t, ColorFury, stored.Color)
	require.Equal(t, "unit", stored.CardType)
	require.Equal(t, 1, stored.Number)
}
