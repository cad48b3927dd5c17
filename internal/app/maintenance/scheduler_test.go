package maintenance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EvoluTechs/riftcollect/internal/catalog"
	"github.com/EvoluTechs/riftcollect/internal/database/testutil"
	"github.com/EvoluTechs/riftcollect/internal/hashstore"
	"github.com/EvoluTechs/riftcollect/internal/imagehash"
	"github.com/EvoluTechs/riftcollect/internal/models"
)

type stubOrigin struct {
	catalog catalog.OriginCatalog
	calls   int
}

func (s *stubOrigin) FetchCatalog(context.Context) (catalog.OriginCatalog, error) {
	s.calls++
	return s.catalog, nil
}

func TestRunOnceSyncsAndRefreshes(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	origin := &stubOrigin{catalog: catalog.OriginCatalog{
		Expansions: map[string]catalog.CardPayload{
			"OGN": {"name": "Origins"},
		},
		Cards: map[string]catalog.CardPayload{
			"OGN-001": {"name": "Flame Herald", "rarity": "rare"},
		},
	}}

	cat, err := catalog.NewService(db, catalog.WithOrigin(origin))
	require.NoError(t, err)

	store, err := hashstore.NewStore(db, imagehash.New(8), t.TempDir(), "full-desk.jpg", nil)
	require.NoError(t, err)

	sched := NewScheduler(cat, store)
	require.NoError(t, sched.RunOnce(context.Background()))
	require.Equal(t, 1, origin.calls)

	var card models.CardRecord
	require.NoError(t, db.First(&card, "id = ?", "OGN-001").Error)
	require.Equal(t, "Flame Herald", card.Name)
}

func TestRunOnceSkipsMissingDependencies(t *testing.T) {
	sched := NewScheduler(nil, nil)
	require.False(t, sched.enabled)
	require.NoError(t, sched.RunOnce(context.Background()))
	require.NoError(t, sched.Start())
}

func TestStartRegistersJobs(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	cat, err := catalog.NewService(db, catalog.WithOrigin(&stubOrigin{}))
	require.NoError(t, err)

	sched := NewScheduler(cat, nil, WithSyncSchedule("@daily"))
	require.NoError(t, sched.Start())
	<-sched.Stop().Done()
}
