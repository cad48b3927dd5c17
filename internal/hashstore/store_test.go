package hashstore

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/EvoluTechs/riftcollect/internal/database/testutil"
	"github.com/EvoluTechs/riftcollect/internal/imagehash"
	"github.com/EvoluTechs/riftcollect/internal/models"
)

func writeAsset(t *testing.T, root string, card models.CardRecord, filename string, shade uint8) string {
	t.Helper()

	dir := filepath.Join(root, card.SetCode, card.ID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, filename)

	img := image.NewRGBA(image.Rect(0, 0, 36, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 36; x++ {
			v := uint8(int(shade) + x*3)
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestRefreshComputesAndPersists(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	root := t.TempDir()

	cards := []models.CardRecord{
		{ID: "OGN-001", SetCode: "OGN", Number: 1},
		{ID: "OGN-002", SetCode: "OGN", Number: 2},
	}
	writeAsset(t, root, cards[0], "full-desk.png", 10)
	writeAsset(t, root, cards[1], "full-desk.png", 200)

	store, err := NewStore(db, imagehash.New(8), root, "full-desk.png", nil)
	require.NoError(t, err)

	entries, err := store.Refresh(context.Background(), cards)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotEmpty(t, entries["OGN-001"].Hash)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	for id, entry := range entries {
		require.Equal(t, entry.Hash, loaded[id].Hash)
		require.Equal(t, entry.SourceMTime, loaded[id].SourceMTime)
	}
}

func TestRefreshReusesHashWhenMTimeUnchanged(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	root := t.TempDir()

	card := models.CardRecord{ID: "OGN-001", SetCode: "OGN", Number: 1}
	writeAsset(t, root, card, "full-desk.png", 10)

	store, err := NewStore(db, imagehash.New(8), root, "full-desk.png", nil)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = store.Refresh(ctx, []models.CardRecord{card})
	require.NoError(t, err)

	// Plant a sentinel hash: if the refresh recomputes, it will be replaced.
	require.NoError(t, db.Model(&models.HashEntry{}).
		Where("card_id = ?", card.ID).
		Update("hash", "sentinel").Error)

	entries, err := store.Refresh(ctx, []models.CardRecord{card})
	require.NoError(t, err)
	require.Equal(t, "sentinel", entries["OGN-001"].Hash)
}

func TestRefreshRecomputesWhenMTimeChanges(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	root := t.TempDir()

	card := models.CardRecord{ID: "OGN-001", SetCode: "OGN", Number: 1}
	path := writeAsset(t, root, card, "full-desk.png", 10)

	store, err := NewStore(db, imagehash.New(8), root, "full-desk.png", nil)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := store.Refresh(ctx, []models.CardRecord{card})
	require.NoError(t, err)

	newTime := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, newTime, newTime))

	second, err := store.Refresh(ctx, []models.CardRecord{card})
	require.NoError(t, err)

	require.Equal(t, first["OGN-001"].Hash, second["OGN-001"].Hash, "same pixels, same hash")
	require.NotEqual(t, first["OGN-001"].SourceMTime, second["OGN-001"].SourceMTime)
}

func TestRefreshDropsUnresolvableAssets(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	root := t.TempDir()

	kept := models.CardRecord{ID: "OGN-001", SetCode: "OGN", Number: 1}
	gone := models.CardRecord{ID: "OGN-002", SetCode: "OGN", Number: 2}
	path := writeAsset(t, root, gone, "full-desk.png", 60)
	writeAsset(t, root, kept, "full-desk.png", 10)

	store, err := NewStore(db, imagehash.New(8), root, "full-desk.png", nil)
	require.NoError(t, err)

	ctx := context.Background()
	entries, err := store.Refresh(ctx, []models.CardRecord{kept, gone})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, os.Remove(path))

	entries, err = store.Refresh(ctx, []models.CardRecord{kept, gone})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries, "OGN-001")

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotContains(t, loaded, "OGN-002", "stale entries are not retained")
}

func TestRefreshSurvivesCorruptAsset(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	root := t.TempDir()

	good := models.CardRecord{ID: "OGN-001", SetCode: "OGN", Number: 1}
	bad := models.CardRecord{ID: "OGN-002", SetCode: "OGN", Number: 2}
	writeAsset(t, root, good, "full-desk.png", 10)

	dir := filepath.Join(root, bad.SetCode, bad.ID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "full-desk.png"), []byte("not an image"), 0o644))

	store, err := NewStore(db, imagehash.New(8), root, "full-desk.png", nil)
	require.NoError(t, err)

	entries, err := store.Refresh(context.Background(), []models.CardRecord{good, bad})
	require.Error(t, err, "decode failure is reported")
	require.Len(t, entries, 1, "but the good entry is still refreshed")
	require.Contains(t, entries, "OGN-001")
}
