package match

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EvoluTechs/riftcollect/internal/database/testutil"
	"github.com/EvoluTechs/riftcollect/internal/hashstore"
	"github.com/EvoluTechs/riftcollect/internal/imagehash"
	"github.com/EvoluTechs/riftcollect/internal/models"
)

// cardArt paints a deterministic pseudo-random card face per seed.
func cardArt(seed uint32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 60, 42))
	state := seed
	for y := 0; y < 42; y++ {
		for x := 0; x < 60; x++ {
			state = state*1664525 + 1013904223
			v := uint8(state >> 24)
			img.Set(x, y, color.RGBA{R: v, G: 255 - v, B: v / 3, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeCardAsset(t *testing.T, root string, card models.CardRecord, img image.Image) {
	t.Helper()
	dir := filepath.Join(root, card.SetCode, card.ID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan.png"), encodePNG(t, img), 0o644))
}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	root := t.TempDir()
	hasher := imagehash.New(8)

	store, err := hashstore.NewStore(db, hasher, root, "scan.png", nil)
	require.NoError(t, err)

	svc, err := NewService(db, store, hasher, 10, nil)
	require.NoError(t, err)
	return svc, root
}

func seedCards(t *testing.T, svc *Service, root string) map[string]*image.RGBA {
	t.Helper()

	arts := map[string]*image.RGBA{
		"OGN-001": cardArt(11),
		"OGN-002": cardArt(500),
		"OGS-001": cardArt(9000),
	}

	for id, art := range arts {
		setCode, number, _, ok := models.SplitCardID(id)
		require.True(t, ok)
		card := models.CardRecord{ID: id, SetCode: setCode, Number: number}
		require.NoError(t, svc.db.Create(&card).Error)
		writeCardAsset(t, root, card, art)
	}

	_, err := svc.store.Refresh(context.Background(), allCards(t, svc))
	require.NoError(t, err)
	return arts
}

func allCards(t *testing.T, svc *Service) []models.CardRecord {
	t.Helper()
	var cards []models.CardRecord
	require.NoError(t, svc.db.Find(&cards).Error)
	return cards
}

func TestMatchRanksExactCardFirst(t *testing.T) {
	svc, root := newTestService(t)
	arts := seedCards(t, svc, root)

	got, err := svc.Match(context.Background(), bytes.NewReader(encodePNG(t, arts["OGN-002"])), "", 3)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.Equal(t, "OGN-002", got[0].CardID)
	require.Zero(t, got[0].Distance)
	require.True(t, got[0].Confident)
}

func TestMatchNarrowsToExpansion(t *testing.T) {
	svc, root := newTestService(t)
	arts := seedCards(t, svc, root)

	got, err := svc.Match(context.Background(), bytes.NewReader(encodePNG(t, arts["OGN-001"])), "ogs", 10)
	require.NoError(t, err)
	for _, candidate := range got {
		require.True(t, len(candidate.CardID) >= 3 && candidate.CardID[:3] == "OGS")
	}
}

func TestMatchEmptyScopeIsNoCandidates(t *testing.T) {
	svc, root := newTestService(t)
	arts := seedCards(t, svc, root)

	_, err := svc.Match(context.Background(), bytes.NewReader(encodePNG(t, arts["OGN-001"])), "XXX", 5)
	require.ErrorIs(t, err, ErrNoCandidates)
}

func TestMatchRejectsUndecodableImage(t *testing.T) {
	svc, root := newTestService(t)
	seedCards(t, svc, root)

	_, err := svc.Match(context.Background(), bytes.NewReader([]byte("not an image")), "", 5)
	require.Error(t, err)

	var decodeErr *imagehash.DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestMatchCapsResultsAndOrdersDeterministically(t *testing.T) {
	svc, root := newTestService(t)
	arts := seedCards(t, svc, root)

	got, err := svc.Match(context.Background(), bytes.NewReader(encodePNG(t, arts["OGN-001"])), "", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.LessOrEqual(t, got[0].Distance, got[1].Distance)
}

func TestMatchRefreshesEmptyFingerprintCache(t *testing.T) {
	svc, root := newTestService(t)

	// Seed catalog + assets but never refresh the store.
	art := cardArt(77)
	card := models.CardRecord{ID: "OGN-005", SetCode: "OGN", Number: 5}
	require.NoError(t, svc.db.Create(&card).Error)
	writeCardAsset(t, root, card, art)

	got, err := svc.Match(context.Background(), bytes.NewReader(encodePNG(t, art)), "", 5)
	require.NoError(t, err)
	require.Equal(t, "OGN-005", got[0].CardID)
}
