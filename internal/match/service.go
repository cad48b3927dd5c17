// Package match resolves a photographed card to ranked catalog candidates
// using perceptual fingerprints.
package match

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/EvoluTechs/riftcollect/internal/hashstore"
	"github.com/EvoluTechs/riftcollect/internal/imagehash"
	"github.com/EvoluTechs/riftcollect/internal/models"
)

// ErrNoCandidates indicates the narrowed candidate set is empty. Callers
// surface it as a zero-match result, not a failure.
var ErrNoCandidates = errors.New("match: no candidates in scope")

const defaultLimit = 5

// Candidate is one ranked match.
type Candidate struct {
	CardID    string `json:"card_id"`
	Distance  int    `json:"distance"`
	Confident bool   `json:"confident"`
}

// Service ranks catalog cards against an inbound photo.
type Service struct {
	db        *gorm.DB
	store     *hashstore.Store
	hasher    imagehash.Hasher
	threshold int
	log       *zap.Logger
}

// NewService constructs the match service. threshold is the maximum distance
// still considered a confident match; it comes from configuration rather
// than being hard-coded.
func NewService(db *gorm.DB, store *hashstore.Store, hasher imagehash.Hasher, threshold int, log *zap.Logger) (*Service, error) {
	if db == nil {
		return nil, errors.New("match: db is required")
	}
	if store == nil {
		return nil, errors.New("match: hash store is required")
	}
	if threshold <= 0 {
		threshold = 10
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{db: db, store: store, hasher: hasher, threshold: threshold, log: log}, nil
}

// Match fingerprints the uploaded image and returns up to k candidates
// ordered by ascending distance, ties broken by card id. setCode optionally
// narrows the search to one expansion.
func (s *Service) Match(ctx context.Context, r io.Reader, setCode string, k int) ([]Candidate, error) {
	fingerprint, err := s.hasher.DecodeAndHash(r)
	if err != nil {
		return nil, err
	}

	if k <= 0 {
		k = defaultLimit
	}

	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}

	setCode = strings.ToUpper(strings.TrimSpace(setCode))

	candidates := make([]Candidate, 0, len(entries))
	for cardID, entry := range entries {
		if setCode != "" {
			cardSet, _, _, ok := models.SplitCardID(cardID)
			if !ok || cardSet != setCode {
				continue
			}
		}

		distance := imagehash.Distance(fingerprint, entry.Hash)
		candidates = append(candidates, Candidate{
			CardID:    cardID,
			Distance:  distance,
			Confident: distance <= s.threshold,
		})
	}

	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].CardID < candidates[j].CardID
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// entries loads the fingerprint cache, refreshing it once from the catalog
// when it is empty so a cold start can still identify cards.
func (s *Service) entries(ctx context.Context) (map[string]models.HashEntry, error) {
	entries, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		return entries, nil
	}

	var cards []models.CardRecord
	if err := s.db.WithContext(ctx).Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("match: list cards: %w", err)
	}
	if len(cards) == 0 {
		return entries, nil
	}

	s.log.Info("fingerprint cache empty, refreshing", zap.Int("cards", len(cards)))
	entries, err = s.store.Refresh(ctx, cards)
	if err != nil && len(entries) == 0 {
		return nil, err
	}
	return entries, nil
}
