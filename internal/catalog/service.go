package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/EvoluTechs/riftcollect/internal/models"
	"github.com/EvoluTechs/riftcollect/internal/translate"
	"github.com/EvoluTechs/riftcollect/pkg/metrics"
)

var (
	// ErrCardNotFound indicates the requested card id has no catalog row.
	ErrCardNotFound = errors.New("catalog: card not found")
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// OriginFetcher pulls the raw catalog documents from the upstream origin.
type OriginFetcher interface {
	FetchCatalog(ctx context.Context) (OriginCatalog, error)
}

// Translator localizes card text, degrading to the original on failure.
type Translator interface {
	Translate(ctx context.Context, text string) translate.Result
}

// Service is the canonical card/expansion store. All reads and writes go
// through an injected gorm handle; there is no package-level singleton.
type Service struct {
	db         *gorm.DB
	origin     OriginFetcher
	translator Translator
	log        *zap.Logger
}

// Option customises Service construction.
type Option func(*Service)

// WithOrigin wires the origin used by SyncFromOrigin and the self-healing
// empty-cache path.
func WithOrigin(origin OriginFetcher) Option {
	return func(s *Service) { s.origin = origin }
}

// WithTranslator enables lazy localization of card descriptions on reads.
func WithTranslator(tr Translator) Option {
	return func(s *Service) { s.translator = tr }
}

// WithLogger overrides the default module logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService constructs the catalog service around a database handle.
func NewService(db *gorm.DB, opts ...Option) (*Service, error) {
	if db == nil {
		return nil, errors.New("catalog: db is required")
	}

	s := &Service{db: db, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Filters narrows a catalog search. Empty fields are ignored.
type Filters struct {
	Query    string
	Rarity   string
	Color    string
	CardType string
	Set      string
}

func (f Filters) empty() bool {
	return f.Query == "" && f.Rarity == "" && f.Color == "" && f.CardType == "" && f.Set == ""
}

// Search returns one page of matching cards plus the total match count.
// A filterless query that finds an empty cache triggers one synchronization
// pass against the origin and retries exactly once.
func (s *Service) Search(ctx context.Context, filters Filters, page, pageSize int) ([]models.CardRecord, int64, error) {
	metrics.CatalogSearches.Inc()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.searchOnce(ctx, filters, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	if total == 0 && filters.empty() && s.origin != nil {
		s.log.Info("catalog empty, running recovery sync")
		if _, _, syncErr := s.SyncFromOrigin(ctx); syncErr != nil {
			s.log.Warn("recovery sync failed", zap.Error(syncErr))
			return items, total, nil
		}
		return s.searchOnce(ctx, filters, page, pageSize)
	}

	return items, total, nil
}

func (s *Service) searchOnce(ctx context.Context, filters Filters, page, pageSize int) ([]models.CardRecord, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.CardRecord{})

	if q := strings.TrimSpace(filters.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(id) LIKE ?)", pattern, pattern)
	}

	if filters.Rarity != "" {
		query = whereVocabulary(query, "rarity", RarityMatchTerms(filters.Rarity))
	}

	if filters.Color != "" {
		query = whereVocabulary(query, "color", ColorMatchTerms(filters.Color))
	}

	if filters.CardType != "" {
		query = query.Where("card_type = ?", NormalizeToken(filters.CardType))
	}

	if filters.Set != "" {
		setCode, err := s.resolveSet(ctx, filters.Set)
		if err != nil {
			return nil, 0, err
		}
		query = query.Where("set_code = ?", setCode)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("catalog: count: %w", err)
	}

	var items []models.CardRecord
	err := query.
		Order("set_code ASC").
		Order("number ASC").
		Order("id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: search: %w", err)
	}

	return items, total, nil
}

// whereVocabulary matches a normalized vocabulary column against every
// synonym of the resolved bucket, falling back to the unstructured payload
// when the structured column is empty.
func whereVocabulary(query *gorm.DB, column string, terms []string) *gorm.DB {
	likes := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)+1)
	args = append(args, terms)
	for _, term := range terms {
		// Short abbreviations ("l", "uc") would match almost any payload.
		if len(term) < 3 {
			continue
		}
		likes = append(likes, "LOWER(raw_payload) LIKE ?")
		args = append(args, "%"+term+"%")
	}
	if len(likes) == 0 {
		return query.Where(fmt.Sprintf("%s IN ?", column), terms)
	}

	cond := fmt.Sprintf("(%s IN ? OR ((%s IS NULL OR %s = '') AND (%s)))",
		column, column, column, strings.Join(likes, " OR "))
	return query.Where(cond, args...)
}

// resolveSet accepts either a set code or a human expansion name.
func (s *Service) resolveSet(ctx context.Context, raw string) (string, error) {
	token := strings.TrimSpace(raw)

	var expansion models.ExpansionRecord
	err := s.db.WithContext(ctx).
		Where("UPPER(code) = ?", strings.ToUpper(token)).
		Or("LOWER(name) = ?", NormalizeToken(token)).
		First(&expansion).Error
	switch {
	case err == nil:
		return expansion.Code, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Unknown sets still filter deterministically by the upper-cased code.
		return strings.ToUpper(token), nil
	default:
		return "", fmt.Errorf("catalog: resolve set %q: %w", raw, err)
	}
}

// GetByID fetches a single card. When a translator is configured the
// description is localized lazily; translation failure silently keeps the
// original text.
func (s *Service) GetByID(ctx context.Context, id string) (*models.CardRecord, error) {
	var card models.CardRecord
	err := s.db.WithContext(ctx).First(&card, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get %s: %w", id, err)
	}

	if s.translator != nil && card.Description != "" {
		card.Description = s.translator.Translate(ctx, card.Description).Text
	}

	return &card, nil
}

// ListExpansions returns every known expansion ordered by code.
// AllCards returns every catalog row in natural collector order. Intended
// for batch jobs such as fingerprint refresh, not for API pagination.
func (s *Service) AllCards(ctx context.Context) ([]models.CardRecord, error) {
	var cards []models.CardRecord
	if err := s.db.WithContext(ctx).Order("set_code ASC, number ASC, variant ASC").Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("catalog: all cards: %w", err)
	}
	return cards, nil
}

func (s *Service) ListExpansions(ctx context.Context) ([]models.ExpansionRecord, error) {
	var expansions []models.ExpansionRecord
	if err := s.db.WithContext(ctx).Order("code ASC").Find(&expansions).Error; err != nil {
		return nil, fmt.Errorf("catalog: list expansions: %w", err)
	}
	return expansions, nil
}

// QuantityUpdate sets the owned quantity for one card; zero removes the row.
type QuantityUpdate struct {
	CardID   string `json:"card_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// ApplyQuantityBatch applies a batch of collection updates in one
// transaction. Either every row is accepted or the whole batch rolls back
// and the caller sees zero accepted entries.
func (s *Service) ApplyQuantityBatch(ctx context.Context, userID string, updates []QuantityUpdate) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, errors.New("catalog: user id is required")
	}
	if len(updates) == 0 {
		return 0, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, update := range updates {
			cardID := strings.TrimSpace(update.CardID)
			if cardID == "" {
				return errors.New("catalog: quantity update requires a card id")
			}
			if update.Quantity < 0 {
				return fmt.Errorf("catalog: negative quantity for %s", cardID)
			}

			if update.Quantity == 0 {
				if err := tx.Where("user_id = ? AND card_id = ?", userID, cardID).
					Delete(&models.CollectionItem{}).Error; err != nil {
					return err
				}
				continue
			}

			item := models.CollectionItem{UserID: userID, CardID: cardID, Quantity: update.Quantity}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "card_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
			}).Create(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("catalog: apply quantity batch: %w", err)
	}

	return len(updates), nil
}

// UpsertCards ingests a batch of canonical card records in one transaction
// and reports the number of accepted rows.
func (s *Service) UpsertCards(ctx context.Context, cards []models.CardRecord) (int, error) {
	if len(cards) == 0 {
		return 0, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range cards {
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"name", "rarity", "set_code", "number", "variant", "color",
					"card_type", "description", "image_url", "raw_payload", "updated_at",
				}),
			}).Create(&cards[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("catalog: upsert cards: %w", err)
	}

	return len(cards), nil
}

// UpsertExpansions ingests expansion records in one transaction.
func (s *Service) UpsertExpansions(ctx context.Context, expansions []models.ExpansionRecord) (int, error) {
	if len(expansions) == 0 {
		return 0, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range expansions {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "released_at", "raw_payload", "updated_at"}),
			}).Create(&expansions[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("catalog: upsert expansions: %w", err)
	}

	return len(expansions), nil
}

// ResetCatalog removes every card and expansion row. This is the only
// deletion path for catalog entries and exists for explicit re-seeds.
func (s *Service) ResetCatalog(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.CardRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&models.ExpansionRecord{}).Error
	})
}
