package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EvoluTechs/riftcollect/internal/models"
)

// OriginCatalog is the document published by the upstream catalog origin:
// raw payloads keyed by expansion code and collector id.
type OriginCatalog struct {
	Expansions map[string]CardPayload `json:"expansions"`
	Cards      map[string]CardPayload `json:"cards"`
}

// OriginClient fetches the catalog document over HTTP.
type OriginClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOriginClient builds an origin client with a bounded request timeout.
func NewOriginClient(baseURL string, timeout time.Duration) *OriginClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OriginClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchCatalog downloads and decodes the origin catalog document.
func (c *OriginClient) FetchCatalog(ctx context.Context) (OriginCatalog, error) {
	if c.baseURL == "" {
		return OriginCatalog{}, errors.New("catalog: origin base url is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/catalog.json", nil)
	if err != nil {
		return OriginCatalog{}, fmt.Errorf("catalog: build origin request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return OriginCatalog{}, fmt.Errorf("catalog: fetch origin catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return OriginCatalog{}, fmt.Errorf("catalog: origin returned status %d", resp.StatusCode)
	}

	var doc OriginCatalog
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return OriginCatalog{}, fmt.Errorf("catalog: decode origin catalog: %w", err)
	}

	return doc, nil
}

// SyncFromOrigin pulls the origin catalog and upserts every well-formed
// entry. Malformed entries are logged and skipped; they never abort the
// sync. Returns the number of accepted cards and expansions.
func (s *Service) SyncFromOrigin(ctx context.Context) (int, int, error) {
	if s.origin == nil {
		return 0, 0, errors.New("catalog: no origin configured")
	}

	log := s.log

	doc, err := s.origin.FetchCatalog(ctx)
	if err != nil {
		return 0, 0, err
	}

	expansions := normalizeExpansions(doc.Expansions, log)
	acceptedExpansions, err := s.UpsertExpansions(ctx, expansions)
	if err != nil {
		return 0, 0, err
	}

	cards := normalizeCards(doc.Cards, log)
	acceptedCards, err := s.UpsertCards(ctx, cards)
	if err != nil {
		return 0, acceptedExpansions, err
	}

	log.Info("origin sync complete",
		zap.Int("cards", acceptedCards),
		zap.Int("expansions", acceptedExpansions),
	)
	return acceptedCards, acceptedExpansions, nil
}

func normalizeExpansions(raw map[string]CardPayload, log *zap.Logger) []models.ExpansionRecord {
	codes := make([]string, 0, len(raw))
	for code := range raw {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	expansions := make([]models.ExpansionRecord, 0, len(raw))
	for _, code := range codes {
		record, err := NormalizeExpansion(code, raw[code])
		if err != nil {
			log.Warn("skipping malformed expansion", zap.String("code", code), zap.Error(err))
			continue
		}
		expansions = append(expansions, record)
	}
	return expansions
}

func normalizeCards(raw map[string]CardPayload, log *zap.Logger) []models.CardRecord {
	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cards := make([]models.CardRecord, 0, len(raw))
	for _, id := range ids {
		record, err := NormalizeCard(id, raw[id])
		if err != nil {
			log.Warn("skipping malformed card", zap.String("id", id), zap.Error(err))
			continue
		}
		cards = append(cards, record)
	}
	return cards
}
