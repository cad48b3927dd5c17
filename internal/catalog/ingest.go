package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/EvoluTechs/riftcollect/internal/models"
)

// CardPayload is the structured-but-untyped card document delivered by the
// origin or assembled by the crawler. Ingestion resolves legacy field-name
// aliases exactly once here; downstream code only ever sees the canonical
// CardRecord columns.
type CardPayload map[string]any

func (p CardPayload) firstString(keys ...string) string {
	for _, key := range keys {
		if value, ok := p[key]; ok {
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// NormalizeCard turns a raw payload into a canonical CardRecord. The id must
// follow the <SET>-<NNN>[variant] collector convention.
func NormalizeCard(id string, payload CardPayload) (models.CardRecord, error) {
	id = strings.TrimSpace(id)
	setCode, number, variant, ok := models.SplitCardID(id)
	if !ok {
		return models.CardRecord{}, fmt.Errorf("catalog: malformed card id %q", id)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return models.CardRecord{}, fmt.Errorf("catalog: encode payload for %s: %w", id, err)
	}

	record := models.CardRecord{
		ID:          setCode + id[strings.Index(id, "-"):],
		Name:        payload.firstString("name", "nom", "title"),
		Rarity:      CanonicalRarity(payload.firstString("rarity", "rarete", "rarete_fr")),
		SetCode:     setCode,
		Number:      number,
		Variant:     variant,
		Color:       CanonicalColor(payload.firstString("color", "couleur", "domain")),
		CardType:    NormalizeToken(payload.firstString("card_type", "type", "type_fr")),
		Description: payload.firstString("description", "desc", "text"),
		ImageURL:    payload.firstString("image_url", "image", "img"),
		RawPayload:  datatypes.JSON(raw),
	}

	return record, nil
}

// NormalizeExpansion builds a canonical ExpansionRecord from a raw payload.
func NormalizeExpansion(code string, payload CardPayload) (models.ExpansionRecord, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return models.ExpansionRecord{}, fmt.Errorf("catalog: expansion code is required")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return models.ExpansionRecord{}, fmt.Errorf("catalog: encode payload for %s: %w", code, err)
	}

	record := models.ExpansionRecord{
		Code:       code,
		Name:       payload.firstString("name", "nom", "title"),
		RawPayload: datatypes.JSON(raw),
	}

	if released := payload.firstString("released_at", "release_date", "sortie"); released != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if ts, err := time.Parse(layout, released); err == nil {
				record.ReleasedAt = &ts
				break
			}
		}
	}

	return record, nil
}
