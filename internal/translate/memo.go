// Package translate memoizes calls to an external text-translation service.
// Each distinct (target language, text) pair triggers at most one external
// call over the cache's lifetime; everything else is served from an
// in-process hot layer or the durable cache table.
package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/EvoluTechs/riftcollect/internal/models"
	"github.com/EvoluTechs/riftcollect/pkg/metrics"
)

// Source explains where a translation result came from, so callers can tell
// graceful degradation apart from a real translation without exceptions.
type Source string

const (
	SourceCache       Source = "cache"
	SourceService     Source = "service"
	SourcePassthrough Source = "passthrough"
)

// Result carries the translated (or passed-through) text and its provenance.
type Result struct {
	Text   string
	Source Source
}

// externalClient is the boundary to the real translation service.
type externalClient interface {
	Translate(ctx context.Context, text, dstLang string) (string, error)
}

// MemoConfig tunes the memo layer.
type MemoConfig struct {
	Enabled    bool
	TargetLang string
	Timeout    time.Duration
	HotTTL     time.Duration
}

// Memo is the translation memoization layer: hot in-process cache, durable
// cache table, then the external service guarded by singleflight so
// concurrent misses for the same key collapse into one call.
type Memo struct {
	db     *gorm.DB
	client externalClient
	cfg    MemoConfig
	hot    *gocache.Cache
	group  singleflight.Group
	log    *zap.Logger
}

// NewMemo constructs the memo around a database handle and external client.
func NewMemo(db *gorm.DB, client externalClient, cfg MemoConfig, log *zap.Logger) (*Memo, error) {
	if db == nil {
		return nil, errors.New("translate: db is required")
	}
	if cfg.TargetLang == "" {
		cfg.TargetLang = "fr"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.HotTTL <= 0 {
		cfg.HotTTL = time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Memo{
		db:     db,
		client: client,
		cfg:    cfg,
		hot:    gocache.New(cfg.HotTTL, 2*cfg.HotTTL),
		log:    log,
	}, nil
}

// Key computes the stable content hash for a (language, text) pair.
func Key(dstLang, text string) string {
	sum := sha256.Sum256([]byte(dstLang + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Translate localizes text into the configured target language.
func (m *Memo) Translate(ctx context.Context, text string) Result {
	return m.TranslateTo(ctx, text, m.cfg.TargetLang)
}

// TranslateTo localizes text into dstLang. It never returns an error:
// service failure, timeout or disabled configuration degrade to the original
// text with SourcePassthrough.
func (m *Memo) TranslateTo(ctx context.Context, text, dstLang string) Result {
	if text == "" {
		return Result{Text: text, Source: SourcePassthrough}
	}

	key := Key(dstLang, text)

	if cached, ok := m.hot.Get(key); ok {
		metrics.TranslationLookups.WithLabelValues(string(SourceCache)).Inc()
		return Result{Text: cached.(string), Source: SourceCache}
	}

	value, err, _ := m.group.Do(key, func() (any, error) {
		return m.resolve(ctx, key, text, dstLang)
	})
	if err != nil {
		metrics.TranslationLookups.WithLabelValues(string(SourcePassthrough)).Inc()
		return Result{Text: text, Source: SourcePassthrough}
	}

	result := value.(Result)
	metrics.TranslationLookups.WithLabelValues(string(result.Source)).Inc()
	return result
}

// resolve serves a miss from the durable table or, failing that, the
// external service. Only successful translations are persisted, under
// write-once semantics.
func (m *Memo) resolve(ctx context.Context, key, text, dstLang string) (Result, error) {
	var entry models.TranslationCacheEntry
	err := m.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	switch {
	case err == nil:
		m.hot.SetDefault(key, entry.DstText)
		return Result{Text: entry.DstText, Source: SourceCache}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		m.log.Warn("translation cache lookup failed", zap.Error(err))
	}

	if !m.cfg.Enabled || m.client == nil {
		return Result{Text: text, Source: SourcePassthrough}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	translated, err := m.client.Translate(callCtx, text, dstLang)
	if err != nil {
		m.log.Warn("translation service unavailable, passing through",
			zap.String("lang", dstLang), zap.Error(err))
		return Result{Text: text, Source: SourcePassthrough}, nil
	}

	record := models.TranslationCacheEntry{
		Key:     key,
		Lang:    dstLang,
		SrcText: text,
		DstText: translated,
	}
	if err := m.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record).Error; err != nil {
		m.log.Warn("persisting translation failed", zap.Error(err))
	}

	m.hot.SetDefault(key, translated)
	return Result{Text: translated, Source: SourceService}, nil
}
