// Package crawler discovers card assets on a CDN that exposes neither a
// directory listing nor a stable API. Every probe outcome is recorded in a
// durable ledger so repeated runs are strictly incremental.
package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/EvoluTechs/riftcollect/internal/catalog"
	"github.com/EvoluTechs/riftcollect/internal/models"
	"github.com/EvoluTechs/riftcollect/pkg/metrics"
)

// Ingestor receives discovered cards. The catalog service satisfies it.
type Ingestor interface {
	UpsertCards(ctx context.Context, cards []models.CardRecord) (int, error)
}

// Report summarizes one discovery run.
type Report struct {
	Probed  int `json:"probed"`
	Skipped int `json:"skipped"`
	Found   int `json:"found"`
	Missing int `json:"missing"`
	Denied  int `json:"denied"`
	Other   int `json:"other"`
}

// Crawler probes candidate asset URLs serially with a fixed inter-probe
// delay and persists every attempt.
type Crawler struct {
	db         *gorm.DB
	baseURL    string
	httpClient *http.Client
	ingestor   Ingestor
	opts       Options
	log        *zap.Logger

	// sleep is swappable so tests can run without real delays.
	sleep func(context.Context, time.Duration) error
}

// New validates the options and constructs a crawler.
func New(db *gorm.DB, baseURL string, ingestor Ingestor, opts Options, timeout time.Duration, log *zap.Logger) (*Crawler, error) {
	if db == nil {
		return nil, errors.New("crawler: db is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("crawler: base url is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Crawler{
		db:         db,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		ingestor:   ingestor,
		opts:       opts,
		log:        log,
		sleep:      sleepContext,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CandidateURL builds the normalized absolute asset URL for one candidate.
// The string must stay byte-for-byte stable across runs: it is the ledger
// key.
func (c *Crawler) CandidateURL(setCode string, number int) (string, error) {
	cardID := fmt.Sprintf("%s-%03d", strings.ToUpper(setCode), number)
	raw := fmt.Sprintf("%s/cards/%s/%s/%s", c.baseURL, strings.ToUpper(setCode), cardID, c.opts.AssetFilename)

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("crawler: bad candidate url %q: %w", raw, err)
	}
	return parsed.String(), nil
}

// Run executes one discovery pass. It stops when the set × range space is
// exhausted, when MaxFound discoveries were made, or when ctx is cancelled.
// Transport failures are recorded as missing and never abort the run.
func (c *Crawler) Run(ctx context.Context) (Report, error) {
	numbers, err := ParseRange(c.opts.Range)
	if err != nil {
		return Report{}, err
	}

	var report Report
	delay := time.Duration(c.opts.DelayMS) * time.Millisecond

	for _, setCode := range c.opts.Sets {
		for _, number := range numbers {
			if c.opts.MaxFound > 0 && report.Found >= c.opts.MaxFound {
				c.log.Info("discovery cap reached", zap.Int("found", report.Found))
				return report, nil
			}
			if err := ctx.Err(); err != nil {
				return report, err
			}

			candidate, err := c.CandidateURL(setCode, number)
			if err != nil {
				return report, err
			}

			if !c.opts.Rescan {
				exists, err := c.attemptExists(ctx, candidate)
				if err != nil {
					return report, err
				}
				if exists {
					report.Skipped++
					metrics.CrawlerProbes.WithLabelValues("skipped").Inc()
					continue
				}
			}

			status, httpCode := c.probe(ctx, candidate)
			if err := c.recordAttempt(ctx, candidate, status, httpCode); err != nil {
				return report, err
			}

			report.Probed++
			metrics.CrawlerProbes.WithLabelValues(status).Inc()

			switch status {
			case models.ScanStatusFound:
				report.Found++
				c.ingest(ctx, setCode, number, candidate)
			case models.ScanStatusMissing:
				report.Missing++
			case models.ScanStatusDenied:
				report.Denied++
			default:
				report.Other++
			}

			c.log.Debug("probed candidate",
				zap.String("url", candidate),
				zap.String("status", status),
				zap.Int("http_code", httpCode),
			)

			if err := c.sleep(ctx, delay); err != nil {
				return report, err
			}
		}
	}

	return report, nil
}

// probe performs a lightweight existence check and classifies the response.
// Network transport failures are missing (http code 0), not fatal.
func (c *Crawler) probe(ctx context.Context, candidate string) (string, int) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, candidate, nil)
	if err != nil {
		return models.ScanStatusMissing, 0
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("probe transport failure", zap.String("url", candidate), zap.Error(err))
		return models.ScanStatusMissing, 0
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return models.ScanStatusFound, resp.StatusCode
	case resp.StatusCode == http.StatusForbidden:
		return models.ScanStatusDenied, resp.StatusCode
	case resp.StatusCode == http.StatusNotFound:
		return models.ScanStatusMissing, resp.StatusCode
	default:
		return models.ScanStatusOther, resp.StatusCode
	}
}

// ingest fetches the candidate's sibling metadata document and hands the
// normalized card to the catalog. Metadata failures degrade to a minimal
// record; discovery bookkeeping never depends on them.
func (c *Crawler) ingest(ctx context.Context, setCode string, number int, assetURL string) {
	if c.ingestor == nil {
		return
	}

	cardID := fmt.Sprintf("%s-%03d", strings.ToUpper(setCode), number)

	payload := c.fetchMetadata(ctx, assetURL)
	if payload == nil {
		payload = catalog.CardPayload{}
	}
	payload["image_url"] = assetURL

	record, err := catalog.NormalizeCard(cardID, payload)
	if err != nil {
		c.log.Warn("skipping unnormalizable discovery", zap.String("id", cardID), zap.Error(err))
		return
	}

	if _, err := c.ingestor.UpsertCards(ctx, []models.CardRecord{record}); err != nil {
		c.log.Warn("catalog ingestion failed", zap.String("id", cardID), zap.Error(err))
	}
}

func (c *Crawler) fetchMetadata(ctx context.Context, assetURL string) catalog.CardPayload {
	idx := strings.LastIndex(assetURL, "/")
	if idx < 0 {
		return nil
	}
	metadataURL := assetURL[:idx] + "/data.json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var payload catalog.CardPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log.Debug("malformed metadata document", zap.String("url", metadataURL), zap.Error(err))
		return nil
	}
	return payload
}
