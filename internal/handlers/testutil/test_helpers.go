package testutil

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/EvoluTechs/riftcollect/internal/api"
	"github.com/EvoluTechs/riftcollect/internal/app"
	"github.com/EvoluTechs/riftcollect/internal/catalog"
	sharedtestutil "github.com/EvoluTechs/riftcollect/internal/database/testutil"
	"github.com/EvoluTechs/riftcollect/internal/hashstore"
	"github.com/EvoluTechs/riftcollect/internal/imagehash"
	"github.com/EvoluTechs/riftcollect/internal/match"
	"github.com/EvoluTechs/riftcollect/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database
// for handler tests.
type Env struct {
	T         *testing.T
	DB        *gorm.DB
	Router    *gin.Engine
	Catalog   *catalog.Service
	AssetRoot string
}

// NewEnv provisions a fresh handler test environment with migrations applied.
// Identification assets live in a per-test temp directory.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t)

	cat, err := catalog.NewService(db)
	require.NoError(t, err)

	assetRoot := t.TempDir()

	hasher := imagehash.New(8)
	store, err := hashstore.NewStore(db, hasher, assetRoot, "full-desk.jpg", nil)
	require.NoError(t, err)

	matcher, err := match.NewService(db, store, hasher, 10, nil)
	require.NoError(t, err)

	cfg := &app.Config{}
	cfg.Monitoring.Health.Enabled = true

	router, err := api.NewRouter(db, cat, matcher, cfg)
	require.NoError(t, err)

	return &Env{T: t, DB: db, Router: router, Catalog: cat, AssetRoot: assetRoot}
}

// Do performs an HTTP request against the router and returns the recorder.
func (e *Env) Do(method, path string, body any) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	e.Router.ServeHTTP(rec, req)
	return rec
}

// DecodeResponse unmarshals the standard envelope from a recorder body.
func DecodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()

	var envelope response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

// DecodeData re-marshals the envelope's data field into dest so handler tests
// can assert on typed payloads.
func DecodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) response.Response {
	t.Helper()

	envelope := DecodeResponse(t, rec)
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dest))
	return envelope
}
