package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/EvoluTechs/riftcollect/internal/catalog"
	"github.com/EvoluTechs/riftcollect/internal/imagehash"
	"github.com/EvoluTechs/riftcollect/internal/match"
	appErrors "github.com/EvoluTechs/riftcollect/pkg/errors"
	"github.com/EvoluTechs/riftcollect/pkg/response"
)

// maxUploadBytes caps identification uploads; card scans are small crops.
const maxUploadBytes = 8 << 20

type CardHandler struct {
	catalog *catalog.Service
	matcher *match.Service
}

func NewCardHandler(cat *catalog.Service, matcher *match.Service) (*CardHandler, error) {
	if cat == nil {
		return nil, errors.New("handlers: catalog service is required")
	}
	return &CardHandler{catalog: cat, matcher: matcher}, nil
}

// GET /api/cards
func (h *CardHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "page_size", 0)

	filters := catalog.Filters{
		Query:    c.Query("q"),
		Rarity:   c.Query("rarity"),
		Color:    c.Query("color"),
		CardType: c.Query("type"),
		Set:      c.Query("set"),
	}

	cards, total, err := h.catalog.Search(c.Request.Context(), filters, page, perPage)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	if perPage <= 0 {
		perPage = len(cards)
	}
	response.SuccessWithMeta(c, http.StatusOK, cards, response.NewMeta(page, perPage, int(total)))
}

// GET /api/cards/:id
func (h *CardHandler) Get(c *gin.Context) {
	card, err := h.catalog.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, catalog.ErrCardNotFound) {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, card)
}

// GET /api/expansions
func (h *CardHandler) Expansions(c *gin.Context) {
	expansions, err := h.catalog.ListExpansions(c.Request.Context())
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, expansions)
}

// POST /api/cards/identify
//
// Accepts a multipart upload (field "image") plus optional "set" and "k"
// form values narrowing the candidate pool.
func (h *CardHandler) Identify(c *gin.Context) {
	if h.matcher == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	file, _, err := c.Request.FormFile("image")
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("multipart field \"image\" is required"))
		return
	}
	defer file.Close()

	setCode := strings.TrimSpace(c.PostForm("set"))
	limit := 0
	if raw := strings.TrimSpace(c.PostForm("k")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	candidates, err := h.matcher.Match(c.Request.Context(), http.MaxBytesReader(c.Writer, file, maxUploadBytes), setCode, limit)
	var decodeErr *imagehash.DecodeError
	switch {
	case errors.As(err, &decodeErr):
		response.Error(c, appErrors.ErrImageDecode.WithInternal(err))
		return
	case errors.Is(err, match.ErrNoCandidates):
		response.Error(c, appErrors.ErrNoCandidates)
		return
	case err != nil:
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"candidates": candidates})
}

type collectionRequest struct {
	Updates []catalog.QuantityUpdate `json:"updates" validate:"required,min=1,dive"`
}

// PUT /api/collection/:userID
func (h *CardHandler) UpdateCollection(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userID"))
	if userID == "" {
		response.Error(c, appErrors.NewBadRequest("user id is required"))
		return
	}

	var body collectionRequest
	if !bindAndValidate(c, &body) {
		return
	}

	accepted, err := h.catalog.ApplyQuantityBatch(c.Request.Context(), userID, body.Updates)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"accepted": accepted})
}
