package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/catalog/entity"
)

// Handler exposes the /category and /product proxy endpoints.
type Handler struct {
	client   *Client
	validate *validator.Validate
	logger   *zap.SugaredLogger
}

func NewHandler(client *Client, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{client: client, validate: validator.New(), logger: logger}
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	res, err := h.client.Get(r.Context(), "/category", nil)
	h.respond(w, res, err)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var dto entity.NewCategoryDTO
	if !h.decode(w, r, &dto) {
		return
	}
	res, err := h.client.Post(r.Context(), "/category", dto)
	h.respond(w, res, err)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var dto entity.CategoryDTO
	if !h.decode(w, r, &dto) {
		return
	}
	res, err := h.client.Patch(r.Context(), "/category", dto)
	h.respond(w, res, err)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("category_uuid")
	if id == "" {
		apperr.WriteError(w, fmt.Errorf("%w: category_uuid is required", apperr.ErrInvalidRequest))
		return
	}
	res, err := h.client.Delete(r.Context(), "/category", url.Values{"category_uuid": {id}})
	h.respond(w, res, err)
}

// ListProducts forwards the optional page, quantity and category_uuid filters.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	for _, k := range []string{"page", "quantity"} {
		if v := q.Get(k); v != "" {
			if _, err := strconv.Atoi(v); err != nil {
				apperr.WriteError(w, fmt.Errorf("%w: %s must be an integer", apperr.ErrInvalidRequest, k))
				return
			}
		}
	}
	res, err := h.client.Get(r.Context(), "/product", url.Values{
		"page":          {q.Get("page")},
		"quantity":      {q.Get("quantity")},
		"category_uuid": {q.Get("category_uuid")},
	})
	h.respond(w, res, err)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var dto entity.ProductDTO
	if !h.decode(w, r, &dto) {
		return
	}
	res, err := h.client.Post(r.Context(), "/product", dto)
	h.respond(w, res, err)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var dto entity.UpdateProductDTO
	if !h.decode(w, r, &dto) {
		return
	}
	res, err := h.client.Patch(r.Context(), "/product", dto)
	h.respond(w, res, err)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("item_uuid")
	if id == "" {
		apperr.WriteError(w, fmt.Errorf("%w: item_uuid is required", apperr.ErrInvalidRequest))
		return
	}
	res, err := h.client.Delete(r.Context(), "/product", url.Values{"item_uuid": {id}})
	h.respond(w, res, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		h.logger.Debugw("invalid catalog payload", "path", r.URL.Path, "err", err)
		apperr.WriteError(w, fmt.Errorf("%w: malformed JSON body", apperr.ErrInvalidRequest))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		apperr.WriteError(w, fmt.Errorf("%w: %v", apperr.ErrInvalidRequest, err))
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, res json.RawMessage, err error) {
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res)
}
