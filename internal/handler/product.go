package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/auth"
	"github.com/snipmart/snipmart/internal/model"
	"github.com/snipmart/snipmart/internal/service"
)

// ProductHandler covers the catalog endpoints and the gated content
// reveal.
type ProductHandler struct {
	products     *service.ProductService
	entitlements *service.EntitlementService
	logger       *slog.Logger
}

func NewProductHandler(
	products *service.ProductService,
	entitlements *service.EntitlementService,
	logger *slog.Logger,
) *ProductHandler {
	return &ProductHandler{products: products, entitlements: entitlements, logger: logger}
}

// productView is the public catalog shape. Install steps and file
// contents never appear here; they come only from the content endpoint.
type productView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Price       int64     `json:"price"`
	OwnerID     string    `json:"ownerId,omitempty"`
	FileCount   int       `json:"fileCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// productContent is the protected shape behind the entitlement gate.
type productContent struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	InstallSteps []string            `json:"installSteps"`
	Files        []model.ProductFile `json:"files"`
}

func toProductView(p *model.Product) productView {
	return productView{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
		OwnerID:     p.OwnerID,
		FileCount:   len(p.Files),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// HandleList returns the catalog, newest first.
//
// HTTP: GET /api/products?limit=20&owner=u1
func (h *ProductHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(h.logger, w, apperror.ValidationFailed("limit", "limit must be an integer"))
			return
		}
		limit = n
	}

	products, err := h.products.List(r.Context(), limit, r.URL.Query().Get("owner"))
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	views := make([]productView, 0, len(products))
	for i := range products {
		views = append(views, toProductView(&products[i]))
	}
	writeJSON(h.logger, w, http.StatusOK, views)
}

// HandleGetByID returns one product's public view.
//
// HTTP: GET /api/products/{id}
func (h *ProductHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(h.logger, w, http.StatusOK, toProductView(product))
}

// HandleContent reveals the protected content when the caller is
// entitled to it: the product is free, purchased, owned, or the caller
// is an admin. Everyone else gets a forbidden error.
//
// HTTP: GET /api/products/{id}/content
func (h *ProductHandler) HandleContent(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	allowed, err := h.entitlements.CanView(r.Context(), userID, product)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	if !allowed {
		writeError(h.logger, w, apperror.Forbidden("purchase required to view this content"))
		return
	}

	steps := product.InstallSteps
	if steps == nil {
		steps = []string{}
	}
	files := product.Files
	if files == nil {
		files = []model.ProductFile{}
	}
	writeJSON(h.logger, w, http.StatusOK, productContent{
		ID:           product.ID,
		Title:        product.Title,
		InstallSteps: steps,
		Files:        files,
	})
}

// HandleCreate adds a product owned by the caller.
//
// HTTP: POST /api/products
func (h *ProductHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(h.logger, w, apperror.Unauthorized("authentication required"))
		return
	}

	var in service.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(h.logger, w, err)
		return
	}

	product, err := h.products.Create(r.Context(), userID, in)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(h.logger, w, http.StatusCreated, toProductView(product))
}

// HandleUpdate replaces a product's editable fields. Owner or admin only.
//
// HTTP: PUT /api/products/{id}
func (h *ProductHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(h.logger, w, err)
		return
	}

	product, err := h.products.Update(r.Context(), userID, r.PathValue("id"), in)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(h.logger, w, http.StatusOK, toProductView(product))
}

// HandleDelete removes a product. Owner or admin only.
//
// HTTP: DELETE /api/products/{id}
func (h *ProductHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.products.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(h.logger, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
