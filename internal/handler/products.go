package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/momentos-dulces/api/internal/database"
)

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	ListProducts(ctx context.Context, arg database.ListProductsParams) ([]database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	SoftDeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ListVariantsByProduct(ctx context.Context, productID uuid.UUID) ([]database.ProductVariant, error)
	ListCustomizationsByProduct(ctx context.Context, productID uuid.UUID) ([]database.ProductCustomization, error)
	ListOptionsByCustomization(ctx context.Context, customizationID uuid.UUID) ([]database.CustomizationOption, error)
}

// ProductHandler handles catalog product endpoints.
type ProductHandler struct {
	store ProductStore
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterPublicRoutes registers the storefront product reads.
func (h *ProductHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/products", h.List)
	r.Get("/products/{id}", h.Get)
	r.Get("/products/slug/{slug}", h.GetBySlug)
}

// RegisterAdminRoutes registers the product writes. Mounted admin-only.
func (h *ProductHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/products", h.Create)
	r.Put("/products/{id}", h.Update)
	r.Delete("/products/{id}", h.Delete)
}

// --- Request / Response types ---

type productRequest struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	BasePrice   string `json:"base_price"`
	Stock       int32  `json:"stock"`
	Discount    int32  `json:"discount"`
	IsCombo     bool   `json:"is_combo"`
	Unit        string `json:"unit"`
}

type productResponse struct {
	ID          uuid.UUID `json:"id"`
	CategoryID  uuid.UUID `json:"category_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	ImageURL    *string   `json:"image_url"`
	BasePrice   string    `json:"base_price"`
	Stock       int32     `json:"stock"`
	Discount    int32     `json:"discount"`
	IsCombo     bool      `json:"is_combo"`
	Unit        *string   `json:"unit"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type variantResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price string    `json:"price"`
	Unit  *string   `json:"unit"`
}

type optionResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	PriceModifier string    `json:"price_modifier"`
}

type customizationResponse struct {
	ID                uuid.UUID        `json:"id"`
	Name              string           `json:"name"`
	CustomizationType string           `json:"customization_type"`
	Options           []optionResponse `json:"options"`
}

// productDetailResponse extends productResponse with variants and
// customization groups for the detail endpoints.
type productDetailResponse struct {
	productResponse
	Variants       []variantResponse       `json:"variants"`
	Customizations []customizationResponse `json:"customizations"`
}

func toProductResponse(p database.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: textOrNil(p.Description),
		ImageURL:    textOrNil(p.ImageUrl),
		BasePrice:   numericToString(p.BasePrice),
		Stock:       p.Stock,
		Discount:    p.Discount,
		IsCombo:     p.IsCombo,
		Unit:        textOrNil(p.Unit),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toVariantResponse(v database.ProductVariant) variantResponse {
	return variantResponse{
		ID:    v.ID,
		Name:  v.Name,
		Price: numericToString(v.Price),
		Unit:  textOrNil(v.Unit),
	}
}

// --- Handlers ---

// List returns active products, optionally filtered by category or a name
// search term.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	params := database.ListProductsParams{}

	if s := r.URL.Query().Get("category"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category filter")
			return
		}
		params.CategoryID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := r.URL.Query().Get("search"); s != "" {
		params.Search = pgtype.Text{String: s, Valid: true}
	}

	products, err := h.store.ListProducts(r.Context(), params)
	if err != nil {
		writeInternalError(w, "list products", err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a product with its variants and customization groups.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeInternalError(w, "get product", err)
		return
	}

	h.respondWithDetail(w, r, product)
}

// GetBySlug returns a product by its URL slug, with the same detail shape
// as Get.
func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "invalid slug")
		return
	}

	product, err := h.store.GetProductBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeInternalError(w, "get product by slug", err)
		return
	}

	h.respondWithDetail(w, r, product)
}

func (h *ProductHandler) respondWithDetail(w http.ResponseWriter, r *http.Request, product database.Product) {
	variants, err := h.store.ListVariantsByProduct(r.Context(), product.ID)
	if err != nil {
		writeInternalError(w, "list variants", err)
		return
	}

	groups, err := h.store.ListCustomizationsByProduct(r.Context(), product.ID)
	if err != nil {
		writeInternalError(w, "list customizations", err)
		return
	}

	variantResps := make([]variantResponse, len(variants))
	for i, v := range variants {
		variantResps[i] = toVariantResponse(v)
	}

	groupResps := make([]customizationResponse, len(groups))
	for i, g := range groups {
		options, err := h.store.ListOptionsByCustomization(r.Context(), g.ID)
		if err != nil {
			writeInternalError(w, "list options", err)
			return
		}
		optionResps := make([]optionResponse, len(options))
		for j, o := range options {
			optionResps[j] = optionResponse{
				ID:            o.ID,
				Name:          o.Name,
				PriceModifier: numericToString(o.PriceModifier),
			}
		}
		groupResps[i] = customizationResponse{
			ID:                g.ID,
			Name:              g.Name,
			CustomizationType: g.CustomizationType,
			Options:           optionResps,
		}
	}

	writeJSON(w, http.StatusOK, productDetailResponse{
		productResponse: toProductResponse(product),
		Variants:        variantResps,
		Customizations:  groupResps,
	})
}

// validateProductRequest checks the shared create/update fields and returns
// the parsed category ID and price.
func validateProductRequest(w http.ResponseWriter, req productRequest) (uuid.UUID, pgtype.Numeric, bool) {
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return uuid.Nil, pgtype.Numeric{}, false
	}
	if req.CategoryID == "" {
		writeError(w, http.StatusBadRequest, "category_id is required")
		return uuid.Nil, pgtype.Numeric{}, false
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category_id")
		return uuid.Nil, pgtype.Numeric{}, false
	}

	if req.BasePrice == "" {
		writeError(w, http.StatusBadRequest, "base_price is required")
		return uuid.Nil, pgtype.Numeric{}, false
	}
	price, err := parsePrice(req.BasePrice)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			writeError(w, http.StatusBadRequest, "base_price must be >= 0")
		} else {
			writeError(w, http.StatusBadRequest, "invalid base_price")
		}
		return uuid.Nil, pgtype.Numeric{}, false
	}

	if req.Stock < 0 {
		writeError(w, http.StatusBadRequest, "stock must be >= 0")
		return uuid.Nil, pgtype.Numeric{}, false
	}
	if req.Discount < 0 || req.Discount > 100 {
		writeError(w, http.StatusBadRequest, "discount must be between 0 and 100")
		return uuid.Nil, pgtype.Numeric{}, false
	}

	return categoryID, price, true
}

// Create adds a new product.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	categoryID, price, ok := validateProductRequest(w, req)
	if !ok {
		return
	}

	desc := pgtype.Text{}
	if req.Description != "" {
		desc = pgtype.Text{String: req.Description, Valid: true}
	}
	imageURL := pgtype.Text{}
	if req.ImageURL != "" {
		imageURL = pgtype.Text{String: req.ImageURL, Valid: true}
	}
	unit := pgtype.Text{}
	if req.Unit != "" {
		unit = pgtype.Text{String: req.Unit, Valid: true}
	}

	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		CategoryID:  categoryID,
		Name:        req.Name,
		Slug:        slugify(req.Name),
		Description: desc,
		ImageUrl:    imageURL,
		BasePrice:   price,
		Stock:       req.Stock,
		Discount:    req.Discount,
		IsCombo:     req.IsCombo,
		Unit:        unit,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "product already exists")
			return
		}
		writeInternalError(w, "create product", err)
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

// Update modifies an existing product.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	categoryID, price, ok := validateProductRequest(w, req)
	if !ok {
		return
	}

	desc := pgtype.Text{}
	if req.Description != "" {
		desc = pgtype.Text{String: req.Description, Valid: true}
	}
	imageURL := pgtype.Text{}
	if req.ImageURL != "" {
		imageURL = pgtype.Text{String: req.ImageURL, Valid: true}
	}
	unit := pgtype.Text{}
	if req.Unit != "" {
		unit = pgtype.Text{String: req.Unit, Valid: true}
	}

	product, err := h.store.UpdateProduct(r.Context(), database.UpdateProductParams{
		CategoryID:  categoryID,
		Name:        req.Name,
		Slug:        slugify(req.Name),
		Description: desc,
		ImageUrl:    imageURL,
		BasePrice:   price,
		Stock:       req.Stock,
		Discount:    req.Discount,
		IsCombo:     req.IsCombo,
		Unit:        unit,
		ID:          id,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		if isForeignKeyViolation(err) {
			writeError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "product already exists")
			return
		}
		writeInternalError(w, "update product", err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Delete soft-deletes a product. Historical order items keep their snapshot.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	if _, err := h.store.SoftDeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeInternalError(w, "delete product", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
