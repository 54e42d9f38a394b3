package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/merako/storefront/internal/domain/catalog"
)

type productRequest struct {
	Name          string          `json:"name" validate:"required"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price" validate:"required"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
	Image         string          `json:"image"`
	CategoryID    int64           `json:"category_id" validate:"required,gt=0"`
}

type categoryRequest struct {
	Name string `json:"name" validate:"required"`
}

type categoryView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func toCategoryView(c *catalog.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name}
}

type productView struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Image         string          `json:"image,omitempty"`
	CategoryID    int64           `json:"category_id"`
}

func toProductView(p *catalog.Product) productView {
	return productView{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Image:         p.Image,
		CategoryID:    p.CategoryID,
	}
}

func toProductViews(ps []catalog.Product) []productView {
	views := make([]productView, len(ps))
	for i := range ps {
		views[i] = toProductView(&ps[i])
	}
	return views
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := s.catalog.Products(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductViews(ps))
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	p, err := s.catalog.Product(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductView(p))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := s.catalog.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]categoryView, len(cs))
	for i := range cs {
		views[i] = toCategoryView(&cs[i])
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleProductsByCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if _, err := s.catalog.Category(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	ps, err := s.catalog.ProductsByCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductViews(ps))
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p := &catalog.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		Image:         req.Image,
		CategoryID:    req.CategoryID,
	}
	if err := s.catalog.CreateProduct(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductView(p))
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req productRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p := &catalog.Product{
		ID:            id,
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		Image:         req.Image,
		CategoryID:    req.CategoryID,
	}
	if err := s.catalog.UpdateProduct(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductView(p))
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.catalog.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c := &catalog.Category{Name: req.Name}
	if err := s.catalog.CreateCategory(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryView(c))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req categoryRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := s.catalog.UpdateCategory(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryView(c))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.catalog.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
