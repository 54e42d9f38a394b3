package api

import (
	"net/http"
	"time"

	"github.com/merako/storefront/internal/domain/review"
)

type addReviewRequest struct {
	Rating  int    `json:"rating" validate:"required"`
	Comment string `json:"comment"`
}

type reviewView struct {
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toReviewViews(rs []review.Review) []reviewView {
	views := make([]reviewView, len(rs))
	for i, rv := range rs {
		views[i] = reviewView{
			UserID:    rv.UserID,
			ProductID: rv.ProductID,
			Rating:    rv.Rating,
			Comment:   rv.Comment,
			CreatedAt: rv.CreatedAt,
		}
	}
	return views
}

func (s *Server) handleProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if _, err := s.catalog.Product(r.Context(), productID); err != nil {
		writeError(w, r, err)
		return
	}
	rs, err := s.reviews.ByProduct(r.Context(), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewViews(rs))
}

func (s *Server) handleMyReviews(w http.ResponseWriter, r *http.Request) {
	rs, err := s.reviews.ByUser(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewViews(rs))
}

func (s *Server) handleAddReview(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req addReviewRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.catalog.Product(r.Context(), productID); err != nil {
		writeError(w, r, err)
		return
	}

	rv, err := s.reviews.Add(r.Context(), currentUser(r).ID, productID, req.Rating, req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reviewView{
		UserID:    rv.UserID,
		ProductID: rv.ProductID,
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		CreatedAt: rv.CreatedAt,
	})
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.reviews.Delete(r.Context(), currentUser(r).ID, productID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
