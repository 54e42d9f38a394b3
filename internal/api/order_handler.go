package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/merako/storefront/internal/domain/order"
)

type addItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type updateStatusRequest struct {
	Status order.Status `json:"status" validate:"required"`
}

type orderItemView struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type orderView struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	Status     order.Status    `json:"status"`
	Items      []orderItemView `json:"items"`
	FinalPrice decimal.Decimal `json:"final_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toOrderView(o *order.Order) orderView {
	items := make([]orderItemView, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemView{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price}
	}
	return orderView{
		ID:         o.ID,
		UserID:     o.UserID,
		Status:     o.Status,
		Items:      items,
		FinalPrice: o.FinalPrice,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func toOrderViews(os []order.Order) []orderView {
	views := make([]orderView, len(os))
	for i := range os {
		views[i] = toOrderView(&os[i])
	}
	return views
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	o, err := s.orders.GetOrCreateActive(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := s.orders.AddItem(r.Context(), currentUser(r), req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (s *Server) handleSetItemQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "productID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req setQuantityRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := s.orders.SetItemQuantity(r.Context(), currentUser(r), productID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (s *Server) handleDecreaseItem(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "productID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	o, err := s.orders.DecreaseItem(r.Context(), currentUser(r), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if o == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "productID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	o, err := s.orders.RemoveItem(r.Context(), currentUser(r), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if o == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (s *Server) handleSendOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.orders.MarkAsSent(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (s *Server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	os, err := s.orders.OrdersByUser(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderViews(os))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	o, err := s.orders.OrderByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if o.UserID != currentUser(r).ID {
		writeError(w, r, order.ErrNotOwner)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	o, err := s.orders.Cancel(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.orders.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAllOrders(w http.ResponseWriter, r *http.Request) {
	os, err := s.orders.AllOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderViews(os))
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req updateStatusRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := s.orders.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (s *Server) handleAdminDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.orders.DeleteByAdmin(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
