package order

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/merako/storefront/internal/domain/user"
)

// fastSignupWindow is how long after registration an order send still earns
// the fast-signup bonus.
const fastSignupWindow = time.Hour

// Service encapsulates the order lifecycle. Mutations on one user's active
// order are serialized through a per-user mutex, so two concurrent AddItem
// calls cannot both read stale stock or duplicate the cart. Multi-step
// writes (send, cancel, status change) run inside a single transaction.
type Service struct {
	orders   Repository
	products ProductStore
	bonuses  BonusSource
	tx       TxRunner
	now      func() time.Time

	locks sync.Map // user ID -> *sync.Mutex
}

// NewService creates an order Service with the required dependencies.
func NewService(orders Repository, products ProductStore, bonuses BonusSource, tx TxRunner) *Service {
	return &Service{
		orders:   orders,
		products: products,
		bonuses:  bonuses,
		tx:       tx,
		now:      time.Now,
	}
}

// lockUser serializes mutations for one user. Returns the unlock func.
func (s *Service) lockUser(userID int64) func() {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// GetOrCreateActive returns the user's PROCESSING order, creating an empty
// one with zero final price when none exists.
func (s *Service) GetOrCreateActive(ctx context.Context, u *user.User) (*Order, error) {
	defer s.lockUser(u.ID)()
	return s.getOrCreateActive(ctx, u)
}

func (s *Service) getOrCreateActive(ctx context.Context, u *user.User) (*Order, error) {
	o, err := s.orders.FindActiveByUser(ctx, u.ID)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, ErrNoActiveOrder) {
		return nil, errors.Wrap(err, "find active order")
	}

	now := s.now()
	o = &Order{
		UserID:    u.ID,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// AddItem puts qty units of a product into the user's active order, creating
// the order if needed. Quantities for a product already in the cart
// accumulate; the line price snapshot and the order's final price are
// recomputed.
func (s *Service) AddItem(ctx context.Context, u *user.User, productID int64, qty int) (*Order, error) {
	if qty <= 0 {
		return nil, &InvalidQuantityError{ProductID: productID}
	}

	defer s.lockUser(u.ID)()

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	o, err := s.getOrCreateActive(ctx, u)
	if err != nil {
		return nil, err
	}

	newQty := qty
	if existing := o.item(productID); existing != nil {
		newQty += existing.Quantity
	}
	if newQty > p.StockQuantity {
		return nil, &InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Available:   p.StockQuantity,
		}
	}

	if existing := o.item(productID); existing != nil {
		existing.Quantity = newQty
		existing.Price = lineTotal(p.Price, newQty)
	} else {
		o.Items = append(o.Items, Item{
			OrderID:   o.ID,
			ProductID: productID,
			Quantity:  qty,
			Price:     lineTotal(p.Price, qty),
		})
	}

	if err := s.reprice(ctx, o); err != nil {
		return nil, err
	}
	o.UpdatedAt = s.now()

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save order")
	}
	return o, nil
}

// SetItemQuantity sets the exact quantity for a product already in the
// active order. A quantity of zero or less removes the line; if that leaves
// the order empty, the order is cancelled but kept. RemoveItem and
// DecreaseItem delete an emptied order outright instead.
func (s *Service) SetItemQuantity(ctx context.Context, u *user.User, productID int64, qty int) (*Order, error) {
	defer s.lockUser(u.ID)()

	o, err := s.activeOrder(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if o.item(productID) == nil {
		return nil, ErrItemNotFound
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if qty > p.StockQuantity {
		return nil, &InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Available:   p.StockQuantity,
		}
	}

	if qty > 0 {
		it := o.item(productID)
		it.Quantity = qty
		it.Price = lineTotal(p.Price, qty)
	} else {
		o.removeItem(productID)
	}

	if len(o.Items) == 0 {
		o.Status = StatusCancelled
	}

	if err := s.reprice(ctx, o); err != nil {
		return nil, err
	}
	o.UpdatedAt = s.now()

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save order")
	}
	return o, nil
}

// RemoveItem drops a product from the active order. When the order becomes
// empty it is deleted entirely and nil is returned.
func (s *Service) RemoveItem(ctx context.Context, u *user.User, productID int64) (*Order, error) {
	defer s.lockUser(u.ID)()

	o, err := s.activeOrder(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if o.item(productID) == nil {
		return nil, ErrItemNotFound
	}

	o.removeItem(productID)
	return s.saveOrDeleteEmptied(ctx, o)
}

// DecreaseItem lowers a line's quantity by one, removing the line at zero.
// When the order becomes empty it is deleted entirely and nil is returned.
func (s *Service) DecreaseItem(ctx context.Context, u *user.User, productID int64) (*Order, error) {
	defer s.lockUser(u.ID)()

	o, err := s.activeOrder(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	it := o.item(productID)
	if it == nil {
		return nil, ErrItemNotFound
	}

	if it.Quantity > 1 {
		p, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		it.Quantity--
		it.Price = lineTotal(p.Price, it.Quantity)
	} else {
		o.removeItem(productID)
	}

	return s.saveOrDeleteEmptied(ctx, o)
}

// saveOrDeleteEmptied persists the mutated order, or deletes it when the
// last item was just removed.
func (s *Service) saveOrDeleteEmptied(ctx context.Context, o *Order) (*Order, error) {
	if len(o.Items) == 0 {
		if err := s.orders.Delete(ctx, o.ID); err != nil {
			return nil, errors.Wrap(err, "delete emptied order")
		}
		return nil, nil
	}

	if err := s.reprice(ctx, o); err != nil {
		return nil, err
	}
	o.UpdatedAt = s.now()

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save order")
	}
	return o, nil
}

// MarkAsSent ships the user's active order: it validates stock for every
// item, decrements stock, recomputes the final price from active bonuses,
// applies the one-time fast-signup discount when the order ships within an
// hour of registration, and consumes all unused count bonuses. The whole
// operation is one transaction; a shortfall on any item aborts with no
// stock mutated and no bonus consumed.
func (s *Service) MarkAsSent(ctx context.Context, u *user.User) (*Order, error) {
	defer s.lockUser(u.ID)()

	var sent *Order
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		o, err := s.activeOrder(ctx, u.ID)
		if err != nil {
			return err
		}

		for _, it := range o.Items {
			p, err := s.products.GetByID(ctx, it.ProductID)
			if err != nil {
				return err
			}
			if p.StockQuantity < it.Quantity {
				return &InsufficientStockError{
					ProductID:   p.ID,
					ProductName: p.Name,
					Available:   p.StockQuantity,
				}
			}
		}

		for _, it := range o.Items {
			if err := s.products.AdjustStock(ctx, it.ProductID, -it.Quantity); err != nil {
				return errors.Wrap(err, "decrement stock")
			}
		}

		// Price with the count bonuses still active, before consuming them.
		if err := s.reprice(ctx, o); err != nil {
			return err
		}

		o.Status = StatusSent
		o.UpdatedAt = s.now()

		if o.UpdatedAt.Sub(u.CreatedAt) <= fastSignupWindow {
			applied, err := s.bonuses.ConsumeFastSignupBonus(ctx, u.ID)
			if err != nil {
				return err
			}
			if applied {
				o.FinalPrice = o.FinalPrice.Sub(o.FinalPrice.Mul(fastSignupRate)).Round(2)
			}
		}

		// All unused count bonuses are spent by any send, applied or not.
		if err := s.bonuses.ConsumeOrderCountBonuses(ctx, u.ID); err != nil {
			return err
		}

		if err := s.orders.Update(ctx, o); err != nil {
			return errors.Wrap(err, "save order")
		}
		sent = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sent, nil
}

// Cancel cancels an order owned by the caller. PROCESSING and SENT orders
// may be cancelled; cancelling a SENT order restores the stock it consumed.
func (s *Service) Cancel(ctx context.Context, u *user.User, orderID int64) (*Order, error) {
	defer s.lockUser(u.ID)()

	var cancelled *Order
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != u.ID {
			return ErrNotOwner
		}
		if !o.Status.CanTransitionTo(StatusCancelled) {
			return &InvalidTransitionError{From: o.Status, To: StatusCancelled}
		}

		if o.Status == StatusSent {
			for _, it := range o.Items {
				if err := s.products.AdjustStock(ctx, it.ProductID, it.Quantity); err != nil {
					return errors.Wrap(err, "restore stock")
				}
			}
		}

		o.Status = StatusCancelled
		o.UpdatedAt = s.now()

		if err := s.orders.Update(ctx, o); err != nil {
			return errors.Wrap(err, "save order")
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// Delete removes an order owned by the caller. Only PROCESSING and
// CANCELLED orders may be deleted.
func (s *Service) Delete(ctx context.Context, u *user.User, orderID int64) error {
	defer s.lockUser(u.ID)()

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.UserID != u.ID {
		return ErrNotOwner
	}
	return s.deleteInState(ctx, o)
}

// DeleteByAdmin removes any user's order, with the same state restriction
// as Delete.
func (s *Service) DeleteByAdmin(ctx context.Context, orderID int64) error {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	defer s.lockUser(o.UserID)()
	return s.deleteInState(ctx, o)
}

func (s *Service) deleteInState(ctx context.Context, o *Order) error {
	if o.Status != StatusProcessing && o.Status != StatusCancelled {
		return ErrNotDeletable
	}
	if err := s.orders.Delete(ctx, o.ID); err != nil {
		return errors.Wrap(err, "delete order")
	}
	return nil
}

// UpdateStatus moves an order along the state machine (admin path). A
// transition into DELIVERED triggers achievement evaluation for the order's
// owner.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, next Status) (*Order, error) {
	if !next.Valid() {
		return nil, &InvalidTransitionError{To: next}
	}

	var updated *Order
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(next) {
			return &InvalidTransitionError{From: o.Status, To: next}
		}

		prev := o.Status
		o.Status = next
		o.UpdatedAt = s.now()

		if err := s.orders.Update(ctx, o); err != nil {
			return errors.Wrap(err, "save order")
		}

		if prev != StatusDelivered && next == StatusDelivered {
			if err := s.bonuses.EvaluateDeliveredOrders(ctx, o.UserID); err != nil {
				return err
			}
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ActiveOrder returns the user's PROCESSING order or ErrNoActiveOrder.
func (s *Service) ActiveOrder(ctx context.Context, userID int64) (*Order, error) {
	return s.orders.FindActiveByUser(ctx, userID)
}

// OrdersByUser returns all of the user's orders.
func (s *Service) OrdersByUser(ctx context.Context, userID int64) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// AllOrders returns every order (admin path).
func (s *Service) AllOrders(ctx context.Context) ([]Order, error) {
	return s.orders.ListAll(ctx)
}

// OrderByID returns a single order.
func (s *Service) OrderByID(ctx context.Context, id int64) (*Order, error) {
	return s.orders.FindByID(ctx, id)
}

// activeOrder fetches the PROCESSING order without creating one.
func (s *Service) activeOrder(ctx context.Context, userID int64) (*Order, error) {
	o, err := s.orders.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoActiveOrder) {
			return nil, ErrNoActiveOrder
		}
		return nil, errors.Wrap(err, "find active order")
	}
	return o, nil
}

// reprice recomputes the order's final price from the owner's active bonuses.
func (s *Service) reprice(ctx context.Context, o *Order) error {
	bonuses, err := s.bonuses.ActiveBonuses(ctx, o.UserID)
	if err != nil {
		return errors.Wrap(err, "load active bonuses")
	}
	o.FinalPrice = finalPrice(o.Items, bestMultiplier(bonuses))
	return nil
}
