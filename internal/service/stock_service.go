package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go-pedidos-api/internal/model"
	"go-pedidos-api/internal/repository"
	"go-pedidos-api/internal/ws"
	"go-pedidos-api/pkg/cache"
	"go-pedidos-api/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StockService is the stock ledger: the only component that mutates stock
// and sold_count. Every operation runs in a single transaction with row
// locks on all products it touches; on any failing check the whole
// transaction rolls back and no partial state becomes visible.
type StockService interface {
	// Sell decrements one unit of the product (and, for a combo, the full
	// quantity of every component). Cleaning-category products reject the
	// sale when it would drop stock below the floor; maintenance products
	// may go negative (back-order at point of sale).
	Sell(productID uuid.UUID, userID string) (*model.Product, error)
	// Cancel reverses one sale; rejected when sold_count is already 0.
	Cancel(productID uuid.UUID, userID string) (*model.Product, error)
	// Adjust applies an arbitrary signed delta, subject to the category
	// floor on negative stock deltas.
	Adjust(productID uuid.UUID, stockDelta, soldDelta int, userID string) (*model.Product, error)

	// ApplyDelta mutates an already locked product within an open
	// transaction. Primitive used by the order engine; callers own the
	// transaction boundary.
	ApplyDelta(tx repository.StockTx, product *model.Product, stockDelta, soldDelta int, movType model.MovementType, orderID *uuid.UUID) error
}

type stockService struct {
	txRunner repository.TxRunner
	cache    cache.Store
	wsHub    *ws.Hub
	log      *zap.Logger
}

func NewStockService(txRunner repository.TxRunner, store cache.Store, hub *ws.Hub) StockService {
	return &stockService{
		txRunner: txRunner,
		cache:    store,
		wsHub:    hub,
		log:      logger.Get(),
	}
}

// checkFloor validates a stock delta against the category floor:
// cleaning stock must satisfy stock + delta >= 1 for negative deltas,
// maintenance has no floor.
func checkFloor(p *model.Product, stockDelta int) error {
	if stockDelta >= 0 || !p.Category.HasFloor() {
		return nil
	}
	if p.Stock+stockDelta < model.CleaningStockFloor {
		return fmt.Errorf("%w: '%s' stock %d cannot drop below %d", ErrInsufficientStock, p.Name, p.Stock, model.CleaningStockFloor)
	}
	return nil
}

func clampSold(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func (s *stockService) ApplyDelta(tx repository.StockTx, product *model.Product, stockDelta, soldDelta int, movType model.MovementType, orderID *uuid.UUID) error {
	if err := checkFloor(product, stockDelta); err != nil {
		return err
	}

	newStock := product.Stock + stockDelta
	newSold := clampSold(product.SoldCount + soldDelta)

	if err := tx.UpdateProductStock(product.ID, newStock, newSold); err != nil {
		return err
	}
	if err := tx.RecordMovement(&model.StockMovement{
		ProductID:  product.ID,
		Type:       movType,
		Quantity:   stockDelta,
		StockAfter: newStock,
		OrderID:    orderID,
	}); err != nil {
		return err
	}

	product.Stock = newStock
	product.SoldCount = newSold
	return nil
}

func (s *stockService) Sell(productID uuid.UUID, userID string) (*model.Product, error) {
	var sold *model.Product
	var touched []*model.Product

	err := s.txRunner.RunInTx(func(tx repository.StockTx) error {
		product, err := lockProduct(tx, productID)
		if err != nil {
			return err
		}

		// Reject before touching anything: selling one more unit of a
		// floor-protected product with stock <= 1 would break the floor.
		if err := checkFloor(product, -1); err != nil {
			return err
		}

		if product.IsCombo {
			components, err := s.lockComponents(tx, product.ID)
			if err != nil {
				return err
			}
			// Verify every component first so a failing one rejects the
			// whole sale before any decrement.
			for _, c := range components {
				if err := checkFloor(c.product, -c.quantity); err != nil {
					return err
				}
			}
			for _, c := range components {
				if err := s.ApplyDelta(tx, c.product, -c.quantity, c.quantity, model.MovementSale, nil); err != nil {
					return err
				}
				touched = append(touched, c.product)
			}
		}

		if err := s.ApplyDelta(tx, product, -1, 1, model.MovementSale, nil); err != nil {
			return err
		}
		touched = append(touched, product)
		sold = product
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateTouched(touched)
	s.broadcastStock("sale", sold, userID)
	return sold, nil
}

func (s *stockService) Cancel(productID uuid.UUID, userID string) (*model.Product, error) {
	var cancelled *model.Product
	var touched []*model.Product

	err := s.txRunner.RunInTx(func(tx repository.StockTx) error {
		product, err := lockProduct(tx, productID)
		if err != nil {
			return err
		}

		if product.SoldCount <= 0 {
			return fmt.Errorf("%w: '%s'", ErrNothingToCancel, product.Name)
		}

		if product.IsCombo {
			components, err := s.lockComponents(tx, product.ID)
			if err != nil {
				return err
			}
			for _, c := range components {
				if err := s.ApplyDelta(tx, c.product, c.quantity, -c.quantity, model.MovementCancel, nil); err != nil {
					return err
				}
				touched = append(touched, c.product)
			}
		}

		if err := s.ApplyDelta(tx, product, 1, -1, model.MovementCancel, nil); err != nil {
			return err
		}
		touched = append(touched, product)
		cancelled = product
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateTouched(touched)
	s.broadcastStock("cancel", cancelled, userID)
	return cancelled, nil
}

func (s *stockService) Adjust(productID uuid.UUID, stockDelta, soldDelta int, userID string) (*model.Product, error) {
	var adjusted *model.Product

	err := s.txRunner.RunInTx(func(tx repository.StockTx) error {
		product, err := lockProduct(tx, productID)
		if err != nil {
			return err
		}
		if err := s.ApplyDelta(tx, product, stockDelta, soldDelta, model.MovementManual, nil); err != nil {
			return err
		}
		adjusted = product
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateTouched([]*model.Product{adjusted})
	s.broadcastStock("adjust", adjusted, userID)
	return adjusted, nil
}

type lockedComponent struct {
	product  *model.Product
	quantity int
}

// lockComponents loads and locks every component of a combo. ComboItems
// come back ordered by component id, so concurrent combo sales acquire
// locks in the same order and cannot deadlock each other. Rows listing
// the same component twice are summed into one entry: each component is
// locked once and receives one combined delta, otherwise the second row
// would compute its stock from a stale copy and overwrite the first.
func (s *stockService) lockComponents(tx repository.StockTx, comboID uuid.UUID) ([]lockedComponent, error) {
	items, err := tx.ComboItems(comboID)
	if err != nil {
		return nil, err
	}

	quantities := make(map[uuid.UUID]int, len(items))
	order := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, seen := quantities[item.ComponentID]; !seen {
			order = append(order, item.ComponentID)
		}
		quantities[item.ComponentID] += item.Quantity
	}

	components := make([]lockedComponent, 0, len(order))
	for _, id := range order {
		component, err := tx.LockProduct(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, id)
			}
			return nil, err
		}
		components = append(components, lockedComponent{product: component, quantity: quantities[id]})
	}
	return components, nil
}

func lockProduct(tx repository.StockTx, id uuid.UUID) (*model.Product, error) {
	product, err := tx.LockProduct(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *stockService) invalidateTouched(products []*model.Product) {
	keys := []string{allProductsCacheKey}
	seenCategories := map[model.ProductCategory]bool{}
	for _, p := range products {
		keys = append(keys, productCacheKey(p.ID))
		if !seenCategories[p.Category] {
			seenCategories[p.Category] = true
			keys = append(keys, categoryCacheKey(p.Category))
		}
	}
	s.cache.Delete(context.Background(), keys...)
}

// broadcastStock is best effort: the send never blocks the request, a
// full hub buffer just drops the message.
func (s *stockService) broadcastStock(action string, product *model.Product, userID string) {
	payload := map[string]interface{}{
		"type":   "stock_update",
		"action": action,
		"product": map[string]interface{}{
			"id":         product.ID,
			"name":       product.Name,
			"stock":      product.Stock,
			"sold_count": product.SoldCount,
		},
		"user_id": userID,
	}
	msg, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal stock broadcast", zap.Error(err))
		return
	}
	select {
	case s.wsHub.Broadcast <- msg:
	default:
		s.log.Warn("stock broadcast dropped, hub buffer full")
	}
}
