package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go-pedidos-api/internal/model"
	"go-pedidos-api/internal/repository"
	"go-pedidos-api/internal/ws"
	"go-pedidos-api/pkg/cache"
	"go-pedidos-api/pkg/logger"
	"go-pedidos-api/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderService orchestrates the order lifecycle against the stock ledger.
// It owns the order write path exclusively; stock fields are only ever
// touched through StockService.ApplyDelta inside the shared transaction.
type OrderService interface {
	// CreateOrder reserves stock for every line item and persists the
	// order in one transaction. Availability is checked as
	// stock >= quantity for every line item regardless of category —
	// stricter than the floor-only rule at point of sale, where
	// maintenance products may back-order.
	CreateOrder(req *model.Order, userID string) (*model.Order, error)
	// UpdateOrder diffs old vs new line items and applies only the signed
	// per-product delta, all in one transaction.
	UpdateOrder(orderID uuid.UUID, newItems []model.OrderItem, userID string) (*model.Order, error)
	// DeleteOrder restores all reserved stock and removes the order.
	DeleteOrder(orderID uuid.UUID, userID string) error

	GetOrder(id uuid.UUID) (*model.Order, error)
	GetAllOrders() ([]model.Order, error)
	GetOrdersByClient(clientID uuid.UUID) ([]model.Order, error)
	GetOrdersBySection(section string) ([]model.Order, error)
	// Snapshot builds the read-only view the document generators consume,
	// with combo expansion pre-resolved.
	Snapshot(orderID uuid.UUID) (*OrderSnapshot, error)
}

// OrderSnapshot is the render-ready order view for remitos and reports.
type OrderSnapshot struct {
	Order *model.Order        `json:"order"`
	Items []OrderSnapshotItem `json:"items"`
	Total decimal.Decimal     `json:"total"`
}

type OrderSnapshotItem struct {
	Product    *model.Product            `json:"product"`
	Quantity   int                       `json:"quantity"`
	UnitPrice  decimal.Decimal           `json:"unit_price"`
	Subtotal   decimal.Decimal           `json:"subtotal"`
	Components []model.ResolvedComponent `json:"components,omitempty"`
}

type orderService struct {
	orderRepo  repository.OrderRepository
	clientRepo repository.ClientRepository
	catalog    CatalogService
	stock      StockService
	txRunner   repository.TxRunner
	cache      cache.Store
	wsHub      *ws.Hub
	log        *zap.Logger
}

func NewOrderService(
	oRepo repository.OrderRepository,
	cRepo repository.ClientRepository,
	catalog CatalogService,
	stock StockService,
	txRunner repository.TxRunner,
	store cache.Store,
	hub *ws.Hub,
) OrderService {
	return &orderService{
		orderRepo:  oRepo,
		clientRepo: cRepo,
		catalog:    catalog,
		stock:      stock,
		txRunner:   txRunner,
		cache:      store,
		wsHub:      hub,
		log:        logger.Get(),
	}
}

func validateItems(items []model.OrderItem) error {
	if len(items) == 0 {
		return validationErrorf("order requires at least one line item")
	}
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return validationErrorf("line item product id is required")
		}
		if item.Quantity <= 0 {
			return validationErrorf("line item quantity must be > 0")
		}
	}
	return nil
}

// sortedProductIDs returns the union of keys across the given quantity
// maps in ascending order, so concurrent order operations lock products in
// a stable order.
func sortedProductIDs(maps ...map[uuid.UUID]int) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, m := range maps {
		for id := range m {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}

func (s *orderService) CreateOrder(req *model.Order, userID string) (*model.Order, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		first := errs[0]
		return nil, validationErrorf("field '%s' failed on tag '%s'", first.FailedField, first.Tag)
	}
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}

	if _, err := s.clientRepo.FindByID(req.ClientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	quantities := model.QuantityByProduct(req.Items)
	var touched []*model.Product

	err := s.txRunner.RunInTx(func(tx repository.StockTx) error {
		req.CreatedBy = userID
		req.UpdatedBy = userID
		if err := tx.CreateOrder(req); err != nil {
			return err
		}

		for _, productID := range sortedProductIDs(quantities) {
			qty := quantities[productID]
			product, err := lockProduct(tx, productID)
			if err != nil {
				return err
			}
			// Order booking demands the whole quantity be on hand, even
			// for maintenance products that may back-order at the point
			// of sale.
			if product.Stock < qty {
				return fmt.Errorf("%w: '%s' has %d, requested %d", ErrInsufficientStock, product.Name, product.Stock, qty)
			}
			if err := s.stock.ApplyDelta(tx, product, -qty, qty, model.MovementOrderCreate, &req.ID); err != nil {
				return err
			}
			touched = append(touched, product)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateTouched(touched)
	created, err := s.orderRepo.FindByID(req.ID)
	if err != nil {
		return nil, err
	}
	s.broadcastOrder("order_created", created, userID)
	return created, nil
}

func (s *orderService) UpdateOrder(orderID uuid.UUID, newItems []model.OrderItem, userID string) (*model.Order, error) {
	if err := validateItems(newItems); err != nil {
		return nil, err
	}

	newQty := model.QuantityByProduct(newItems)
	var touched []*model.Product

	err := s.txRunner.RunInTx(func(tx repository.StockTx) error {
		order, err := tx.GetOrder(orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		oldQty := model.QuantityByProduct(order.Items)

		for _, productID := range sortedProductIDs(oldQty, newQty) {
			diff := newQty[productID] - oldQty[productID]
			if diff == 0 {
				continue
			}

			product, err := lockProduct(tx, productID)
			if err != nil {
				return err
			}

			if diff > 0 {
				// Additional units requested: availability check mirrors
				// order creation.
				if product.Stock < diff {
					return fmt.Errorf("%w: '%s' has %d, requested %d more", ErrInsufficientStock, product.Name, product.Stock, diff)
				}
			}
			// diff < 0 restores stock; diff > 0 consumes it. Sold count
			// moves opposite to stock and clamps at zero.
			if err := s.stock.ApplyDelta(tx, product, -diff, diff, model.MovementOrderUpdate, &orderID); err != nil {
				return err
			}
			touched = append(touched, product)
		}

		return tx.ReplaceOrderItems(orderID, newItems)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateTouched(touched)
	updated, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		return nil, err
	}
	s.broadcastOrder("order_updated", updated, userID)
	return updated, nil
}

func (s *orderService) DeleteOrder(orderID uuid.UUID, userID string) error {
	var touched []*model.Product
	var deleted *model.Order

	err := s.txRunner.RunInTx(func(tx repository.StockTx) error {
		order, err := tx.GetOrder(orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		deleted = order

		quantities := model.QuantityByProduct(order.Items)
		for _, productID := range sortedProductIDs(quantities) {
			qty := quantities[productID]
			product, err := lockProduct(tx, productID)
			if err != nil {
				return err
			}
			if err := s.stock.ApplyDelta(tx, product, qty, -qty, model.MovementOrderDelete, &orderID); err != nil {
				return err
			}
			touched = append(touched, product)
		}

		return tx.DeleteOrder(orderID)
	})
	if err != nil {
		return err
	}

	s.invalidateTouched(touched)
	s.broadcastOrder("order_deleted", deleted, userID)
	return nil
}

func (s *orderService) GetOrder(id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) GetAllOrders() ([]model.Order, error) {
	return s.orderRepo.FindAll()
}

func (s *orderService) GetOrdersByClient(clientID uuid.UUID) ([]model.Order, error) {
	return s.orderRepo.FindByClient(clientID)
}

func (s *orderService) GetOrdersBySection(section string) ([]model.Order, error) {
	return s.orderRepo.FindBySection(section)
}

func (s *orderService) Snapshot(orderID uuid.UUID) (*OrderSnapshot, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	snapshot := &OrderSnapshot{Order: order, Total: decimal.Zero}
	for _, item := range order.Items {
		product, err := s.catalog.Resolve(model.RefByID(item.ProductID))
		if err != nil {
			return nil, err
		}

		snapItem := OrderSnapshotItem{
			Product:   product,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			Subtotal:  product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
		if product.IsCombo {
			components, err := s.catalog.ExpandCombo(product.ID)
			if err != nil {
				return nil, err
			}
			snapItem.Components = components
		}

		snapshot.Items = append(snapshot.Items, snapItem)
		snapshot.Total = snapshot.Total.Add(snapItem.Subtotal)
	}
	return snapshot, nil
}

func (s *orderService) invalidateTouched(products []*model.Product) {
	keys := []string{allProductsCacheKey}
	seen := map[model.ProductCategory]bool{}
	for _, p := range products {
		keys = append(keys, productCacheKey(p.ID))
		if !seen[p.Category] {
			seen[p.Category] = true
			keys = append(keys, categoryCacheKey(p.Category))
		}
	}
	s.cache.Delete(context.Background(), keys...)
}

// broadcastOrder is best effort, same non-blocking contract as the stock
// broadcast.
func (s *orderService) broadcastOrder(action string, order *model.Order, userID string) {
	if order == nil {
		return
	}
	payload := map[string]interface{}{
		"type":     "order_update",
		"action":   action,
		"order_id": order.ID,
		"user_id":  userID,
	}
	msg, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal order broadcast", zap.Error(err))
		return
	}
	select {
	case s.wsHub.Broadcast <- msg:
	default:
		s.log.Warn("order broadcast dropped, hub buffer full")
	}
}
