package service

import (
	"errors"
	"testing"

	"go-pedidos-api/internal/model"
	"go-pedidos-api/internal/ws"
	"go-pedidos-api/pkg/cache"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStockEnv(store *memStore, c cache.Store) StockService {
	hub := ws.NewHub()
	go hub.Run()
	return NewStockService(&memTxRunner{store: store}, c, hub)
}

func makeProduct(name string, category model.ProductCategory, stock, sold int) *model.Product {
	p := &model.Product{
		Name:      name,
		Category:  category,
		Price:     decimal.NewFromFloat(100),
		Stock:     stock,
		SoldCount: sold,
	}
	p.ID = uuid.New()
	return p
}

func makeCombo(name string, stock int, items ...model.ComboItem) *model.Product {
	p := &model.Product{
		Name:     name,
		Category: model.CategoryMaintenance,
		Price:    decimal.NewFromFloat(250),
		Stock:    stock,
		IsCombo:  true,
	}
	p.ID = uuid.New()
	p.ComboItems = items
	return p
}

func TestCheckFloor(t *testing.T) {
	cleaning := makeProduct("lavandina", model.CategoryCleaning, 3, 0)
	maintenance := makeProduct("foco", model.CategoryMaintenance, 0, 0)

	assert.NoError(t, checkFloor(cleaning, -2), "stock 3 - 2 = 1 stays at the floor")
	assert.ErrorIs(t, checkFloor(cleaning, -3), ErrInsufficientStock, "stock 3 - 3 = 0 breaks the floor")
	assert.NoError(t, checkFloor(cleaning, 5), "positive deltas are never floor-checked")
	assert.NoError(t, checkFloor(maintenance, -10), "maintenance has no floor")
}

func TestSellDecrementsStockAndRecordsMovement(t *testing.T) {
	store := newMemStore()
	p := makeProduct("foco", model.CategoryMaintenance, 5, 0)
	store.addProduct(p)
	svc := newStockEnv(store, cache.NewNoop())

	sold, err := svc.Sell(p.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 4, sold.Stock)
	assert.Equal(t, 1, sold.SoldCount)

	stock, soldCount := store.stockOf(p.ID)
	assert.Equal(t, 4, stock)
	assert.Equal(t, 1, soldCount)

	require.Len(t, store.movements, 1)
	mov := store.movements[0]
	assert.Equal(t, model.MovementSale, mov.Type)
	assert.Equal(t, -1, mov.Quantity)
	assert.Equal(t, 4, mov.StockAfter)
	assert.Nil(t, mov.OrderID)
}

func TestSellCleaningAtFloorIsRejected(t *testing.T) {
	store := newMemStore()
	p := makeProduct("lavandina", model.CategoryCleaning, 1, 0)
	store.addProduct(p)
	svc := newStockEnv(store, cache.NewNoop())

	_, err := svc.Sell(p.ID, "user-1")
	require.ErrorIs(t, err, ErrInsufficientStock)

	stock, soldCount := store.stockOf(p.ID)
	assert.Equal(t, 1, stock, "rejected sale must not touch stock")
	assert.Equal(t, 0, soldCount)
	assert.Empty(t, store.movements)
}

func TestSellCleaningAboveFloor(t *testing.T) {
	store := newMemStore()
	p := makeProduct("lavandina", model.CategoryCleaning, 2, 0)
	store.addProduct(p)
	svc := newStockEnv(store, cache.NewNoop())

	sold, err := svc.Sell(p.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, sold.Stock, "stock lands exactly on the floor")
	assert.Equal(t, 1, sold.SoldCount)
}

func TestSellMaintenanceBackorders(t *testing.T) {
	store := newMemStore()
	p := makeProduct("repuesto", model.CategoryMaintenance, 0, 0)
	store.addProduct(p)
	svc := newStockEnv(store, cache.NewNoop())

	sold, err := svc.Sell(p.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, -1, sold.Stock, "maintenance sells below zero")
	assert.Equal(t, 1, sold.SoldCount)
}

func TestSellUnknownProduct(t *testing.T) {
	store := newMemStore()
	svc := newStockEnv(store, cache.NewNoop())

	_, err := svc.Sell(uuid.New(), "user-1")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestSellComboDecrementsEveryComponent(t *testing.T) {
	store := newMemStore()
	comp1 := makeProduct("trapo", model.CategoryMaintenance, 10, 0)
	comp2 := makeProduct("balde", model.CategoryMaintenance, 5, 0)
	store.addProduct(comp1)
	store.addProduct(comp2)
	combo := makeCombo("kit limpieza", 4,
		model.ComboItem{ComponentID: comp1.ID, Quantity: 2},
		model.ComboItem{ComponentID: comp2.ID, Quantity: 1},
	)
	store.addProduct(combo)
	svc := newStockEnv(store, cache.NewNoop())

	sold, err := svc.Sell(combo.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, sold.Stock)
	assert.Equal(t, 1, sold.SoldCount)

	stock1, sold1 := store.stockOf(comp1.ID)
	assert.Equal(t, 8, stock1)
	assert.Equal(t, 2, sold1)
	stock2, sold2 := store.stockOf(comp2.ID)
	assert.Equal(t, 4, stock2)
	assert.Equal(t, 1, sold2)

	assert.Len(t, store.movements, 3, "one movement per component plus the combo itself")
}

func TestSellComboRejectedWhenComponentAtFloor(t *testing.T) {
	store := newMemStore()
	comp1 := makeProduct("trapo", model.CategoryMaintenance, 10, 0)
	comp2 := makeProduct("lavandina", model.CategoryCleaning, 1, 0)
	store.addProduct(comp1)
	store.addProduct(comp2)
	combo := makeCombo("kit limpieza", 4,
		model.ComboItem{ComponentID: comp1.ID, Quantity: 2},
		model.ComboItem{ComponentID: comp2.ID, Quantity: 1},
	)
	store.addProduct(combo)
	svc := newStockEnv(store, cache.NewNoop())

	_, err := svc.Sell(combo.ID, "user-1")
	require.ErrorIs(t, err, ErrInsufficientStock)

	// Nothing moved: not the first component, not the combo.
	stock1, sold1 := store.stockOf(comp1.ID)
	assert.Equal(t, 10, stock1)
	assert.Equal(t, 0, sold1)
	comboStock, comboSold := store.stockOf(combo.ID)
	assert.Equal(t, 4, comboStock)
	assert.Equal(t, 0, comboSold)
	assert.Empty(t, store.movements)
}

func TestSellComboRollsBackOnStorageFailure(t *testing.T) {
	store := newMemStore()
	comp1 := makeProduct("trapo", model.CategoryMaintenance, 10, 0)
	comp2 := makeProduct("balde", model.CategoryMaintenance, 5, 0)
	store.addProduct(comp1)
	store.addProduct(comp2)
	combo := makeCombo("kit limpieza", 4,
		model.ComboItem{ComponentID: comp1.ID, Quantity: 2},
		model.ComboItem{ComponentID: comp2.ID, Quantity: 1},
	)
	store.addProduct(combo)

	// Updating the second component fails after the first already applied.
	store.failStockUpdateFor[comp2.ID] = true
	svc := newStockEnv(store, cache.NewNoop())

	_, err := svc.Sell(combo.ID, "user-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInsufficientStock))

	stock1, sold1 := store.stockOf(comp1.ID)
	assert.Equal(t, 10, stock1, "partial decrement must roll back")
	assert.Equal(t, 0, sold1)
	comboStock, _ := store.stockOf(combo.ID)
	assert.Equal(t, 4, comboStock)
	assert.Empty(t, store.movements)
}

func TestSellComboSumsDuplicateComponentRows(t *testing.T) {
	store := newMemStore()
	comp := makeProduct("trapo", model.CategoryMaintenance, 10, 0)
	store.addProduct(comp)
	combo := makeCombo("kit doble", 4,
		model.ComboItem{ComponentID: comp.ID, Quantity: 2},
		model.ComboItem{ComponentID: comp.ID, Quantity: 3},
	)
	store.addProduct(combo)
	svc := newStockEnv(store, cache.NewNoop())

	_, err := svc.Sell(combo.ID, "user-1")
	require.NoError(t, err)

	stock, sold := store.stockOf(comp.ID)
	assert.Equal(t, 5, stock, "both rows apply: 10 - (2+3)")
	assert.Equal(t, 5, sold)

	assert.Len(t, store.movements, 2, "one combined movement for the component plus the combo")
}

func TestSellComboDuplicateRowsCheckCombinedFloor(t *testing.T) {
	store := newMemStore()
	// Rows of 2 and 3 individually pass the floor on stock 5, the combined
	// 5 does not.
	comp := makeProduct("lavandina", model.CategoryCleaning, 5, 0)
	store.addProduct(comp)
	combo := makeCombo("kit doble", 4,
		model.ComboItem{ComponentID: comp.ID, Quantity: 2},
		model.ComboItem{ComponentID: comp.ID, Quantity: 3},
	)
	store.addProduct(combo)
	svc := newStockEnv(store, cache.NewNoop())

	_, err := svc.Sell(combo.ID, "user-1")
	require.ErrorIs(t, err, ErrInsufficientStock)

	stock, sold := store.stockOf(comp.ID)
	assert.Equal(t, 5, stock)
	assert.Equal(t, 0, sold)
}

func TestCancelComboSumsDuplicateComponentRows(t *testing.T) {
	store := newMemStore()
	comp := makeProduct("trapo", model.CategoryMaintenance, 5, 5)
	store.addProduct(comp)
	combo := makeCombo("kit doble", 3,
		model.ComboItem{ComponentID: comp.ID, Quantity: 2},
		model.ComboItem{ComponentID: comp.ID, Quantity: 3},
	)
	combo.SoldCount = 1
	store.addProduct(combo)
	svc := newStockEnv(store, cache.NewNoop())

	_, err := svc.Cancel(combo.ID, "user-1")
	require.NoError(t, err)

	stock, sold := store.stockOf(comp.ID)
	assert.Equal(t, 10, stock, "both rows restore: 5 + (2+3)")
	assert.Equal(t, 0, sold)
}

func TestCancelReversesSale(t *testing.T) {
	store := newMemStore()
	p := makeProduct("foco", model.CategoryMaintenance, 5, 0)
	store.addProduct(p)
	svc := newStockEnv(store, cache.NewNoop())

	_, err := svc.Sell(p.ID, "user-1")
	require.NoError(t, err)

	cancelled, err := svc.Cancel(p.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, cancelled.Stock)
	assert.Equal(t, 0, cancelled.SoldCount)

	require.Len(t, store.movements, 2)
	assert.Equal(t, model.MovementCancel, store.movements[1].Type)
	assert.Equal(t, 1, store.movements[1].Quantity)
}

func TestCancelWithoutSales(t *testing.T) {
	store := newMemStore()
	p := makeProduct("foco", model.CategoryMaintenance, 5, 0)
	store.addProduct(p)
	svc := newStockEnv(store, cache.NewNoop())

	_, err := svc.Cancel(p.ID, "user-1")
	assert.ErrorIs(t, err, ErrNothingToCancel)
}

func TestCancelComboRestoresComponentsAndClampsSold(t *testing.T) {
	store := newMemStore()
	// Component sold count starts at 0 even though the combo shows a sale,
	// e.g. after a manual adjustment. Cancelling must clamp at zero.
	comp := makeProduct("trapo", model.CategoryMaintenance, 8, 0)
	store.addProduct(comp)
	combo := makeCombo("kit", 3, model.ComboItem{ComponentID: comp.ID, Quantity: 2})
	combo.SoldCount = 1
	store.addProduct(combo)
	svc := newStockEnv(store, cache.NewNoop())

	cancelled, err := svc.Cancel(combo.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 4, cancelled.Stock)
	assert.Equal(t, 0, cancelled.SoldCount)

	stock, sold := store.stockOf(comp.ID)
	assert.Equal(t, 10, stock, "component stock restored by its quantity")
	assert.Equal(t, 0, sold, "sold count clamps at zero instead of going negative")
}

func TestAdjustRespectsFloor(t *testing.T) {
	store := newMemStore()
	p := makeProduct("lavandina", model.CategoryCleaning, 3, 0)
	store.addProduct(p)
	svc := newStockEnv(store, cache.NewNoop())

	_, err := svc.Adjust(p.ID, -3, 0, "user-1")
	require.ErrorIs(t, err, ErrInsufficientStock)

	adjusted, err := svc.Adjust(p.ID, -2, 0, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, adjusted.Stock)

	require.Len(t, store.movements, 1)
	assert.Equal(t, model.MovementManual, store.movements[0].Type)
}

func TestBroadcastNeverBlocksWithoutHubConsumer(t *testing.T) {
	store := newMemStore()
	p := makeProduct("foco", model.CategoryMaintenance, 5, 0)
	store.addProduct(p)

	// Hub deliberately not running: sends past the buffer are dropped
	// instead of wedging the request path.
	hub := ws.NewHub()
	svc := NewStockService(&memTxRunner{store: store}, cache.NewNoop(), hub)

	for i := 0; i < 100; i++ {
		_, err := svc.Sell(p.ID, "user-1")
		require.NoError(t, err)
	}

	stock, sold := store.stockOf(p.ID)
	assert.Equal(t, -95, stock)
	assert.Equal(t, 100, sold)
}

func TestSellInvalidatesProductCache(t *testing.T) {
	store := newMemStore()
	p := makeProduct("foco", model.CategoryMaintenance, 5, 0)
	store.addProduct(p)
	c := newMemCache()
	svc := newStockEnv(store, c)

	_, err := svc.Sell(p.ID, "user-1")
	require.NoError(t, err)

	assert.True(t, c.wasDeleted(productCacheKey(p.ID)))
	assert.True(t, c.wasDeleted(allProductsCacheKey))
	assert.True(t, c.wasDeleted(categoryCacheKey(model.CategoryMaintenance)))
}
