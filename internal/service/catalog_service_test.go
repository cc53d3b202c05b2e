package service

import (
	"testing"

	"go-pedidos-api/internal/model"
	"go-pedidos-api/internal/ws"
	"go-pedidos-api/pkg/cache"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogEnv(store *memStore, c cache.Store) CatalogService {
	hub := ws.NewHub()
	go hub.Run()
	return NewCatalogService(&memProductRepo{store: store}, c, hub)
}

func TestCreateProductValidation(t *testing.T) {
	store := newMemStore()
	existing := makeProduct("trapo", model.CategoryMaintenance, 5, 0)
	store.addProduct(existing)
	nestedCombo := makeCombo("kit", 3, model.ComboItem{ComponentID: existing.ID, Quantity: 1})
	store.addProduct(nestedCombo)
	svc := newCatalogEnv(store, cache.NewNoop())

	cases := []struct {
		name string
		req  *model.Product
	}{
		{"missing name", &model.Product{Category: model.CategoryCleaning, Stock: 5}},
		{"unknown category", &model.Product{Name: "x", Category: "FOOD", Stock: 5}},
		{"negative price", &model.Product{Name: "x", Category: model.CategoryMaintenance, Price: decimal.NewFromInt(-1)}},
		{"cleaning below floor", &model.Product{Name: "x", Category: model.CategoryCleaning, Stock: 0}},
		{"combo without components", &model.Product{Name: "x", Category: model.CategoryMaintenance, Stock: 1, IsCombo: true}},
		{"combo component missing", &model.Product{Name: "x", Category: model.CategoryMaintenance, Stock: 1, IsCombo: true,
			ComboItems: []model.ComboItem{{ComponentID: uuid.New(), Quantity: 1}}}},
		{"combo component zero quantity", &model.Product{Name: "x", Category: model.CategoryMaintenance, Stock: 1, IsCombo: true,
			ComboItems: []model.ComboItem{{ComponentID: existing.ID, Quantity: 0}}}},
		{"combo nested in combo", &model.Product{Name: "x", Category: model.CategoryMaintenance, Stock: 1, IsCombo: true,
			ComboItems: []model.ComboItem{{ComponentID: nestedCombo.ID, Quantity: 1}}}},
		{"plain product with components", &model.Product{Name: "x", Category: model.CategoryMaintenance, Stock: 1,
			ComboItems: []model.ComboItem{{ComponentID: existing.ID, Quantity: 1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.CreateProduct(tc.req, "user-1")
			assert.True(t, IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestCreateAndGetProduct(t *testing.T) {
	store := newMemStore()
	svc := newCatalogEnv(store, cache.NewNoop())

	req := &model.Product{
		Name:     "lavandina",
		Category: model.CategoryCleaning,
		Price:    decimal.NewFromFloat(85.50),
		Stock:    4,
	}
	require.NoError(t, svc.CreateProduct(req, "user-1"))
	require.NotEqual(t, uuid.Nil, req.ID)

	got, err := svc.GetProduct(req.ID)
	require.NoError(t, err)
	assert.Equal(t, "lavandina", got.Name)
	assert.Equal(t, "user-1", got.CreatedBy)
	assert.True(t, got.Price.Equal(decimal.NewFromFloat(85.50)))
}

func TestGetProductServesFromCache(t *testing.T) {
	store := newMemStore()
	p := makeProduct("foco", model.CategoryMaintenance, 5, 0)
	store.addProduct(p)
	c := newMemCache()
	svc := newCatalogEnv(store, c)

	first, err := svc.GetProduct(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Stock)

	// Mutate the store behind the cache: a read inside the TTL still sees
	// the cached copy. Stock mutations go through invalidation, so this
	// staleness only ever lasts until the next write.
	store.products[p.ID].Stock = 99

	second, err := svc.GetProduct(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, second.Stock)
}

func TestUpdateProductInvalidatesCache(t *testing.T) {
	store := newMemStore()
	p := makeProduct("foco", model.CategoryMaintenance, 5, 0)
	store.addProduct(p)
	c := newMemCache()
	svc := newCatalogEnv(store, c)

	_, err := svc.GetProduct(p.ID)
	require.NoError(t, err)

	update := &model.Product{
		Name:     "foco led",
		Category: model.CategoryMaintenance,
		Price:    decimal.NewFromFloat(120),
		Stock:    8,
	}
	updated, err := svc.UpdateProduct(p.ID, update, "user-2")
	require.NoError(t, err)
	assert.Equal(t, "foco led", updated.Name)
	assert.Equal(t, "user-2", updated.UpdatedBy)
	assert.True(t, c.wasDeleted(productCacheKey(p.ID)))

	got, err := svc.GetProduct(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "foco led", got.Name, "read after update must not serve the stale entry")
}

func TestUpdateProductNotFound(t *testing.T) {
	store := newMemStore()
	svc := newCatalogEnv(store, cache.NewNoop())

	_, err := svc.UpdateProduct(uuid.New(), &model.Product{
		Name:     "x",
		Category: model.CategoryMaintenance,
	}, "user-1")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestDeleteProductBlockedWhileInCombo(t *testing.T) {
	store := newMemStore()
	comp := makeProduct("trapo", model.CategoryMaintenance, 5, 0)
	store.addProduct(comp)
	combo := makeCombo("kit limpieza", 3, model.ComboItem{ComponentID: comp.ID, Quantity: 2})
	store.addProduct(combo)
	svc := newCatalogEnv(store, cache.NewNoop())

	err := svc.DeleteProduct(comp.ID, "user-1")
	require.ErrorIs(t, err, ErrProductInUse)
	assert.Contains(t, err.Error(), "kit limpieza")

	_, err = svc.GetProduct(comp.ID)
	assert.NoError(t, err, "blocked delete must leave the product in place")
}

func TestDeleteProduct(t *testing.T) {
	store := newMemStore()
	p := makeProduct("foco", model.CategoryMaintenance, 5, 0)
	store.addProduct(p)
	svc := newCatalogEnv(store, cache.NewNoop())

	require.NoError(t, svc.DeleteProduct(p.ID, "user-1"))

	_, err := svc.GetProduct(p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestResolveProductRef(t *testing.T) {
	store := newMemStore()
	p := makeProduct("foco", model.CategoryMaintenance, 5, 0)
	store.addProduct(p)
	svc := newCatalogEnv(store, cache.NewNoop())

	byID, err := svc.Resolve(model.RefByID(p.ID))
	require.NoError(t, err)
	assert.Equal(t, p.ID, byID.ID)

	// A resolved ref is returned as-is, even if the record is not stored.
	detached := makeProduct("no persistido", model.CategoryMaintenance, 1, 0)
	resolved, err := svc.Resolve(model.RefResolved(detached))
	require.NoError(t, err)
	assert.Same(t, detached, resolved)

	_, err = svc.Resolve(model.RefByID(uuid.New()))
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestExpandCombo(t *testing.T) {
	store := newMemStore()
	comp1 := makeProduct("trapo", model.CategoryMaintenance, 5, 0)
	comp2 := makeProduct("balde", model.CategoryMaintenance, 3, 0)
	store.addProduct(comp1)
	store.addProduct(comp2)
	combo := makeCombo("kit", 2,
		model.ComboItem{ComponentID: comp1.ID, Quantity: 2},
		model.ComboItem{ComponentID: comp2.ID, Quantity: 1},
	)
	store.addProduct(combo)
	svc := newCatalogEnv(store, cache.NewNoop())

	components, err := svc.ExpandCombo(combo.ID)
	require.NoError(t, err)
	require.Len(t, components, 2)

	plain, err := svc.ExpandCombo(comp1.ID)
	require.NoError(t, err)
	assert.Empty(t, plain, "plain products expand to nothing")
}

func TestComputeComboPrice(t *testing.T) {
	store := newMemStore()
	comp1 := makeProduct("trapo", model.CategoryMaintenance, 5, 0)
	comp1.Price = decimal.NewFromFloat(50)
	comp2 := makeProduct("balde", model.CategoryMaintenance, 3, 0)
	comp2.Price = decimal.NewFromFloat(80)
	store.addProduct(comp1)
	store.addProduct(comp2)
	combo := makeCombo("kit", 2,
		model.ComboItem{ComponentID: comp1.ID, Quantity: 2},
		model.ComboItem{ComponentID: comp2.ID, Quantity: 1},
	)
	// Stored combo price diverges from the component sum on purpose.
	combo.Price = decimal.NewFromFloat(150)
	store.addProduct(combo)
	svc := newCatalogEnv(store, cache.NewNoop())

	total, err := svc.ComputeComboPrice(combo.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromFloat(180)), "2x50 + 1x80, got %s", total)

	got, err := svc.GetProduct(combo.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.NewFromFloat(150)), "stored price stays authoritative")
}

func TestGetProductsByCategory(t *testing.T) {
	store := newMemStore()
	store.addProduct(makeProduct("lavandina", model.CategoryCleaning, 5, 0))
	store.addProduct(makeProduct("foco", model.CategoryMaintenance, 3, 0))
	svc := newCatalogEnv(store, cache.NewNoop())

	cleaning, err := svc.GetProductsByCategory(model.CategoryCleaning)
	require.NoError(t, err)
	require.Len(t, cleaning, 1)
	assert.Equal(t, "lavandina", cleaning[0].Name)

	_, err = svc.GetProductsByCategory("FOOD")
	assert.True(t, IsValidation(err))
}
