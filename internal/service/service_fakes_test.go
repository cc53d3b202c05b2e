package service

import (
	"context"
	"sync"
	"time"

	"go-pedidos-api/internal/model"
	"go-pedidos-api/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memStore is the in-memory backing state shared by the fake repositories
// and the fake transaction runner.
type memStore struct {
	mu        sync.Mutex
	products  map[uuid.UUID]*model.Product
	combos    map[uuid.UUID][]model.ComboItem
	orders    map[uuid.UUID]*model.Order
	clients   map[uuid.UUID]*model.Client
	movements []model.StockMovement

	// failStockUpdateFor simulates a storage failure when updating the
	// given product inside a transaction.
	failStockUpdateFor map[uuid.UUID]bool
}

func newMemStore() *memStore {
	return &memStore{
		products:           map[uuid.UUID]*model.Product{},
		combos:             map[uuid.UUID][]model.ComboItem{},
		orders:             map[uuid.UUID]*model.Order{},
		clients:            map[uuid.UUID]*model.Client{},
		failStockUpdateFor: map[uuid.UUID]bool{},
	}
}

func (m *memStore) addProduct(p *model.Product) *model.Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if len(p.ComboItems) > 0 {
		items := make([]model.ComboItem, len(p.ComboItems))
		copy(items, p.ComboItems)
		for i := range items {
			items[i].ComboID = p.ID
		}
		m.combos[p.ID] = items
	}
	cp := *p
	cp.ComboItems = nil
	m.products[p.ID] = &cp
	return p
}

func (m *memStore) addClient(c *model.Client) *model.Client {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	m.clients[c.ID] = &cp
	return c
}

func (m *memStore) stockOf(id uuid.UUID) (stock, sold int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[id]
	return p.Stock, p.SoldCount
}

func copyProduct(p *model.Product) *model.Product {
	cp := *p
	if p.ComboItems != nil {
		cp.ComboItems = make([]model.ComboItem, len(p.ComboItems))
		copy(cp.ComboItems, p.ComboItems)
	}
	return &cp
}

func copyOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = make([]model.OrderItem, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}

type memSnapshot struct {
	products  map[uuid.UUID]*model.Product
	combos    map[uuid.UUID][]model.ComboItem
	orders    map[uuid.UUID]*model.Order
	movements []model.StockMovement
}

func (m *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		products:  map[uuid.UUID]*model.Product{},
		combos:    map[uuid.UUID][]model.ComboItem{},
		orders:    map[uuid.UUID]*model.Order{},
		movements: append([]model.StockMovement{}, m.movements...),
	}
	for id, p := range m.products {
		snap.products[id] = copyProduct(p)
	}
	for id, items := range m.combos {
		snap.combos[id] = append([]model.ComboItem{}, items...)
	}
	for id, o := range m.orders {
		snap.orders[id] = copyOrder(o)
	}
	return snap
}

func (m *memStore) restore(snap memSnapshot) {
	m.products = snap.products
	m.combos = snap.combos
	m.orders = snap.orders
	m.movements = snap.movements
}

// memTxRunner emulates transactional semantics: the callback mutates the
// store directly and any error restores the pre-transaction snapshot.
type memTxRunner struct {
	store *memStore
}

func (r *memTxRunner) RunInTx(fn func(tx repository.StockTx) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	snap := r.store.snapshot()
	if err := fn(&memTx{store: r.store}); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

type memTx struct {
	store *memStore
}

func (t *memTx) LockProduct(id uuid.UUID) (*model.Product, error) {
	p, ok := t.store.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyProduct(p), nil
}

func (t *memTx) ComboItems(comboID uuid.UUID) ([]model.ComboItem, error) {
	return append([]model.ComboItem{}, t.store.combos[comboID]...), nil
}

func (t *memTx) UpdateProductStock(id uuid.UUID, stock, soldCount int) error {
	if t.store.failStockUpdateFor[id] {
		return gorm.ErrInvalidTransaction
	}
	p, ok := t.store.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Stock = stock
	p.SoldCount = soldCount
	return nil
}

func (t *memTx) RecordMovement(m *model.StockMovement) error {
	t.store.movements = append(t.store.movements, *m)
	return nil
}

func (t *memTx) GetOrder(id uuid.UUID) (*model.Order, error) {
	o, ok := t.store.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyOrder(o), nil
}

func (t *memTx) CreateOrder(o *model.Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedAt = time.Now()
	t.store.orders[o.ID] = copyOrder(o)
	return nil
}

func (t *memTx) ReplaceOrderItems(orderID uuid.UUID, items []model.OrderItem) error {
	o, ok := t.store.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.Items = make([]model.OrderItem, len(items))
	copy(o.Items, items)
	for i := range o.Items {
		o.Items[i].OrderID = orderID
	}
	return nil
}

func (t *memTx) DeleteOrder(id uuid.UUID) error {
	delete(t.store.orders, id)
	return nil
}

// memProductRepo implements repository.ProductRepository over memStore.
// Methods take the store mutex; services only call repositories outside
// RunInTx, so this cannot self-deadlock.
type memProductRepo struct {
	store *memStore
}

func (r *memProductRepo) Create(p *model.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.addProduct(p)
	return nil
}

func (r *memProductRepo) FindAll() ([]model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Product
	for _, p := range r.store.products {
		out = append(out, *r.withItems(p))
	}
	return out, nil
}

func (r *memProductRepo) FindByCategory(category model.ProductCategory) ([]model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Product
	for _, p := range r.store.products {
		if p.Category == category {
			out = append(out, *r.withItems(p))
		}
	}
	return out, nil
}

func (r *memProductRepo) FindByID(id uuid.UUID) (*model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.withItems(p), nil
}

func (r *memProductRepo) withItems(p *model.Product) *model.Product {
	cp := copyProduct(p)
	cp.ComboItems = append([]model.ComboItem{}, r.store.combos[p.ID]...)
	return cp
}

func (r *memProductRepo) Update(p *model.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *p
	cp.ComboItems = nil
	r.store.products[p.ID] = &cp
	return nil
}

func (r *memProductRepo) Delete(id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.products, id)
	delete(r.store.combos, id)
	return nil
}

func (r *memProductRepo) ReplaceComboItems(comboID uuid.UUID, items []model.ComboItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]model.ComboItem, len(items))
	copy(out, items)
	for i := range out {
		out[i].ComboID = comboID
	}
	r.store.combos[comboID] = out
	return nil
}

func (r *memProductRepo) CombosUsingComponent(componentID uuid.UUID) ([]model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Product
	for comboID, items := range r.store.combos {
		for _, item := range items {
			if item.ComponentID == componentID {
				if p, ok := r.store.products[comboID]; ok {
					out = append(out, *copyProduct(p))
				}
				break
			}
		}
	}
	return out, nil
}

// memOrderRepo implements repository.OrderRepository over memStore.
type memOrderRepo struct {
	store *memStore
}

func (r *memOrderRepo) FindAll() ([]model.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Order
	for _, o := range r.store.orders {
		out = append(out, *copyOrder(o))
	}
	return out, nil
}

func (r *memOrderRepo) FindByID(id uuid.UUID) (*model.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	o, ok := r.store.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyOrder(o), nil
}

func (r *memOrderRepo) FindByClient(clientID uuid.UUID) ([]model.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Order
	for _, o := range r.store.orders {
		if o.ClientID == clientID {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

func (r *memOrderRepo) FindBySection(section string) ([]model.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Order
	for _, o := range r.store.orders {
		if o.ServiceSection == section {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

func (r *memOrderRepo) CountByClient(clientID uuid.UUID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var count int64
	for _, o := range r.store.orders {
		if o.ClientID == clientID {
			count++
		}
	}
	return count, nil
}

// memClientRepo implements repository.ClientRepository over memStore.
type memClientRepo struct {
	store *memStore
}

func (r *memClientRepo) Create(c *model.Client) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.addClient(c)
	return nil
}

func (r *memClientRepo) FindAll() ([]model.Client, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Client
	for _, c := range r.store.clients {
		out = append(out, *c)
	}
	return out, nil
}

func (r *memClientRepo) FindByID(id uuid.UUID) (*model.Client, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.clients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memClientRepo) Update(c *model.Client) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *c
	r.store.clients[c.ID] = &cp
	return nil
}

func (r *memClientRepo) Delete(id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.clients, id)
	return nil
}

// memCache records cache traffic so tests can assert invalidation.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *memCache) Delete(ctx context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.deleted = append(c.deleted, k)
	}
}

func (c *memCache) wasDeleted(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.deleted {
		if k == key {
			return true
		}
	}
	return false
}
