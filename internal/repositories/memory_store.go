package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"
	"lapak/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of the product, cart and order
// repositories backed by one set of maps, so a single snapshot can cover all
// three aggregates. It is used by the order service tests and as a fallback
// when no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]models.Product
	carts    map[string]models.Cart // keyed by user ID
	orders   map[string]models.Order
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]models.Product),
		carts:    make(map[string]models.Cart),
		orders:   make(map[string]models.Order),
	}
}

// MemoryStore itself acts as the UnitOfWork over its repositories.
var _ UnitOfWork = (*MemoryStore)(nil)

// Products returns the product repository view of the store.
func (s *MemoryStore) Products() ProductRepository { return &memoryProductRepo{s: s} }

// Carts returns the cart repository view of the store.
func (s *MemoryStore) Carts() CartRepository { return &memoryCartRepo{s: s} }

// Orders returns the order repository view of the store.
func (s *MemoryStore) Orders() OrderRepository { return &memoryOrderRepo{s: s} }

// snapshot deep-copies the store's state for rollback.
func (s *MemoryStore) snapshot() (map[string]models.Product, map[string]models.Cart, map[string]models.Order) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make(map[string]models.Product, len(s.products))
	for id, p := range s.products {
		products[id] = p
	}
	carts := make(map[string]models.Cart, len(s.carts))
	for id, c := range s.carts {
		c.Items = append([]models.CartItem(nil), c.Items...)
		carts[id] = c
	}
	orders := make(map[string]models.Order, len(s.orders))
	for id, o := range s.orders {
		o.Items = append([]models.OrderItem(nil), o.Items...)
		orders[id] = o
	}
	return products, carts, orders
}

// restore replaces the store's state with a previously taken snapshot.
func (s *MemoryStore) restore(products map[string]models.Product, carts map[string]models.Cart, orders map[string]models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
	s.carts = carts
	s.orders = orders
}

// MemoryTxManager runs units of work against a MemoryStore. Transactions are
// serialized by a dedicated mutex, and a failed unit of work restores the
// snapshot taken before it ran, so callers observe all-or-nothing semantics
// just like the database-backed manager.
type MemoryTxManager struct {
	txMu  sync.Mutex
	store *MemoryStore
}

// NewMemoryTxManager creates a TxManager over the given store.
func NewMemoryTxManager(store *MemoryStore) *MemoryTxManager {
	return &MemoryTxManager{store: store}
}

// Do executes fn against the store, rolling back every write if fn fails.
func (m *MemoryTxManager) Do(fn func(uow UnitOfWork) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	products, carts, orders := m.store.snapshot()
	if err := fn(m.store); err != nil {
		m.store.restore(products, carts, orders)
		return err
	}
	return nil
}

// --- product repository ---

type memoryProductRepo struct {
	s *MemoryStore
}

func (r *memoryProductRepo) GetAll() ([]models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	products := make([]models.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (r *memoryProductRepo) GetByID(id string) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (r *memoryProductRepo) Create(product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	product.InStock = product.Quantity > 0
	r.s.products[product.ID] = *product
	return nil
}

func (r *memoryProductRepo) Update(product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[product.ID]; !ok {
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrNotFound)
	}
	product.InStock = product.Quantity > 0
	r.s.products[product.ID] = *product
	return nil
}

func (r *memoryProductRepo) Delete(id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	delete(r.s.products, id)
	return nil
}

func (r *memoryProductRepo) DecrementQuantity(id string, amount int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok || p.Quantity < amount {
		return fmt.Errorf("product %s: %w", id, ErrStockConflict)
	}
	p.Quantity -= amount
	p.InStock = p.Quantity > 0
	r.s.products[id] = p
	return nil
}

func (r *memoryProductRepo) RestoreQuantity(id string, amount int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	p.Quantity += amount
	p.InStock = true
	r.s.products[id] = p
	return nil
}

// --- cart repository ---

type memoryCartRepo struct {
	s *MemoryStore
}

func (r *memoryCartRepo) GetByUserID(userID string) (*models.Cart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	cart, ok := r.s.carts[userID]
	if !ok {
		return nil, fmt.Errorf("cart for user %s: %w", userID, ErrNotFound)
	}
	cart.Items = append([]models.CartItem(nil), cart.Items...)
	return &cart, nil
}

func (r *memoryCartRepo) AddItem(userID string, item models.CartItem) (*models.Cart, error) {
	r.s.mu.Lock()

	cart, ok := r.s.carts[userID]
	if !ok {
		cart = models.Cart{
			ID:        uuid.New().String(),
			UserID:    userID,
			CreatedAt: time.Now(),
		}
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == item.ProductID {
			cart.Items[i].Quantity += item.Quantity
			cart.Items[i].Price = item.Price
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, item)
	}
	cart.UpdatedAt = time.Now()
	r.s.carts[userID] = cart
	r.s.mu.Unlock()

	return r.GetByUserID(userID)
}

func (r *memoryCartRepo) UpdateItemQuantity(userID, productID string, quantity int) (*models.Cart, error) {
	r.s.mu.Lock()

	cart, ok := r.s.carts[userID]
	if !ok {
		r.s.mu.Unlock()
		return nil, fmt.Errorf("cart for user %s: %w", userID, ErrNotFound)
	}
	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity = quantity
			found = true
			break
		}
	}
	if !found {
		r.s.mu.Unlock()
		return nil, fmt.Errorf("cart item for product %s: %w", productID, ErrNotFound)
	}
	cart.UpdatedAt = time.Now()
	r.s.carts[userID] = cart
	r.s.mu.Unlock()

	return r.GetByUserID(userID)
}

func (r *memoryCartRepo) RemoveItem(userID, productID string) (*models.Cart, error) {
	r.s.mu.Lock()

	cart, ok := r.s.carts[userID]
	if !ok {
		r.s.mu.Unlock()
		return nil, fmt.Errorf("cart for user %s: %w", userID, ErrNotFound)
	}
	items := cart.Items[:0]
	found := false
	for _, it := range cart.Items {
		if it.ProductID == productID {
			found = true
			continue
		}
		items = append(items, it)
	}
	if !found {
		r.s.mu.Unlock()
		return nil, fmt.Errorf("cart item for product %s: %w", productID, ErrNotFound)
	}
	cart.Items = items
	cart.UpdatedAt = time.Now()
	r.s.carts[userID] = cart
	r.s.mu.Unlock()

	return r.GetByUserID(userID)
}

func (r *memoryCartRepo) Clear(userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cart, ok := r.s.carts[userID]
	if !ok {
		return nil
	}
	cart.Items = nil
	cart.UpdatedAt = time.Now()
	r.s.carts[userID] = cart
	return nil
}

// --- order repository ---

type memoryOrderRepo struct {
	s *MemoryStore
}

func (r *memoryOrderRepo) GetByID(id string) (*models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	order, ok := r.s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	order.Items = append([]models.OrderItem(nil), order.Items...)
	return &order, nil
}

func (r *memoryOrderRepo) GetByUserID(userID string) ([]models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var orders []models.Order
	for _, o := range r.s.orders {
		if o.UserID == userID {
			o.Items = append([]models.OrderItem(nil), o.Items...)
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (r *memoryOrderRepo) List(filter OrderFilter) ([]models.Order, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []models.Order
	for _, o := range r.s.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		o.Items = append([]models.OrderItem(nil), o.Items...)
		matched = append(matched, o)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *memoryOrderRepo) Create(order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	r.s.orders[order.ID] = *order
	return nil
}

func (r *memoryOrderRepo) Update(order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.orders[order.ID]
	if !ok {
		return fmt.Errorf("order with ID %s: %w", order.ID, ErrNotFound)
	}
	stored.Status = order.Status
	stored.TotalAmount = order.TotalAmount
	stored.UpdatedAt = time.Now()
	r.s.orders[order.ID] = stored
	return nil
}

func (r *memoryOrderRepo) AggregateByStatus() ([]StatusAggregate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	byStatus := make(map[models.OrderStatus]*StatusAggregate)
	for _, o := range r.s.orders {
		agg, ok := byStatus[o.Status]
		if !ok {
			agg = &StatusAggregate{Status: o.Status}
			byStatus[o.Status] = agg
		}
		agg.Count++
		agg.TotalAmount += o.TotalAmount
	}

	aggregates := make([]StatusAggregate, 0, len(byStatus))
	for _, agg := range byStatus {
		aggregates = append(aggregates, *agg)
	}
	sort.Slice(aggregates, func(i, j int) bool { return aggregates[i].Status < aggregates[j].Status })
	return aggregates, nil
}
