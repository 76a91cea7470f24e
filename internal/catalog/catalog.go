// Package catalog owns the local copy of the product catalog. The server is
// authoritative: list responses replace the catalog wholesale, and create or
// update responses replace single entries. The one exception is Purchase,
// which adjusts the available units locally from the confirmed request
// instead of re-fetching the whole catalog.
package catalog

import (
	"context"
	"sync"

	"github.com/xenking/vendo-client/internal/domain/product"
	"github.com/xenking/vendo-client/pkg/inflight"
)

// Service is the slice of the remote vending API the catalog state needs.
type Service interface {
	ListProducts(ctx context.Context) ([]product.Product, error)
	CreateProduct(ctx context.Context, p product.Payload) (product.Product, error)
	UpdateProduct(ctx context.Context, id int64, p product.Payload) (product.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	Buy(ctx context.Context, id int64, amount int) (product.Receipt, error)
}

// State holds the product mapping. Mutations on one product are serialized:
// a second Update, Remove or Purchase for the same id while one is in flight
// fails with inflight.ErrConflict instead of racing on stale reads.
type State struct {
	svc   Service
	guard *inflight.Guard[int64]

	mu       sync.Mutex
	products map[int64]product.Product
}

// NewState returns an empty catalog.
func NewState(svc Service) *State {
	return &State{
		svc:      svc,
		guard:    inflight.New[int64](),
		products: make(map[int64]product.Product),
	}
}

// Products returns a snapshot of the catalog sorted ascending by name.
func (s *State) Products() []product.Product {
	s.mu.Lock()
	out := make([]product.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	s.mu.Unlock()

	product.Sort(out)
	return out
}

// Get returns the catalog entry for id, if present.
func (s *State) Get(id int64) (product.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

// Refresh replaces the whole catalog with the server's product list.
// Entries absent from the response are dropped. A failed call leaves the
// previous catalog untouched.
func (s *State) Refresh(ctx context.Context) error {
	listed, err := s.svc.ListProducts(ctx)
	if err != nil {
		return err
	}

	replacement := make(map[int64]product.Product, len(listed))
	for _, p := range listed {
		replacement[p.ID] = p
	}

	s.mu.Lock()
	s.products = replacement
	s.mu.Unlock()
	return nil
}

// Create validates the payload, registers the product remotely, and inserts
// the server's representation, including the assigned id.
func (s *State) Create(ctx context.Context, payload product.Payload) (product.Product, error) {
	if err := payload.Validate(); err != nil {
		return product.Product{}, err
	}

	created, err := s.svc.CreateProduct(ctx, payload)
	if err != nil {
		return product.Product{}, err
	}

	s.mu.Lock()
	s.products[created.ID] = created
	s.mu.Unlock()
	return created, nil
}

// Update validates the payload and replaces the entry at id with the
// server's returned representation. On failure the entry is unchanged.
func (s *State) Update(ctx context.Context, id int64, payload product.Payload) (product.Product, error) {
	if err := payload.Validate(); err != nil {
		return product.Product{}, err
	}
	if err := s.guard.TryAcquire(id); err != nil {
		return product.Product{}, err
	}
	defer s.guard.Release(id)

	updated, err := s.svc.UpdateProduct(ctx, id, payload)
	if err != nil {
		return product.Product{}, err
	}

	s.mu.Lock()
	s.products[updated.ID] = updated
	s.mu.Unlock()
	return updated, nil
}

// Remove deletes the product with the given id. The id must currently exist
// in the catalog; asking to remove an unknown entry is a caller error.
func (s *State) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	_, ok := s.products[id]
	s.mu.Unlock()
	if !ok {
		return product.ErrNotFound
	}

	if err := s.guard.TryAcquire(id); err != nil {
		return err
	}
	defer s.guard.Release(id)

	if err := s.svc.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.products, id)
	s.mu.Unlock()
	return nil
}

// Purchase buys amount units of a product. The amount must be positive and
// within the locally known availability; both checks are a UX guard only,
// the server may still reject (another client may have bought the last
// unit). On success the availability is decremented by the confirmed amount
// rather than re-fetched, and the server's receipt is returned verbatim.
func (s *State) Purchase(ctx context.Context, id int64, amount int) (product.Receipt, error) {
	if amount <= 0 {
		return product.Receipt{}, product.ErrInvalidBuyAmount
	}

	if err := s.guard.TryAcquire(id); err != nil {
		return product.Receipt{}, err
	}
	defer s.guard.Release(id)

	s.mu.Lock()
	p, ok := s.products[id]
	s.mu.Unlock()
	if !ok {
		return product.Receipt{}, product.ErrNotFound
	}
	if amount > p.Available {
		return product.Receipt{}, &product.InsufficientUnitsError{
			ProductID: id,
			Requested: amount,
			Available: p.Available,
		}
	}

	receipt, err := s.svc.Buy(ctx, id, amount)
	if err != nil {
		return product.Receipt{}, err
	}

	s.mu.Lock()
	if current, ok := s.products[id]; ok {
		current.Available -= amount
		// A concurrent Refresh may have lowered the availability while the
		// buy was in flight; never let the local value go negative.
		if current.Available < 0 {
			current.Available = 0
		}
		s.products[id] = current
	}
	s.mu.Unlock()
	return receipt, nil
}
