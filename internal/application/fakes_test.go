package application

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forkline-eats/service-promo/internal/domain/delivery"
	"github.com/forkline-eats/service-promo/internal/domain/promo"
	"github.com/forkline-eats/service-promo/internal/platform/apperror"
)

// memStore implements PromoCodeRepository, UsageLedger and Transactor in
// memory. Transactions are serialized and roll back by restoring a snapshot.
type memStore struct {
	txMu sync.Mutex

	mu      sync.Mutex
	codes   map[uuid.UUID]*promo.PromoCode
	used    map[uuid.UUID]int
	usages  []*promo.UsageRecord
	failErr error

	ledgerQueries int
}

type memTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		codes: make(map[uuid.UUID]*promo.PromoCode),
		used:  make(map[uuid.UUID]int),
	}
}

func (s *memStore) add(p *promo.PromoCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[p.ID()] = p
	s.used[p.ID()] = p.UsedCount()
}

func (s *memStore) usedCount(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used[id]
}

func (s *memStore) usageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.usages)
}

func (s *memStore) setFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *memStore) failure(op string) error {
	if s.failErr != nil {
		return apperror.NewStorageError(op, s.failErr)
	}
	return nil
}

func (s *memStore) load(p *promo.PromoCode) *promo.PromoCode {
	return promo.Reconstruct(p.ID(), p.RestaurantID(), p.Rules(), s.used[p.ID()], p.CreatedBy(), p.CreatedAt(), p.UpdatedAt())
}

func (s *memStore) Save(ctx context.Context, p *promo.PromoCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("save promo code"); err != nil {
		return err
	}
	for _, existing := range s.codes {
		if existing.RestaurantID() == p.RestaurantID() && existing.Code() == p.Code() {
			return apperror.NewConflictError("duplicate code")
		}
	}
	s.codes[p.ID()] = p
	s.used[p.ID()] = p.UsedCount()
	return nil
}

func (s *memStore) FindByID(ctx context.Context, id uuid.UUID) (*promo.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("find promo code"); err != nil {
		return nil, err
	}
	p, ok := s.codes[id]
	if !ok {
		return nil, apperror.NewNotFoundError("PromoCode", id.String())
	}
	return s.load(p), nil
}

func (s *memStore) FindByCodeAndRestaurant(ctx context.Context, code string, restaurantID uuid.UUID) (*promo.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("find promo code"); err != nil {
		return nil, err
	}
	for _, p := range s.codes {
		if p.RestaurantID() == restaurantID && p.Code() == code {
			return s.load(p), nil
		}
	}
	return nil, apperror.NewNotFoundError("PromoCode", code)
}

func (s *memStore) FindActiveByRestaurant(ctx context.Context, restaurantID uuid.UUID, now time.Time) ([]*promo.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*promo.PromoCode
	for _, p := range s.codes {
		loaded := s.load(p)
		if p.RestaurantID() == restaurantID && loaded.CheckUsable(now) == nil {
			out = append(out, loaded)
		}
	}
	return out, s.failure("list active promo codes")
}

func (s *memStore) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*promo.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*promo.PromoCode
	for _, p := range s.codes {
		if p.RestaurantID() == restaurantID {
			out = append(out, s.load(p))
		}
	}
	return out, s.failure("list promo codes")
}

func (s *memStore) IncrementUsageAtomic(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("increment promo usage"); err != nil {
		return false, err
	}
	p, ok := s.codes[id]
	if !ok {
		return false, apperror.NewNotFoundError("PromoCode", id.String())
	}
	if limit := p.TotalUsageLimit(); limit != nil && s.used[id] >= *limit {
		return false, nil
	}
	s.used[id]++
	return true, nil
}

func (s *memStore) CountByCustomerAndCode(ctx context.Context, customerID, promoCodeID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgerQueries++
	if err := s.failure("count promo usages"); err != nil {
		return 0, err
	}
	n := 0
	for _, u := range s.usages {
		if u.CustomerID == customerID && u.PromoCodeID == promoCodeID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) Record(ctx context.Context, usage *promo.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("record promo usage"); err != nil {
		return err
	}
	for _, u := range s.usages {
		if u.OrderID == usage.OrderID && u.PromoCodeID == usage.PromoCodeID {
			return promo.ErrAlreadyRecorded
		}
	}
	s.usages = append(s.usages, usage)
	return nil
}

func (s *memStore) ListByPromoCode(ctx context.Context, promoCodeID uuid.UUID, page, limit int) ([]*promo.UsageRecord, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*promo.UsageRecord
	for _, u := range s.usages {
		if u.PromoCodeID == promoCodeID {
			matched = append(matched, u)
		}
	}
	start := min((page-1)*limit, len(matched))
	end := min(start+limit, len(matched))
	return matched[start:end], int64(len(matched)), nil
}

func (s *memStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	usedSnap := maps.Clone(s.used)
	usagesSnap := slices.Clone(s.usages)
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.mu.Lock()
		s.used = usedSnap
		s.usages = usagesSnap
		s.mu.Unlock()
		return err
	}
	return nil
}

// memRestaurants implements RestaurantLocationProvider and RestaurantOwnership.
type memRestaurants struct {
	locations map[uuid.UUID]delivery.Location
	owners    map[uuid.UUID]uuid.UUID
}

func newMemRestaurants() *memRestaurants {
	return &memRestaurants{
		locations: make(map[uuid.UUID]delivery.Location),
		owners:    make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *memRestaurants) add(ownerID uuid.UUID, loc delivery.Location) uuid.UUID {
	id := uuid.New()
	r.locations[id] = loc
	r.owners[id] = ownerID
	return id
}

func (r *memRestaurants) FindLocation(ctx context.Context, restaurantID uuid.UUID) (delivery.Location, error) {
	loc, ok := r.locations[restaurantID]
	if !ok {
		return delivery.Location{}, apperror.NewNotFoundError("Restaurant", restaurantID.String())
	}
	return loc, nil
}

func (r *memRestaurants) FindOwnerID(ctx context.Context, restaurantID uuid.UUID) (uuid.UUID, error) {
	owner, ok := r.owners[restaurantID]
	if !ok {
		return uuid.Nil, apperror.NewNotFoundError("Restaurant", restaurantID.String())
	}
	return owner, nil
}
