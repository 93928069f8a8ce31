// Package memory is an in-process implementation of every repository port.
// Transactions are serialized and roll back by restoring a snapshot.
package memory

import (
	"context"
	"sync"

	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/domain/entity"
)

type txKey struct{}

// Store holds all records in maps guarded by one mutex
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	claims   map[string]*entity.Claim
	payments map[string]*entity.Payment
	vendors  map[string]*entity.Vendor
	requests map[string]*entity.VendorChangeRequest
	actors   map[string]*entity.Actor
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		claims:   make(map[string]*entity.Claim),
		payments: make(map[string]*entity.Payment),
		vendors:  make(map[string]*entity.Vendor),
		requests: make(map[string]*entity.VendorChangeRequest),
		actors:   make(map[string]*entity.Actor),
	}
}

type snapshot struct {
	claims   map[string]*entity.Claim
	payments map[string]*entity.Payment
	vendors  map[string]*entity.Vendor
	requests map[string]*entity.VendorChangeRequest
	actors   map[string]*entity.Actor
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		claims:   make(map[string]*entity.Claim, len(s.claims)),
		payments: make(map[string]*entity.Payment, len(s.payments)),
		vendors:  make(map[string]*entity.Vendor, len(s.vendors)),
		requests: make(map[string]*entity.VendorChangeRequest, len(s.requests)),
		actors:   make(map[string]*entity.Actor, len(s.actors)),
	}
	for k, v := range s.claims {
		snap.claims[k] = v.Clone()
	}
	for k, v := range s.payments {
		snap.payments[k] = clonePayment(v)
	}
	for k, v := range s.vendors {
		c := *v
		snap.vendors[k] = &c
	}
	for k, v := range s.requests {
		snap.requests[k] = cloneRequest(v)
	}
	for k, v := range s.actors {
		snap.actors[k] = cloneActor(v)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims = snap.claims
	s.payments = snap.payments
	s.vendors = snap.vendors
	s.requests = snap.requests
	s.actors = snap.actors
}

// WithTransaction implements port.TransactionManager
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// Claims returns the claim repository view of the store
func (s *Store) Claims() port.ClaimRepository { return &claimRepo{s} }

// Payments returns the payment repository view of the store
func (s *Store) Payments() port.PaymentRepository { return &paymentRepo{s} }

// Vendors returns the vendor repository view of the store
func (s *Store) Vendors() port.VendorRepository { return &vendorRepo{s} }

// ChangeRequests returns the change request repository view of the store
func (s *Store) ChangeRequests() port.ChangeRequestRepository { return &requestRepo{s} }

// Actors returns the actor directory view of the store
func (s *Store) Actors() port.ActorRepository { return &actorRepo{s} }

func clonePayment(p *entity.Payment) *entity.Payment {
	c := *p
	c.Items = append([]entity.PaymentItem(nil), p.Items...)
	return &c
}

func cloneRequest(r *entity.VendorChangeRequest) *entity.VendorChangeRequest {
	c := *r
	c.ProposedData = cloneFields(r.ProposedData)
	if r.PriorSnapshot != nil {
		prior := cloneFields(*r.PriorSnapshot)
		c.PriorSnapshot = &prior
	}
	if r.DecidedAt != nil {
		at := *r.DecidedAt
		c.DecidedAt = &at
	}
	return &c
}

func cloneFields(f entity.VendorFields) entity.VendorFields {
	out := entity.VendorFields{}
	if f.Name != nil {
		v := *f.Name
		out.Name = &v
	}
	if f.ServiceDescription != nil {
		v := *f.ServiceDescription
		out.ServiceDescription = &v
	}
	if f.BankCode != nil {
		v := *f.BankCode
		out.BankCode = &v
	}
	if f.BankAccount != nil {
		v := *f.BankAccount
		out.BankAccount = &v
	}
	if f.IsFloatingAccount != nil {
		v := *f.IsFloatingAccount
		out.IsFloatingAccount = &v
	}
	return out
}

func cloneActor(a *entity.Actor) *entity.Actor {
	c := *a
	c.Capabilities = append([]entity.Capability(nil), a.Capabilities...)
	return &c
}

var _ port.TransactionManager = (*Store)(nil)
