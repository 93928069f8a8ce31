package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/domain/entity"
	"github.com/garyjia/claimflow/internal/domain/workflow"
)

type claimRepo struct{ s *Store }

func (r *claimRepo) Create(ctx context.Context, claim *entity.Claim) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.claims[claim.ID]; exists {
		return fmt.Errorf("claim %s already exists", claim.ID)
	}
	r.s.claims[claim.ID] = claim.Clone()
	return nil
}

func (r *claimRepo) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	claim, ok := r.s.claims[id]
	if !ok {
		return nil, nil
	}
	return claim.Clone(), nil
}

func (r *claimRepo) Save(ctx context.Context, claim *entity.Claim, expected workflow.State) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.claims[claim.ID]
	if !ok {
		return fmt.Errorf("claim %s not found", claim.ID)
	}
	if current.Status != expected {
		return port.ErrStatusConflict
	}

	// History is append-only: keep stored entries and add the unseen tail
	next := claim.Clone()
	stored := current.LastSeq()
	history := append([]entity.HistoryEntry(nil), current.History...)
	for _, h := range claim.History {
		if h.Seq > stored {
			history = append(history, h)
		}
	}
	next.History = history
	r.s.claims[claim.ID] = next
	return nil
}

func (r *claimRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.claims, id)
	return nil
}

func (r *claimRepo) ListByStatus(ctx context.Context, status workflow.State) ([]*entity.Claim, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.Claim
	for _, c := range r.s.claims {
		if status == "" || c.Status == status {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type paymentRepo struct{ s *Store }

func (r *paymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.payments[p.ID]; exists {
		return fmt.Errorf("payment %s already exists", p.ID)
	}
	r.s.payments[p.ID] = clonePayment(p)
	return nil
}

func (r *paymentRepo) GetByID(ctx context.Context, id string) (*entity.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	return clonePayment(p), nil
}

func (r *paymentRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.payments, id)
	return nil
}

func (r *paymentRepo) List(ctx context.Context) ([]*entity.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Payment, 0, len(r.s.payments))
	for _, p := range r.s.payments {
		out = append(out, clonePayment(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type vendorRepo struct{ s *Store }

func (r *vendorRepo) Create(ctx context.Context, v *entity.Vendor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.vendors[v.ID]; exists {
		return fmt.Errorf("vendor %s already exists", v.ID)
	}
	c := *v
	r.s.vendors[v.ID] = &c
	return nil
}

func (r *vendorRepo) GetByID(ctx context.Context, id string) (*entity.Vendor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.vendors[id]
	if !ok {
		return nil, nil
	}
	c := *v
	return &c, nil
}

func (r *vendorRepo) Update(ctx context.Context, v *entity.Vendor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.vendors[v.ID]; !ok {
		return fmt.Errorf("vendor %s not found", v.ID)
	}
	c := *v
	r.s.vendors[v.ID] = &c
	return nil
}

func (r *vendorRepo) List(ctx context.Context) ([]*entity.Vendor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Vendor, 0, len(r.s.vendors))
	for _, v := range r.s.vendors {
		c := *v
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type requestRepo struct{ s *Store }

func (r *requestRepo) Create(ctx context.Context, req *entity.VendorChangeRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.requests[req.ID]; exists {
		return fmt.Errorf("change request %s already exists", req.ID)
	}
	r.s.requests[req.ID] = cloneRequest(req)
	return nil
}

func (r *requestRepo) GetByID(ctx context.Context, id string) (*entity.VendorChangeRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, nil
	}
	return cloneRequest(req), nil
}

func (r *requestRepo) Update(ctx context.Context, req *entity.VendorChangeRequest, expected entity.RequestStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.requests[req.ID]
	if !ok {
		return fmt.Errorf("change request %s not found", req.ID)
	}
	if current.Status != expected {
		return port.ErrStatusConflict
	}
	r.s.requests[req.ID] = cloneRequest(req)
	return nil
}

func (r *requestRepo) GetPendingByVendor(ctx context.Context, vendorID string) (*entity.VendorChangeRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, req := range r.s.requests {
		if req.VendorID == vendorID && req.Status == entity.RequestPending {
			return cloneRequest(req), nil
		}
	}
	return nil, nil
}

func (r *requestRepo) ListPending(ctx context.Context) ([]*entity.VendorChangeRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.VendorChangeRequest
	for _, req := range r.s.requests {
		if req.Status == entity.RequestPending {
			out = append(out, cloneRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

type actorRepo struct{ s *Store }

func (r *actorRepo) GetActor(ctx context.Context, id string) (*entity.Actor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.actors[id]
	if !ok {
		return nil, nil
	}
	return cloneActor(a), nil
}

func (r *actorRepo) Upsert(ctx context.Context, a *entity.Actor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.actors[a.ID] = cloneActor(a)
	return nil
}

func (r *actorRepo) List(ctx context.Context) ([]*entity.Actor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Actor, 0, len(r.s.actors))
	for _, a := range r.s.actors {
		out = append(out, cloneActor(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var (
	_ port.ClaimRepository         = (*claimRepo)(nil)
	_ port.PaymentRepository       = (*paymentRepo)(nil)
	_ port.VendorRepository        = (*vendorRepo)(nil)
	_ port.ChangeRequestRepository = (*requestRepo)(nil)
	_ port.ActorRepository         = (*actorRepo)(nil)
)
