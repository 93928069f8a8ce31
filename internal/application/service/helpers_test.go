package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/garyjia/claimflow/internal/application/port/mocks"
	"github.com/garyjia/claimflow/internal/application/workflow"
	"github.com/garyjia/claimflow/internal/domain/entity"
	domainwf "github.com/garyjia/claimflow/internal/domain/workflow"
	"github.com/garyjia/claimflow/internal/infrastructure/persistence/memory"
)

var (
	emp     = &entity.Actor{ID: "emp", Name: "Employee", ApproverID: "mgr"}
	mgr     = &entity.Actor{ID: "mgr", Name: "Manager"}
	finance = &entity.Actor{ID: "fin", Name: "Finance", Capabilities: []entity.Capability{entity.CapabilityFinanceAudit}}
	admin   = &entity.Actor{ID: "adm", Name: "Admin", Capabilities: []entity.Capability{entity.CapabilityUserManagement}}
	other   = &entity.Actor{ID: "zed", Name: "Someone Else"}
)

type fixture struct {
	store       *memory.Store
	engine      workflow.ClaimEngine
	attachments *mocks.MockAttachmentStore
	exporter    *mocks.MockPaymentExporter
	claims      ClaimService
	payments    PaymentService
	vendors     VendorService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := memory.NewStore()
	for _, a := range []*entity.Actor{emp, mgr, finance, admin, other} {
		require.NoError(t, store.Actors().Upsert(context.Background(), a))
	}

	engine := workflow.NewEngine(store.Claims(), store.Actors(), store)
	attachments := mocks.NewMockAttachmentStore(ctrl)
	exporter := mocks.NewMockPaymentExporter(ctrl)

	return &fixture{
		store:       store,
		engine:      engine,
		attachments: attachments,
		exporter:    exporter,
		claims:      NewClaimService(store.Claims(), store.Actors(), store, engine, attachments, nil, nil),
		payments:    NewPaymentService(store.Claims(), store.Payments(), store.Actors(), store, engine, exporter, nil, nil),
		vendors:     NewVendorService(store.Vendors(), store.ChangeRequests(), store, nil, nil),
	}
}

func (f *fixture) seedClaim(t *testing.T, c *entity.Claim) {
	t.Helper()
	require.NoError(t, f.store.Claims().Create(context.Background(), c))
}

func (f *fixture) claim(t *testing.T, id string) *entity.Claim {
	t.Helper()
	c, err := f.store.Claims().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

func approvedClaim(id, payee string, amount int64, receipt bool) *entity.Claim {
	li := entity.LineItem{ID: id + "-1", Amount: decimal.NewFromInt(amount), Description: "services"}
	if receipt {
		li.AttachmentRef = "file://" + id + ".pdf"
	}
	return &entity.Claim{
		ID:          id,
		Kind:        entity.KindServicePayment,
		ApplicantID: emp.ID,
		PayeeName:   payee,
		Amount:      decimal.NewFromInt(amount),
		Status:      domainwf.StateApproved,
		LineItems:   []entity.LineItem{li},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string { return &s }
