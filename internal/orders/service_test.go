package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bazaarline/storefront-backend/pkg/db"
	"github.com/bazaarline/storefront-backend/pkg/db/models"
	"github.com/bazaarline/storefront-backend/pkg/enums"
	pkgerrors "github.com/bazaarline/storefront-backend/pkg/errors"
	"github.com/bazaarline/storefront-backend/pkg/pagination"
)

type fakeNotifier struct {
	statusChanged int
}

func (f *fakeNotifier) NotifyStatusChanged(ctx context.Context, order *models.Order) {
	f.statusChanged++
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Order{},
		&models.OrderLineItem{},
		&models.FeeBreakdown{},
		&models.PaymentTransaction{},
		&models.StatusHistoryEntry{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) (Service, *fakeNotifier) {
	t.Helper()
	notifier := &fakeNotifier{}
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn), notifier)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, notifier
}

func seedOrder(t *testing.T, conn *gorm.DB, userID uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:                uuid.New(),
		OrderNumber:       "ORD-" + uuid.NewString()[:8],
		UserID:            userID,
		Status:            status,
		PaymentState:      enums.PaymentStatePending,
		Subtotal:          decimal.RequireFromString("100.00"),
		DeliveryCharge:    decimal.RequireFromString("500.00"),
		MarketplaceFee:    decimal.RequireFromString("2.00"),
		TaxAmount:         decimal.RequireFromString("108.36"),
		GiftCardDebit:     decimal.Zero,
		Total:             decimal.RequireFromString("710.36"),
		ShippingAddressID: uuid.New(),
		PaymentMethodID:   uuid.New(),
	}
	if err := NewRepository(conn).Create(context.Background(), order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestSetStatusValidEdgeAppendsHistory(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc, notifier := newTestService(t, conn)
	ctx := context.Background()

	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusConfirmed)
	admin := uuid.New()

	err := svc.SetStatus(ctx, SetStatusInput{
		OrderID:   order.ID,
		NewStatus: enums.OrderStatusProcessing,
		ActorID:   admin,
		ActorRole: enums.ActorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("set status: %v", err)
	}

	var reloaded models.Order
	if err := conn.First(&reloaded, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != enums.OrderStatusProcessing {
		t.Fatalf("status = %s", reloaded.Status)
	}

	var entries []models.StatusHistoryEntry
	if err := conn.Where("order_id = ?", order.ID).Find(&entries).Error; err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	if entries[0].Status != enums.OrderStatusProcessing || entries[0].ActorRole != enums.ActorRoleAdmin {
		t.Fatalf("unexpected history entry: %+v", entries[0])
	}
	if notifier.statusChanged != 1 {
		t.Fatalf("notifications = %d, want 1", notifier.statusChanged)
	}
}

func TestSetStatusRejectsInvalidEdge(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc, notifier := newTestService(t, conn)
	ctx := context.Background()

	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusPending)

	err := svc.SetStatus(ctx, SetStatusInput{
		OrderID:   order.ID,
		NewStatus: enums.OrderStatusDelivered,
		ActorRole: enums.ActorRoleAdmin,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	var reloaded models.Order
	if err := conn.First(&reloaded, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != enums.OrderStatusPending {
		t.Fatalf("status mutated on rejected edge: %s", reloaded.Status)
	}

	var count int64
	if err := conn.Model(&models.StatusHistoryEntry{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count history: %v", err)
	}
	if count != 0 {
		t.Fatalf("history written on rejected edge: %d", count)
	}
	if notifier.statusChanged != 0 {
		t.Fatal("notifier fired on rejected edge")
	}
}

func TestSetStatusTerminalStatesHaveNoOutboundEdges(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc, _ := newTestService(t, conn)
	ctx := context.Background()

	for _, terminal := range []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled} {
		order := seedOrder(t, conn, uuid.New(), terminal)
		err := svc.SetStatus(ctx, SetStatusInput{
			OrderID:   order.ID,
			NewStatus: enums.OrderStatusConfirmed,
			ActorRole: enums.ActorRoleAdmin,
		})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict from %s, got %v", terminal, err)
		}
	}
}

func TestSetStatusStampsShippedAtOnce(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc, _ := newTestService(t, conn)
	ctx := context.Background()

	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusProcessing)

	err := svc.SetStatus(ctx, SetStatusInput{
		OrderID:   order.ID,
		NewStatus: enums.OrderStatusShipped,
		ActorRole: enums.ActorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("ship: %v", err)
	}

	var afterShip models.Order
	if err := conn.First(&afterShip, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if afterShip.ShippedAt == nil {
		t.Fatal("shipped_at not stamped")
	}

	err = svc.SetStatus(ctx, SetStatusInput{
		OrderID:   order.ID,
		NewStatus: enums.OrderStatusDelivered,
		ActorRole: enums.ActorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	var afterDeliver models.Order
	if err := conn.First(&afterDeliver, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if afterDeliver.DeliveredAt == nil {
		t.Fatal("delivered_at not stamped")
	}
	if !afterDeliver.ShippedAt.Equal(*afterShip.ShippedAt) {
		t.Fatal("shipped_at overwritten by later transition")
	}
}

func TestGetDetailsEnforcesOwnership(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc, _ := newTestService(t, conn)
	ctx := context.Background()

	owner := uuid.New()
	order := seedOrder(t, conn, owner, enums.OrderStatusPending)

	got, err := svc.GetDetails(ctx, order.ID, owner)
	if err != nil {
		t.Fatalf("get details: %v", err)
	}
	if got.ID != order.ID {
		t.Fatalf("wrong order returned: %s", got.ID)
	}

	_, err = svc.GetDetails(ctx, order.ID, uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign user, got %v", err)
	}
}

func TestGetDetailsPreloadsChildren(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc, _ := newTestService(t, conn)
	ctx := context.Background()
	repo := NewRepository(conn)

	owner := uuid.New()
	order := seedOrder(t, conn, owner, enums.OrderStatusPending)

	items := []models.OrderLineItem{{
		ID:        uuid.New(),
		OrderID:   order.ID,
		ProductID: uuid.New(),
		Name:      "Ceramic mug",
		SKU:       "MUG-01",
		UnitPrice: decimal.RequireFromString("50.00"),
		Quantity:  2,
		LineTotal: decimal.RequireFromString("100.00"),
	}}
	if err := repo.CreateLineItems(ctx, items); err != nil {
		t.Fatalf("create items: %v", err)
	}
	fees := &models.FeeBreakdown{
		ID:             uuid.New(),
		OrderID:        order.ID,
		Subtotal:       order.Subtotal,
		DeliveryCharge: order.DeliveryCharge,
		MarketplaceFee: order.MarketplaceFee,
		TaxAmount:      order.TaxAmount,
		GiftCardDebit:  decimal.Zero,
		Total:          order.Total,
	}
	if err := repo.CreateFeeBreakdown(ctx, fees); err != nil {
		t.Fatalf("create fees: %v", err)
	}
	if err := repo.AppendHistory(ctx, &models.StatusHistoryEntry{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Status:    enums.OrderStatusPending,
		ActorRole: enums.ActorRoleSystem,
	}); err != nil {
		t.Fatalf("append history: %v", err)
	}

	got, err := svc.GetDetails(ctx, order.ID, owner)
	if err != nil {
		t.Fatalf("get details: %v", err)
	}
	if len(got.Items) != 1 || got.Fees == nil || len(got.History) != 1 {
		t.Fatalf("children not preloaded: items=%d fees=%v history=%d", len(got.Items), got.Fees, len(got.History))
	}
}

func TestListPaginatesWithCursor(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc, _ := newTestService(t, conn)
	ctx := context.Background()

	owner := uuid.New()
	for i := 0; i < 5; i++ {
		order := seedOrder(t, conn, owner, enums.OrderStatusPending)
		// Spread creation times so cursor ordering is deterministic.
		created := time.Now().Add(time.Duration(-i) * time.Minute)
		if err := conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("created_at", created).Error; err != nil {
			t.Fatalf("backdate order: %v", err)
		}
	}
	seedOrder(t, conn, uuid.New(), enums.OrderStatusPending) // other user's order

	first, err := svc.List(ctx, ListInput{UserID: owner, Pagination: pagination.Params{Limit: 3}})
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if len(first.Orders) != 3 {
		t.Fatalf("page 1 size = %d, want 3", len(first.Orders))
	}
	if first.NextCursor == "" {
		t.Fatal("expected next cursor")
	}

	second, err := svc.List(ctx, ListInput{UserID: owner, Pagination: pagination.Params{Limit: 3, Cursor: first.NextCursor}})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(second.Orders) != 2 {
		t.Fatalf("page 2 size = %d, want 2", len(second.Orders))
	}
	if second.NextCursor != "" {
		t.Fatalf("unexpected next cursor on last page: %q", second.NextCursor)
	}

	seen := map[uuid.UUID]bool{}
	for _, o := range append(first.Orders, second.Orders...) {
		if seen[o.ID] {
			t.Fatalf("order %s returned twice", o.ID)
		}
		seen[o.ID] = true
		if o.UserID != owner {
			t.Fatalf("foreign order leaked into listing: %s", o.ID)
		}
	}
}
