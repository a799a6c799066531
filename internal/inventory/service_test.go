package inventory_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/go-stockroom/internal/apperr"
	"github.com/hugh/go-stockroom/internal/auth"
	"github.com/hugh/go-stockroom/internal/database/models"
	"github.com/hugh/go-stockroom/internal/inventory"
	"github.com/hugh/go-stockroom/internal/team"
	"github.com/hugh/go-stockroom/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newInventoryService(t *testing.T) (*inventory.Service, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	logger := testutil.DiscardLogger()
	teams := team.NewService(db, team.DefaultCapacity, logger)
	return inventory.NewService(db, teams, logger), db
}

func sessionOf(t *testing.T, db *gorm.DB, email string) auth.Session {
	t.Helper()
	return testutil.SessionFor(testutil.CreateTestUserWithEmail(t, db, email))
}

func strPtr(s string) *string { return &s }

func TestService_ListOwn_SortsByName(t *testing.T) {
	svc, db := newInventoryService(t)
	alice := sessionOf(t, db, "alice@example.com")

	for _, name := range []string{"banana", "Apple", "cherry", "Éclair", "apricot"} {
		testutil.CreateTestItem(t, db, "alice@example.com", name, 1, "1.00")
	}
	testutil.CreateTestItem(t, db, "bob@example.com", "Aardvark", 1, "1.00")

	items, err := svc.ListOwn(testutil.TestContext(t), alice)
	require.NoError(t, err)

	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	assert.Equal(t, []string{"Apple", "apricot", "banana", "cherry", "Éclair"}, names)
}

func TestService_ListFor(t *testing.T) {
	svc, db := newInventoryService(t)
	ctx := testutil.TestContext(t)
	alice := sessionOf(t, db, "alice@example.com")
	carol := sessionOf(t, db, "carol@example.com")

	testutil.CreateTestTeam(t, db, 1, "alice@example.com", "bob@example.com")
	testutil.CreateTestItem(t, db, "bob@example.com", "Stool", 4, "20.00")

	items, err := svc.ListFor(ctx, alice, "bob@example.com")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Stool", items[0].Name)

	_, err = svc.ListFor(ctx, carol, "bob@example.com")
	assert.Equal(t, inventory.ErrNotVisible, err)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	own, err := svc.ListFor(ctx, carol, "")
	require.NoError(t, err)
	assert.Empty(t, own)
}

func TestService_Add(t *testing.T) {
	tests := []struct {
		name    string
		input   inventory.ItemInput
		wantErr error
	}{
		{"valid", inventory.ItemInput{Name: " Lamp ", Quantity: 3, Price: decimal.RequireFromString("12.499")}, nil},
		{"zero quantity and price", inventory.ItemInput{Name: "Freebie"}, nil},
		{"with image", inventory.ItemInput{Name: "Rug", Quantity: 1, Image: strPtr("https://cdn.example.com/rug.png")}, nil},
		{"empty name", inventory.ItemInput{Name: "   ", Quantity: 1}, inventory.ErrNameRequired},
		{"negative quantity", inventory.ItemInput{Name: "Lamp", Quantity: -1}, inventory.ErrNegativeQuantity},
		{"negative price", inventory.ItemInput{Name: "Lamp", Price: decimal.NewFromInt(-1)}, inventory.ErrNegativePrice},
		{"bad image", inventory.ItemInput{Name: "Lamp", Image: strPtr("ftp://example.com/x.png")}, inventory.ErrInvalidImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := newInventoryService(t)
			alice := sessionOf(t, db, "alice@example.com")

			item, err := svc.Add(testutil.TestContext(t), alice, tt.input)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				var n int64
				db.Model(&models.InventoryItem{}).Count(&n)
				assert.Zero(t, n)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "alice@example.com", item.Email)
			assert.NotEqual(t, uuid.Nil, item.ID)
			assert.NotContains(t, item.Name, " ")
		})
	}
}

func TestService_Edit(t *testing.T) {
	svc, db := newInventoryService(t)
	ctx := testutil.TestContext(t)
	alice := sessionOf(t, db, "alice@example.com")
	bob := sessionOf(t, db, "bob@example.com")

	item := testutil.CreateTestItem(t, db, "alice@example.com", "Lamp", 3, "12.50")

	updated, err := svc.Edit(ctx, alice, item.ID, inventory.ItemInput{Name: "Desk Lamp", Quantity: 5, Price: decimal.RequireFromString("15")})
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", updated.Name)

	var stored models.InventoryItem
	require.NoError(t, db.First(&stored, "id = ?", item.ID).Error)
	assert.Equal(t, 5, stored.Quantity)
	assert.True(t, stored.Price.Equal(decimal.NewFromInt(15)))

	_, err = svc.Edit(ctx, bob, item.ID, inventory.ItemInput{Name: "Stolen", Quantity: 1})
	assert.Equal(t, inventory.ErrItemNotFound, err)

	_, err = svc.Edit(ctx, alice, uuid.New(), inventory.ItemInput{Name: "Ghost", Quantity: 1})
	assert.Equal(t, inventory.ErrItemNotFound, err)
}

func TestService_Delete_RemovesAuditLogsFirst(t *testing.T) {
	svc, db := newInventoryService(t)
	ctx := testutil.TestContext(t)
	alice := sessionOf(t, db, "alice@example.com")

	item := testutil.CreateTestItem(t, db, "alice@example.com", "Lamp", 3, "12.50")
	other := testutil.CreateTestItem(t, db, "alice@example.com", "Chair", 1, "40.00")
	for _, id := range []uuid.UUID{item.ID, item.ID, other.ID} {
		id := id
		require.NoError(t, db.Create(&models.AuditLog{
			ItemID: &id, Name: "x", Email: "bob@example.com",
			Price: decimal.NewFromInt(1), Quantity: 1, Action: models.ActionDeduction,
		}).Error)
	}

	require.NoError(t, svc.Delete(ctx, alice, item.ID))

	var logs, items int64
	db.Model(&models.AuditLog{}).Count(&logs)
	db.Model(&models.InventoryItem{}).Count(&items)
	assert.Equal(t, int64(1), logs)
	assert.Equal(t, int64(1), items)

	assert.Equal(t, inventory.ErrItemNotFound, svc.Delete(ctx, alice, item.ID))
}

func TestService_AdjustQuantity(t *testing.T) {
	svc, db := newInventoryService(t)
	ctx := testutil.TestContext(t)
	alice := sessionOf(t, db, "alice@example.com")

	item := testutil.CreateTestItem(t, db, "alice@example.com", "Lamp", 1, "12.50")

	_, err := svc.AdjustQuantity(ctx, alice, item.ID, -1)
	assert.Equal(t, inventory.ErrQuantityBelowOne, err)
	assert.Equal(t, "Quantity cannot be less than 1.", apperr.Message(err))

	var stored models.InventoryItem
	require.NoError(t, db.First(&stored, "id = ?", item.ID).Error)
	assert.Equal(t, 1, stored.Quantity)

	got, err := svc.AdjustQuantity(ctx, alice, item.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)

	got, err = svc.AdjustQuantity(ctx, alice, item.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)

	_, err = svc.AdjustQuantity(ctx, alice, item.ID, 5)
	assert.Equal(t, inventory.ErrInvalidDelta, err)
}

func TestSortByName_Empty(t *testing.T) {
	var items []models.InventoryItem
	inventory.SortByName(items)
	assert.Empty(t, items)
}
