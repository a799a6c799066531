package handlers_test

import (
	"net/http"
	"testing"

	"github.com/hugh/go-stockroom/internal/api/dto"
	"github.com/hugh/go-stockroom/internal/database/models"
	"github.com/hugh/go-stockroom/internal/orders"
	"github.com/hugh/go-stockroom/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartHandler_AddCountRemove(t *testing.T) {
	env := setupRouter(t)
	item := testutil.CreateTestItem(t, env.DB, env.User.Email, "Widget", 3, "2.00")
	empty := testutil.CreateTestItem(t, env.DB, env.User.Email, "Sold out", 0, "1.00")

	var entry models.CartEntry
	t.Run("add", func(t *testing.T) {
		rr := env.do(t, "POST", "/api/v1/cart", dto.AddToCartRequest{ItemID: item.ID.String()}, env.Token)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		testutil.ParseJSONResponse(t, rr, &entry)
		assert.Equal(t, item.ID, entry.InventoryID)
		assert.Equal(t, 1, entry.Counter)
	})

	t.Run("out of stock starts at zero", func(t *testing.T) {
		rr := env.do(t, "POST", "/api/v1/cart", dto.AddToCartRequest{ItemID: empty.ID.String()}, env.Token)
		require.Equal(t, http.StatusCreated, rr.Code)

		var e models.CartEntry
		testutil.ParseJSONResponse(t, rr, &e)
		assert.Equal(t, 0, e.Counter)
	})

	t.Run("duplicate", func(t *testing.T) {
		rr := env.do(t, "POST", "/api/v1/cart", dto.AddToCartRequest{ItemID: item.ID.String()}, env.Token)
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Item is already in cart.", resp.Error)
	})

	t.Run("bad item id", func(t *testing.T) {
		for _, id := range []string{"nope", "urn:uuid:" + item.ID.String(), "{" + item.ID.String() + "}"} {
			rr := env.do(t, "POST", "/api/v1/cart", dto.AddToCartRequest{ItemID: id}, env.Token)
			assert.Equal(t, http.StatusBadRequest, rr.Code, id)
		}
	})

	t.Run("count", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/v1/cart/count", nil, env.Token)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.CartCountResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, int64(2), resp.Count)
		assert.Equal(t, 5, resp.PollIntervalSeconds)
	})

	t.Run("counter", func(t *testing.T) {
		rr := env.do(t, "PUT", "/api/v1/cart/"+entry.ID.String()+"/counter", dto.DeltaRequest{Delta: 1}, env.Token)
		require.Equal(t, http.StatusOK, rr.Code)

		var e models.CartEntry
		testutil.ParseJSONResponse(t, rr, &e)
		assert.Equal(t, 2, e.Counter)
	})

	t.Run("remove", func(t *testing.T) {
		rr := env.do(t, "DELETE", "/api/v1/cart/"+entry.ID.String(), nil, env.Token)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = env.do(t, "DELETE", "/api/v1/cart/"+entry.ID.String(), nil, env.Token)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("list", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/v1/cart", nil, env.Token)
		require.Equal(t, http.StatusOK, rr.Code)

		var entries []models.CartEntry
		testutil.ParseJSONResponse(t, rr, &entries)
		require.Len(t, entries, 1)
		assert.Equal(t, "Sold out", entries[0].Name)
	})
}

func TestCartHandler_Confirm(t *testing.T) {
	env := setupRouter(t)
	a := testutil.CreateTestItem(t, env.DB, env.User.Email, "A", 10, "2.50")
	b := testutil.CreateTestItem(t, env.DB, env.User.Email, "B", 5, "1.00")
	entryA := testutil.CreateTestCartEntry(t, env.DB, a, env.User.Email, 3)
	testutil.CreateTestCartEntry(t, env.DB, b, env.User.Email, 0)

	t.Run("empty body uses stored counters", func(t *testing.T) {
		rr := env.do(t, "POST", "/api/v1/orders/confirm", nil, env.Token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var result orders.Result
		testutil.ParseJSONResponse(t, rr, &result)
		assert.Equal(t, "7.5", result.Total.String())
		require.Len(t, result.Lines, 1)
		assert.Equal(t, 7, result.Lines[0].Remaining)

		var left int64
		env.DB.Model(&models.CartEntry{}).Where("id = ?", entryA.ID).Count(&left)
		assert.Zero(t, left)
	})

	t.Run("nothing selected", func(t *testing.T) {
		rr := env.do(t, "POST", "/api/v1/orders/confirm", dto.ConfirmRequest{}, env.Token)
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "No items selected.", resp.Error)
	})

	t.Run("invalid override", func(t *testing.T) {
		body := dto.ConfirmRequest{Counters: map[string]int{"not-a-uuid": 1}}
		rr := env.do(t, "POST", "/api/v1/orders/confirm", body, env.Token)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
