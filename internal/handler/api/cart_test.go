package api

import (
	"fmt"
	"math"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/storefront/internal/domain"
)

func addBody(productID uuid.UUID, quantity int) string {
	return fmt.Sprintf(`{"productId":%q,"quantity":%d}`, productID, quantity)
}

func TestCartHandler_Add(t *testing.T) {
	f := newAPIFixture(t)
	p := f.store.AddProduct("Linen shirt", "men", "10.00")

	rec := serve(f.cart.Add, request(shopper, http.MethodPost, "/cart", addBody(p.ID, 2)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[domain.CartLine](t, rec)
	assert.Equal(t, int32(2), first.Quantity)
	assert.Equal(t, shopper.Email, first.UserEmail)

	// Same product again replaces the quantity on the existing line.
	rec = serve(f.cart.Add, request(shopper, http.MethodPost, "/cart", addBody(p.ID, 5)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[domain.CartLine](t, rec)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int32(5), second.Quantity)
}

func TestCartHandler_Add_Errors(t *testing.T) {
	f := newAPIFixture(t)
	p := f.store.AddProduct("Linen shirt", "men", "10.00")

	tests := []struct {
		name       string
		id         domain.Identity
		body       string
		wantStatus int
		wantCode   string
	}{
		{"no identity", domain.Identity{}, addBody(p.ID, 1), http.StatusUnauthorized, domain.EUNAUTHORIZED},
		{"zero quantity", shopper, addBody(p.ID, 0), http.StatusBadRequest, domain.EINVALID},
		{"negative quantity", shopper, addBody(p.ID, -2), http.StatusBadRequest, domain.EINVALID},
		{"quantity over the cap", shopper, addBody(p.ID, domain.MaxLineQuantity+1), http.StatusBadRequest, domain.EINVALID},
		{"quantity beyond int32", shopper, addBody(p.ID, math.MaxInt32+1), http.StatusBadRequest, domain.EINVALID},
		{"missing quantity", shopper, fmt.Sprintf(`{"productId":%q}`, p.ID), http.StatusBadRequest, domain.EINVALID},
		{"bad product id", shopper, `{"productId":"nope","quantity":1}`, http.StatusBadRequest, domain.EINVALID},
		{"unknown product", shopper, addBody(uuid.New(), 1), http.StatusNotFound, domain.ENOTFOUND},
		{"other user", shopper, fmt.Sprintf(`{"user":"x@example.com","productId":%q,"quantity":1}`, p.ID), http.StatusForbidden, domain.EFORBIDDEN},
		{"malformed", shopper, `{`, http.StatusBadRequest, domain.EINVALID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(f.cart.Add, request(tt.id, http.MethodPost, "/cart", tt.body))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
		})
	}
}

func TestCartHandler_Get(t *testing.T) {
	f := newAPIFixture(t)
	a := f.store.AddProduct("A", "men", "10.00")
	b := f.store.AddProduct("B", "women", "5.00")
	serve(f.cart.Add, request(shopper, http.MethodPost, "/cart", addBody(a.ID, 2)))
	serve(f.cart.Add, request(shopper, http.MethodPost, "/cart", addBody(b.ID, 1)))

	rec := serve(f.cart.Get, request(shopper, http.MethodGet, "/cart?user=shopper@example.com", ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decode[domain.CartSnapshot](t, rec)
	assert.Len(t, snap.Items, 2)
	assert.Equal(t, int64(3), snap.TotalItems)
	assert.True(t, snap.Subtotal.Equal(decimal.RequireFromString("25.00")), snap.Subtotal.String())
	assert.Contains(t, rec.Body.String(), `"subtotal":"25.00"`)
	assert.Contains(t, rec.Body.String(), `"unitPrice":"10.00"`)
	assert.NotContains(t, rec.Body.String(), `"dropped"`)
}

func TestCartHandler_Get_DroppedLine(t *testing.T) {
	f := newAPIFixture(t)
	a := f.store.AddProduct("A", "men", "10.00")
	b := f.store.AddProduct("B", "women", "5.00")
	serve(f.cart.Add, request(shopper, http.MethodPost, "/cart", addBody(a.ID, 2)))
	orphan := decode[domain.CartLine](t, serve(f.cart.Add, request(shopper, http.MethodPost, "/cart", addBody(b.ID, 1))))
	f.store.DeleteProduct(b.ID)

	rec := serve(f.cart.Get, request(shopper, http.MethodGet, "/cart", ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decode[domain.CartSnapshot](t, rec)
	assert.Len(t, snap.Items, 1)
	assert.Equal(t, int64(2), snap.TotalItems)
	require.Len(t, snap.Dropped, 1)
	assert.Equal(t, orphan.ID, snap.Dropped[0].LineID)
	assert.Equal(t, b.ID, snap.Dropped[0].ProductID)
	assert.Contains(t, snap.Dropped[0].Warning, "no longer available")

	// The dropped line id is enough to remove it.
	r := request(shopper, http.MethodDelete, "/cart/"+orphan.ID.String(), "")
	r.SetPathValue("lineId", orphan.ID.String())
	require.Equal(t, http.StatusOK, serve(f.cart.RemoveLine, r).Code)

	snap = decode[domain.CartSnapshot](t, serve(f.cart.Get, request(shopper, http.MethodGet, "/cart", "")))
	assert.Empty(t, snap.Dropped)
}

func TestCartHandler_Get_Empty(t *testing.T) {
	f := newAPIFixture(t)

	rec := serve(f.cart.Get, request(shopper, http.MethodGet, "/cart", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[domain.CartSnapshot](t, rec)
	assert.Empty(t, snap.Items)
	assert.Equal(t, int64(0), snap.TotalItems)
}

func TestCartHandler_Get_OtherUser(t *testing.T) {
	f := newAPIFixture(t)

	rec := serve(f.cart.Get, request(shopper, http.MethodGet, "/cart?user=else@example.com", ""))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCartHandler_UpdateQuantity(t *testing.T) {
	f := newAPIFixture(t)
	p := f.store.AddProduct("A", "men", "10.00")
	line := decode[domain.CartLine](t, serve(f.cart.Add, request(shopper, http.MethodPost, "/cart", addBody(p.ID, 1))))

	r := request(shopper, http.MethodPatch, "/cart/"+line.ID.String(), `{"quantity":4}`)
	r.SetPathValue("lineId", line.ID.String())
	rec := serve(f.cart.UpdateQuantity, r)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int32(4), decode[domain.CartLine](t, rec).Quantity)

	r = request(shopper, http.MethodPatch, "/cart/"+line.ID.String(), `{"quantity":0}`)
	r.SetPathValue("lineId", line.ID.String())
	assert.Equal(t, http.StatusBadRequest, serve(f.cart.UpdateQuantity, r).Code)

	r = request(shopper, http.MethodPatch, "/cart/"+line.ID.String(), `{"quantity":1000}`)
	r.SetPathValue("lineId", line.ID.String())
	assert.Equal(t, http.StatusBadRequest, serve(f.cart.UpdateQuantity, r).Code)
	assert.Equal(t, int32(4), f.store.CartLines(shopper.Email)[0].Quantity)

	missing := uuid.NewString()
	r = request(shopper, http.MethodPatch, "/cart/"+missing, `{"quantity":2}`)
	r.SetPathValue("lineId", missing)
	assert.Equal(t, http.StatusNotFound, serve(f.cart.UpdateQuantity, r).Code)

	r = request(shopper, http.MethodPatch, "/cart/abc", `{"quantity":2}`)
	r.SetPathValue("lineId", "abc")
	assert.Equal(t, http.StatusBadRequest, serve(f.cart.UpdateQuantity, r).Code)
}

func TestCartHandler_RemoveAndClear(t *testing.T) {
	f := newAPIFixture(t)
	a := f.store.AddProduct("A", "men", "10.00")
	b := f.store.AddProduct("B", "women", "5.00")
	line := decode[domain.CartLine](t, serve(f.cart.Add, request(shopper, http.MethodPost, "/cart", addBody(a.ID, 1))))
	serve(f.cart.Add, request(shopper, http.MethodPost, "/cart", addBody(b.ID, 1)))

	r := request(shopper, http.MethodDelete, "/cart/"+line.ID.String(), "")
	r.SetPathValue("lineId", line.ID.String())
	rec := serve(f.cart.RemoveLine, r)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "removed", decode[statusResponse](t, rec).Status)

	// Removing it again is a 404.
	r = request(shopper, http.MethodDelete, "/cart/"+line.ID.String(), "")
	r.SetPathValue("lineId", line.ID.String())
	assert.Equal(t, http.StatusNotFound, serve(f.cart.RemoveLine, r).Code)

	for range 2 {
		rec = serve(f.cart.Clear, request(shopper, http.MethodDelete, "/cart", ""))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "cleared", decode[statusResponse](t, rec).Status)
	}

	snap := decode[domain.CartSnapshot](t, serve(f.cart.Get, request(shopper, http.MethodGet, "/cart", "")))
	assert.Empty(t, snap.Items)
}
