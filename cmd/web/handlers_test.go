package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trendmart/internal/access"
	"trendmart/internal/auth"
	"trendmart/internal/events"
	"trendmart/internal/models"
	"trendmart/internal/payments"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeIntents struct {
	err error
}

func (f fakeIntents) CreateIntent(_ context.Context, price decimal.Decimal) (*payments.Intent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &payments.Intent{
		ID:           "pi_test",
		ClientSecret: "pi_test_secret",
		Amount:       payments.ToMinorUnits(price),
		Currency:     "usd",
	}, nil
}

type testServer struct {
	app    *application
	store  *models.MemoryStore
	events *events.Recorder
	h      http.Handler
}

func newTestServer(t *testing.T, opts ...func(*application)) *testServer {
	t.Helper()
	store := models.NewMemoryStore()
	rec := &events.Recorder{}
	app := &application{
		errorLog:    log.New(io.Discard, "", 0),
		infoLog:     log.New(io.Discard, "", 0),
		store:       store,
		principals:  store,
		issuer:      auth.NewIssuer("test-secret", time.Hour),
		resolver:    access.NewResolver(store),
		intents:     fakeIntents{},
		events:      rec,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		corsOrigins: originSet([]string{"http://localhost:5173"}),
	}
	for _, opt := range opts {
		opt(app)
	}
	return &testServer{app: app, store: store, events: rec, h: app.routes()}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.h.ServeHTTP(rr, req)
	return rr
}

// principal creates a principal with the given role and returns a token for it.
func (ts *testServer) principal(t *testing.T, email string, role models.Role) string {
	t.Helper()
	ctx := context.Background()
	_, err := ts.store.UpsertPrincipal(ctx, &models.Principal{Email: email})
	require.NoError(t, err)
	if role != models.RoleUnset {
		_, err = ts.store.UpdateRole(ctx, email, role)
		require.NoError(t, err)
	}
	token, err := ts.app.issuer.Issue(email)
	require.NoError(t, err)
	return token
}

func (ts *testServer) product(t *testing.T, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: "Desk Lamp", Price: 24.5, Stock: stock}
	_, err := ts.store.InsertProduct(context.Background(), p)
	require.NoError(t, err)
	return p
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHome(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "TrendMart's server is running", rr.Body.String())

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		rr = ts.do(t, method, "/no-such-route", nil, "")
		assert.Equal(t, http.StatusNotFound, rr.Code, method)
		assert.Empty(t, rr.Header().Get("Allow"), method)
	}

	rr = ts.do(t, http.MethodPost, "/", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// A known path with the wrong method is still 405.
	rr = ts.do(t, http.MethodPost, "/all-products", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Contains(t, rr.Header().Get("Allow"), http.MethodGet)
}

func TestAdminRouteAccess(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.principal(t, "admin@x.io", models.RoleAdmin)
	vendor := ts.principal(t, "vendor@x.io", models.RoleVendor)
	user := ts.principal(t, "user@x.io", models.RoleUser)
	blank := ts.principal(t, "blank@x.io", models.RoleUnset)
	ghost, err := ts.app.issuer.Issue("ghost@x.io")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"no token", "Bearer", http.StatusUnauthorized},
		{"other scheme", "Basic YWRtaW46YWRtaW4=", http.StatusUnauthorized},
		{"bad token", "Bearer not.a.token", http.StatusForbidden},
		{"vendor", "Bearer " + vendor, http.StatusForbidden},
		{"user", "Bearer " + user, http.StatusForbidden},
		{"no role", "Bearer " + blank, http.StatusForbidden},
		{"no principal", "Bearer " + ghost, http.StatusForbidden},
		{"admin", "Bearer " + admin, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/get-all-users", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			ts.h.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestRejectedRequestNeverReachesHandler(t *testing.T) {
	ts := newTestServer(t)
	user := ts.principal(t, "user@x.io", models.RoleUser)

	rr := ts.do(t, http.MethodPost, "/add-product", models.Product{Name: "Sneaky", Stock: 3}, user)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Unauthorized Access", decode[map[string]string](t, rr)["message"])

	products, _ := ts.store.AllProducts(context.Background())
	assert.Empty(t, products)
}

func TestVendorRoute(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.principal(t, "admin@x.io", models.RoleAdmin)
	vendor := ts.principal(t, "vendor@x.io", models.RoleVendor)

	rr := ts.do(t, http.MethodGet, "/total-count-information-for-vendor", nil, admin)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.do(t, http.MethodGet, "/total-count-information-for-vendor", nil, vendor)
	require.Equal(t, http.StatusOK, rr.Code)
	totals := decode[models.VendorTotals](t, rr)
	assert.Equal(t, int64(2), totals.TotalUsers)
}

func TestIssuedTokenOpensAdminRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.principal(t, "admin@x.io", models.RoleAdmin)

	rr := ts.do(t, http.MethodPost, "/jwt", map[string]string{"email": "admin@x.io"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	token := decode[map[string]string](t, rr)["token"]
	require.NotEmpty(t, token)

	rr = ts.do(t, http.MethodGet, "/get-user-role/admin@x.io", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "admin", decode[map[string]string](t, rr)["role"])

	rr = ts.do(t, http.MethodPost, "/jwt", map[string]string{"email": ""}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSaveUserNeverGrantsRole(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPut, "/save-user", map[string]string{
		"email": "mallory@x.io",
		"name":  "Mallory",
		"role":  "admin",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, http.MethodGet, "/get-specified-user/mallory@x.io", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	p := decode[models.Principal](t, rr)
	assert.Equal(t, "Mallory", p.Name)
	assert.Equal(t, models.RoleUnset, p.Role)

	token, err := ts.app.issuer.Issue("mallory@x.io")
	require.NoError(t, err)
	rr = ts.do(t, http.MethodGet, "/get-all-users", nil, token)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.do(t, http.MethodGet, "/get-specified-user/nobody@x.io", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateRole(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.principal(t, "admin@x.io", models.RoleAdmin)
	ts.principal(t, "user@x.io", models.RoleUser)

	rr := ts.do(t, http.MethodPatch, "/update-role/user@x.io", map[string]string{"userRole": "overlord"}, admin)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, http.MethodPatch, "/update-role/user@x.io", map[string]string{"userRole": "vendor"}, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(1), decode[models.WriteResult](t, rr).ModifiedCount)

	p, err := ts.store.PrincipalByEmail(context.Background(), "user@x.io")
	require.NoError(t, err)
	assert.Equal(t, models.RoleVendor, p.Role)
}

func TestCheckoutFlow(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.principal(t, "admin@x.io", models.RoleAdmin)

	rr := ts.do(t, http.MethodPost, "/add-product", models.Product{Name: "Desk Lamp", Price: 24.5, Stock: 1}, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	var created struct {
		InsertedID primitive.ObjectID `json:"insertedId"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	productID := created.InsertedID.Hex()

	rr = ts.do(t, http.MethodPut, "/add-to-cart", map[string]any{
		"email":       "buyer@x.io",
		"productId":   productID,
		"productName": "Desk Lamp",
		"price":       24.5,
		"quantity":    1,
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, http.MethodGet, "/cart-items/buyer@x.io", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	items := decode[[]models.CartItem](t, rr)
	require.Len(t, items, 1)

	rr = ts.do(t, http.MethodGet, "/checkout-item/"+items[0].ID.Hex(), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, http.MethodPost, "/create-payment-intent", map[string]any{"price": 24.5}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pi_test_secret", decode[map[string]string](t, rr)["clientSecret"])

	payment := map[string]any{
		"email":         "buyer@x.io",
		"productId":     productID,
		"productName":   "Desk Lamp",
		"paid":          24.5,
		"transactionId": "pi_test",
	}
	rr = ts.do(t, http.MethodPost, "/save-payment-info", payment, "")
	require.Equal(t, http.StatusOK, rr.Code)
	paymentID := decode[struct {
		InsertedID primitive.ObjectID `json:"insertedId"`
	}](t, rr).InsertedID

	rr = ts.do(t, http.MethodGet, "/cart-items/buyer@x.io", nil, "")
	assert.Equal(t, "[]", rr.Body.String())

	rr = ts.do(t, http.MethodGet, "/single-product/"+productID, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, decode[models.Product](t, rr).Stock)

	rr = ts.do(t, http.MethodGet, "/get-paid-information/"+paymentID.Hex(), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.StatusProcessing, decode[models.Payment](t, rr).Status)

	// Replaying the same transaction does not take more stock.
	rr = ts.do(t, http.MethodPost, "/save-payment-info", payment, "")
	require.Equal(t, http.StatusOK, rr.Code)

	// A different buyer finds the product sold out.
	payment["email"] = "late@x.io"
	payment["transactionId"] = "pi_other"
	rr = ts.do(t, http.MethodPost, "/save-payment-info", payment, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	orders, _ := ts.store.AllPayments(context.Background())
	assert.Len(t, orders, 1)

	ts.app.wg.Wait()
	recorded := ts.events.Events()
	require.NotEmpty(t, recorded)
	assert.Equal(t, events.KeyPaymentRecorded, recorded[0].Key)
	assert.Equal(t, paymentID.Hex(), recorded[0].Value.(events.PaymentRecorded).PaymentID)
}

func TestSavePaymentUnknownProduct(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/save-payment-info", map[string]any{
		"email":     "buyer@x.io",
		"productId": primitive.NewObjectID().Hex(),
		"paid":      10,
	}, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(t, http.MethodPost, "/save-payment-info", map[string]any{"email": "buyer@x.io", "paid": 10}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	orders, _ := ts.store.AllPayments(context.Background())
	assert.Empty(t, orders)
}

func TestCreatePaymentIntent(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/create-payment-intent", map[string]any{"price": 0}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, http.MethodPost, "/create-payment-intent", map[string]any{"price": "12.30"}, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	off := newTestServer(t, func(app *application) { app.intents = payments.Disabled{} })
	rr = off.do(t, http.MethodPost, "/create-payment-intent", map[string]any{"price": 5}, "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestUpdateStatus(t *testing.T) {
	ts := newTestServer(t)
	p := ts.product(t, 3)
	pay := &models.Payment{Email: "buyer@x.io", ProductID: p.ID}
	_, err := ts.store.RecordPayment(context.Background(), pay)
	require.NoError(t, err)

	rr := ts.do(t, http.MethodPatch, "/update-status/"+pay.ID.Hex(), map[string]string{"newStatus": "shipping"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(1), decode[models.WriteResult](t, rr).MatchedCount)

	got, err := ts.store.Payment(context.Background(), pay.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipping, got.Status)

	rr = ts.do(t, http.MethodPatch, "/update-status/"+primitive.NewObjectID().Hex(), map[string]string{"newStatus": "shipping"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, decode[models.WriteResult](t, rr).MatchedCount)

	rr = ts.do(t, http.MethodPatch, "/update-status/not-an-id", map[string]string{"newStatus": "shipping"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	ts.app.wg.Wait()
	recorded := ts.events.Events()
	require.Len(t, recorded, 1)
	assert.Equal(t, events.KeyStatusChanged, recorded[0].Key)
}

func TestUpdateStatusCanRequireAdmin(t *testing.T) {
	ts := newTestServer(t, func(app *application) { app.statusUpdateRequiresAdmin = true })
	p := ts.product(t, 1)
	pay := &models.Payment{Email: "buyer@x.io", ProductID: p.ID}
	_, err := ts.store.RecordPayment(context.Background(), pay)
	require.NoError(t, err)

	rr := ts.do(t, http.MethodPatch, "/update-status/"+pay.ID.Hex(), map[string]string{"newStatus": "shipping"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	admin := ts.principal(t, "admin@x.io", models.RoleAdmin)
	rr = ts.do(t, http.MethodPatch, "/update-status/"+pay.ID.Hex(), map[string]string{"newStatus": "shipping"}, admin)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestStatusCountsAndOrders(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.principal(t, "admin@x.io", models.RoleAdmin)

	rr := ts.do(t, http.MethodGet, "/get-count-payment-status", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	empty := decode[map[string]any](t, rr)
	assert.Equal(t, []any{}, empty["allPayments"])

	p := ts.product(t, 5)
	for _, status := range []string{models.StatusProcessing, models.StatusDelivered, "lost"} {
		_, err := ts.store.RecordPayment(context.Background(), &models.Payment{Email: "b@x.io", ProductID: p.ID, Status: status})
		require.NoError(t, err)
	}

	rr = ts.do(t, http.MethodGet, "/get-count-payment-status", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	counts := decode[models.StatusCounts](t, rr)
	assert.Equal(t, int64(1), counts.Processing)
	assert.Equal(t, int64(1), counts.Delivered)
	assert.Equal(t, int64(3), counts.Total)
	assert.Len(t, counts.AllPayments, 3)

	rr = ts.do(t, http.MethodGet, "/all-orders", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]models.Payment](t, rr), 3)

	orders, _ := ts.store.AllPayments(context.Background())
	rr = ts.do(t, http.MethodGet, "/get-status/"+orders[2].ID.Hex(), nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "lost", decode[map[string]string](t, rr)["status"])
}

func TestProductAdmin(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.principal(t, "admin@x.io", models.RoleAdmin)
	p := ts.product(t, 4)

	rr := ts.do(t, http.MethodPatch, "/update-product/"+p.ID.Hex(), map[string]any{"price": 30}, admin)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, http.MethodGet, "/update-in-que-product/"+p.ID.Hex(), nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[models.Product](t, rr)
	assert.Equal(t, 30.0, got.Price)
	assert.Equal(t, 4, got.Stock)

	rr = ts.do(t, http.MethodGet, "/get-all-products-for-admin", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]models.Product](t, rr), 1)

	rr = ts.do(t, http.MethodDelete, "/delete-product/"+p.ID.Hex(), nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(1), decode[models.WriteResult](t, rr).DeletedCount)

	rr = ts.do(t, http.MethodGet, "/single-product/"+p.ID.Hex(), nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(t, http.MethodGet, "/single-product/xyz", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReviews(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/post-comment", map[string]any{
		"item_name": "Desk Lamp",
		"email":     "a@x.io",
		"rating":    5,
		"comment":   "Bright.",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, http.MethodPost, "/post-comment", map[string]any{
		"item_name": "Desk Lamp",
		"email":     "a@x.io",
		"rating":    9,
		"comment":   "Too bright.",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, http.MethodGet, "/get-comments/Desk%20Lamp", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]models.Review](t, rr), 1)

	rr = ts.do(t, http.MethodGet, "/all-reviews", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]models.Review](t, rr), 1)
}

func TestBannerItems(t *testing.T) {
	ts := newTestServer(t)
	ts.store.SeedBanners(models.Banner{Title: "Summer sale"})

	rr := ts.do(t, http.MethodGet, "/banner-items", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	banners := decode[[]models.Banner](t, rr)
	require.Len(t, banners, 1)
	assert.Equal(t, "Summer sale", banners[0].Title)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/add-to-cart", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rr := httptest.NewRecorder()
	ts.h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/all-products", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	ts.h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
