package main

import (
	"errors"
	"net/http"
	"time"

	"trendmart/internal/access"
	"trendmart/internal/events"
	"trendmart/internal/models"
	"trendmart/internal/payments"

	"github.com/shopspring/decimal"
)

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		app.notFound(w)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("TrendMart's server is running"))
}

// --- USER HANDLERS ---

func (app *application) saveUser(w http.ResponseWriter, r *http.Request) {
	var p models.Principal
	if err := app.readJSON(w, r, &p); err != nil {
		app.badRequest(w, err)
		return
	}
	if err := app.check(&p); err != nil {
		app.badRequest(w, err)
		return
	}

	res, err := app.principals.UpsertPrincipal(r.Context(), &p)
	if err != nil {
		app.storeError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, res)
}

func (app *application) issueToken(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequest(w, err)
		return
	}
	if err := app.check(&input); err != nil {
		app.badRequest(w, err)
		return
	}

	token, err := app.issuer.Issue(input.Email)
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (app *application) specifiedUser(w http.ResponseWriter, r *http.Request) {
	p, err := app.principals.PrincipalByEmail(r.Context(), param(r, "email"))
	if err != nil {
		app.storeError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, p)
}

func (app *application) allUsers(w http.ResponseWriter, r *http.Request) {
	users, err := app.principals.AllPrincipals(r.Context())
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, nonNil(users))
}

func (app *application) userRole(w http.ResponseWriter, r *http.Request) {
	p, err := app.principals.PrincipalByEmail(r.Context(), param(r, "email"))
	if err != nil {
		app.storeError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, map[string]models.Role{"role": models.StoredRole(string(p.Role))})
}

func (app *application) updateRole(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserRole string `json:"userRole"`
	}
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequest(w, err)
		return
	}
	role := models.ParseRole(input.UserRole)
	if !role.Valid() {
		app.message(w, http.StatusBadRequest, "userRole must be one of user, vendor, admin")
		return
	}

	email := param(r, "email")
	res, err := app.principals.UpdateRole(r.Context(), email, role)
	if err != nil {
		app.serverError(w, err)
		return
	}
	if id, ok := access.IdentityFrom(r.Context()); ok && res.ModifiedCount > 0 {
		app.infoLog.Printf("role of %s set to %s by %s", email, role, id.Email)
	}
	app.writeJSON(w, http.StatusOK, res)
}

// --- CATALOG HANDLERS ---

func (app *application) bannerItems(w http.ResponseWriter, r *http.Request) {
	banners, err := app.store.AllBanners(r.Context())
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, nonNil(banners))
}

func (app *application) allProducts(w http.ResponseWriter, r *http.Request) {
	products, err := app.store.AllProducts(r.Context())
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, nonNil(products))
}

func (app *application) showProduct(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		app.badRequest(w, err)
		return
	}
	p, err := app.store.Product(r.Context(), id)
	if err != nil {
		app.storeError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, p)
}

func (app *application) addProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := app.readJSON(w, r, &p); err != nil {
		app.badRequest(w, err)
		return
	}
	if err := app.check(&p); err != nil {
		app.badRequest(w, err)
		return
	}

	res, err := app.store.InsertProduct(r.Context(), &p)
	if err != nil {
		app.storeError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, res)
}

func (app *application) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		app.badRequest(w, err)
		return
	}
	var u models.ProductUpdate
	if err := app.readJSON(w, r, &u); err != nil {
		app.badRequest(w, err)
		return
	}
	if err := app.check(&u); err != nil {
		app.badRequest(w, err)
		return
	}

	res, err := app.store.UpdateProduct(r.Context(), id, u)
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, res)
}

func (app *application) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		app.badRequest(w, err)
		return
	}
	res, err := app.store.DeleteProduct(r.Context(), id)
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, res)
}

// --- REVIEW HANDLERS ---

func (app *application) allReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := app.store.AllReviews(r.Context())
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, nonNil(reviews))
}

func (app *application) postComment(w http.ResponseWriter, r *http.Request) {
	var rv models.Review
	if err := app.readJSON(w, r, &rv); err != nil {
		app.badRequest(w, err)
		return
	}
	if err := app.check(&rv); err != nil {
		app.badRequest(w, err)
		return
	}

	res, err := app.store.InsertReview(r.Context(), &rv)
	if err != nil {
		app.storeError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, res)
}

func (app *application) comments(w http.ResponseWriter, r *http.Request) {
	reviews, err := app.store.ReviewsFor(r.Context(), param(r, "item_name"))
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, nonNil(reviews))
}

// --- CART HANDLERS ---

func (app *application) addToCart(w http.ResponseWriter, r *http.Request) {
	var item models.CartItem
	if err := app.readJSON(w, r, &item); err != nil {
		app.badRequest(w, err)
		return
	}
	if err := app.check(&item); err != nil {
		app.badRequest(w, err)
		return
	}
	if item.ProductID.IsZero() {
		app.message(w, http.StatusBadRequest, "productId is required")
		return
	}

	res, err := app.store.UpsertCartItem(r.Context(), &item)
	if err != nil {
		app.storeError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, res)
}

func (app *application) cartItems(w http.ResponseWriter, r *http.Request) {
	items, err := app.store.CartItems(r.Context(), param(r, "email"))
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, nonNil(items))
}

func (app *application) checkoutItem(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		app.badRequest(w, err)
		return
	}
	item, err := app.store.CartItem(r.Context(), id)
	if err != nil {
		app.storeError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, item)
}

func (app *application) deleteCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		app.badRequest(w, err)
		return
	}
	res, err := app.store.DeleteCartItem(r.Context(), id)
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, res)
}

// --- PAYMENT HANDLERS ---

func (app *application) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Price decimal.Decimal `json:"price"`
	}
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequest(w, err)
		return
	}
	if !input.Price.IsPositive() {
		app.message(w, http.StatusBadRequest, "price must be positive")
		return
	}

	intent, err := app.intents.CreateIntent(r.Context(), input.Price)
	switch {
	case errors.Is(err, payments.ErrDisabled):
		app.message(w, http.StatusServiceUnavailable, "payments are not configured")
		return
	case errors.Is(err, payments.ErrInvalidAmount):
		app.badRequest(w, err)
		return
	case err != nil:
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, map[string]string{"clientSecret": intent.ClientSecret})
}

func (app *application) savePaymentInfo(w http.ResponseWriter, r *http.Request) {
	var p models.Payment
	if err := app.readJSON(w, r, &p); err != nil {
		app.badRequest(w, err)
		return
	}
	if err := app.check(&p); err != nil {
		app.badRequest(w, err)
		return
	}
	if p.ProductID.IsZero() {
		app.message(w, http.StatusBadRequest, "productId is required")
		return
	}

	res, err := app.store.RecordPayment(r.Context(), &p)
	if err != nil {
		app.storeError(w, err)
		return
	}

	app.publish(events.KeyPaymentRecorded, events.PaymentRecorded{
		PaymentID:     p.ID.Hex(),
		Email:         p.Email,
		ProductID:     p.ProductID.Hex(),
		Paid:          p.Paid,
		TransactionID: p.TransactionID,
		Status:        p.Status,
		OccurredAt:    time.Now().UTC(),
	})
	app.writeJSON(w, http.StatusOK, res)
}

func (app *application) showPayment(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		app.badRequest(w, err)
		return
	}
	p, err := app.store.Payment(r.Context(), id)
	if err != nil {
		app.storeError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, p)
}

// --- ORDER HANDLERS ---

func (app *application) allOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := app.store.AllPayments(r.Context())
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, nonNil(orders))
}

func (app *application) paymentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		app.badRequest(w, err)
		return
	}
	p, err := app.store.Payment(r.Context(), id)
	if err != nil {
		app.storeError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, map[string]string{"status": p.Status})
}

func (app *application) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		app.badRequest(w, err)
		return
	}
	var input struct {
		NewStatus *string `json:"newStatus"`
	}
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequest(w, err)
		return
	}
	if input.NewStatus == nil {
		app.message(w, http.StatusBadRequest, "newStatus is required")
		return
	}

	res, err := app.store.SetStatus(r.Context(), id, *input.NewStatus)
	if err != nil {
		app.serverError(w, err)
		return
	}
	if res.MatchedCount > 0 {
		app.publish(events.KeyStatusChanged, events.StatusChanged{
			PaymentID:  id.Hex(),
			Status:     *input.NewStatus,
			OccurredAt: time.Now().UTC(),
		})
	}
	app.writeJSON(w, http.StatusOK, res)
}

func (app *application) statusCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := app.store.StatusCounts(r.Context())
	if err != nil {
		app.serverError(w, err)
		return
	}
	counts.AllPayments = nonNil(counts.AllPayments)
	app.writeJSON(w, http.StatusOK, counts)
}

func (app *application) vendorTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := app.store.VendorTotals(r.Context())
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, totals)
}
