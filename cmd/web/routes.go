package main

import (
	"net/http"

	"trendmart/internal/access"

	"github.com/bmizerany/pat"
)

func (app *application) routes() http.Handler {
	admin := access.AdminChain(app.issuer, app.resolver)
	vendor := access.VendorChain(app.issuer, app.resolver)
	h := func(f http.HandlerFunc) http.Handler { return f }

	mux := pat.New()

	// Public.
	mux.Put("/save-user", h(app.saveUser))
	mux.Post("/jwt", h(app.issueToken))
	mux.Get("/get-specified-user/:email", h(app.specifiedUser))
	mux.Get("/banner-items", h(app.bannerItems))
	mux.Get("/all-products", h(app.allProducts))
	mux.Get("/all-reviews", h(app.allReviews))
	mux.Get("/single-product/:id", h(app.showProduct))
	mux.Put("/add-to-cart", h(app.addToCart))
	mux.Get("/cart-items/:email", h(app.cartItems))
	mux.Del("/delete-cart-item/:id", h(app.deleteCartItem))
	mux.Post("/create-payment-intent", h(app.createPaymentIntent))
	mux.Post("/save-payment-info", h(app.savePaymentInfo))
	mux.Get("/get-paid-information/:id", h(app.showPayment))
	mux.Get("/checkout-item/:id", h(app.checkoutItem))
	mux.Post("/post-comment", h(app.postComment))
	mux.Get("/get-comments/:item_name", h(app.comments))

	// Admin.
	mux.Get("/get-all-users", app.guard(admin, h(app.allUsers)))
	mux.Get("/get-user-role/:email", app.guard(admin, h(app.userRole)))
	mux.Patch("/update-role/:email", app.guard(admin, h(app.updateRole)))
	mux.Get("/get-all-products-for-admin", app.guard(admin, h(app.allProducts)))
	mux.Post("/add-product", app.guard(admin, h(app.addProduct)))
	mux.Del("/delete-product/:id", app.guard(admin, h(app.deleteProduct)))
	mux.Get("/update-in-que-product/:id", app.guard(admin, h(app.showProduct)))
	mux.Patch("/update-product/:id", app.guard(admin, h(app.updateProduct)))
	mux.Get("/all-orders", app.guard(admin, h(app.allOrders)))
	mux.Get("/payment-details/:id", app.guard(admin, h(app.showPayment)))
	mux.Get("/get-status/:id", app.guard(admin, h(app.paymentStatus)))
	mux.Get("/get-count-payment-status", app.guard(admin, h(app.statusCounts)))

	// The status update has historically been reachable without a token.
	if app.statusUpdateRequiresAdmin {
		mux.Patch("/update-status/:id", app.guard(admin, h(app.updateStatus)))
	} else {
		mux.Patch("/update-status/:id", h(app.updateStatus))
	}

	// Vendor.
	mux.Get("/total-count-information-for-vendor", app.guard(vendor, h(app.vendorTotals)))

	// Registering "/" would prefix-match every path, so the root is served from
	// the not-found handler instead.
	mux.NotFound = h(app.home)

	return app.logRequest(app.recoverPanic(app.cors(mux)))
}
