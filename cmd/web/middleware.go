package main

import (
	"fmt"
	"net/http"

	"trendmart/internal/access"
)

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.infoLog.Printf("%s - %s %s %s", r.RemoteAddr, r.Proto, r.Method, r.URL.RequestURI())
		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, fmt.Errorf("%s", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (app *application) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")

		origin := r.Header.Get("Origin")
		if origin != "" && app.corsOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// guard runs the chain before next. A rejected request never reaches next;
// an allowed one carries the caller's identity in its context.
func (app *application) guard(chain access.Chain, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := &access.Request{Authorization: r.Header.Get("Authorization")}

		out := chain.Evaluate(r.Context(), req)
		if !out.Allowed {
			app.reject(w, out)
			return
		}

		ctx := r.Context()
		if req.Identity != nil {
			ctx = access.WithIdentity(ctx, *req.Identity)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// reject answers 401 when no usable credential was sent and 403 when the
// credential failed verification or lacks the role.
func (app *application) reject(w http.ResponseWriter, out access.Outcome) {
	switch out.Reason {
	case access.ReasonMissingToken, access.ReasonMalformedToken:
		app.message(w, http.StatusUnauthorized, "Forbidden Access")
	case access.ReasonInvalidToken:
		app.message(w, http.StatusForbidden, "Unauthorized Access!")
	case access.ReasonForbidden:
		app.message(w, http.StatusForbidden, "Unauthorized Access")
	default:
		err := out.Err
		if err == nil {
			err = fmt.Errorf("access rejected: %s", out.Reason)
		}
		app.serverError(w, err)
	}
}
