package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"

	"trendmart/internal/models"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxBodyBytes = 1 << 20

func (app *application) serverError(w http.ResponseWriter, err error) {
	trace := fmt.Sprintf("%s\n%s", err.Error(), debug.Stack())
	app.errorLog.Output(2, trace)

	app.message(w, http.StatusInternalServerError, "internal server error")
}

func (app *application) clientError(w http.ResponseWriter, status int) {
	app.message(w, status, http.StatusText(status))
}

func (app *application) notFound(w http.ResponseWriter) {
	app.clientError(w, http.StatusNotFound)
}

func (app *application) badRequest(w http.ResponseWriter, err error) {
	app.message(w, http.StatusBadRequest, err.Error())
}

func (app *application) message(w http.ResponseWriter, status int, msg string) {
	app.writeJSON(w, status, map[string]string{"message": msg})
}

func (app *application) writeJSON(w http.ResponseWriter, status int, data any) {
	js, err := json.Marshal(data)
	if err != nil {
		app.serverError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
}

// storeError maps store sentinels onto responses; anything else is a 500.
func (app *application) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		app.notFound(w)
	case errors.Is(err, models.ErrOutOfStock):
		app.message(w, http.StatusConflict, "product is out of stock")
	case errors.Is(err, models.ErrDuplicate):
		app.message(w, http.StatusConflict, "duplicate record")
	default:
		app.serverError(w, err)
	}
}

func (app *application) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var typeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.As(err, &typeError):
			if typeError.Field != "" {
				return fmt.Errorf("body contains an incorrect JSON type for field %q", typeError.Field)
			}
			return fmt.Errorf("body contains an incorrect JSON type (at character %d)", typeError.Offset)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		default:
			return fmt.Errorf("body is invalid: %w", err)
		}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

// check runs the struct's validate tags and flattens any failures into one
// message.
func (app *application) check(v any) error {
	err := app.validate.Struct(v)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func objectIDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	raw := r.URL.Query().Get(":" + name)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func param(r *http.Request, name string) string {
	return r.URL.Query().Get(":" + name)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
