package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Generic handler factories shared by the resource endpoints. notFoundMsg is
// the client-facing text when the lookup reports domain.ErrNotFound.

// byID adapts a lookup keyed by the {id} URL parameter.
func byID[T any](fn func(ctx context.Context, id string) (T, error)) func(r *http.Request) (T, error) {
	return func(r *http.Request) (T, error) {
		return fn(r.Context(), chi.URLParam(r, "id"))
	}
}

// noParam adapts a lookup that needs only the request context.
func noParam[T any](fn func(ctx context.Context) (T, error)) func(r *http.Request) (T, error) {
	return func(r *http.Request) (T, error) {
		return fn(r.Context())
	}
}

// handleList writes the listed items, [] rather than null when there are none.
func handleList[T any](list func(r *http.Request) ([]T, error), notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := list(r)
		if err != nil {
			writeDomainError(w, r, err, notFoundMsg)
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// handleGet writes a single item.
func handleGet[T any](get func(r *http.Request) (*T, error), notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := get(r)
		if err != nil {
			writeDomainError(w, r, err, notFoundMsg)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// handleCreate decodes Req from the body and answers 201 with the result.
func handleCreate[Req, Res any](bodyLimit int64, create func(ctx context.Context, req Req) (*Res, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := readJSON[Req](w, r, bodyLimit)
		if !ok {
			return
		}
		res, err := create(r.Context(), req)
		if err != nil {
			writeDomainError(w, r, err, "not found")
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

// handleDelete answers 204 once the {id} resource is gone.
func handleDelete(del func(ctx context.Context, id string) error, notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := del(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, r, err, notFoundMsg)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
