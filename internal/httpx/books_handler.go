package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"librarysvc/internal/auth"
	"librarysvc/internal/library"
)

type BooksHandler struct {
	Catalog *library.Catalog
}

// bookResponse adds the derived availability flag to the stored record.
type bookResponse struct {
	library.Book
	IsStock bool `json:"is_stock"`
}

func toBookResponse(b library.Book) bookResponse {
	return bookResponse{Book: b, IsStock: b.InStock()}
}

// Register mounts reads for every member and writes for administrators only.
func (h *BooksHandler) Register(r chi.Router) {
	r.Get("/books", h.list)
	r.Get("/books/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Post("/books", h.create)
		r.Put("/books/{id}", h.update)
		r.Patch("/books/{id}", h.patch)
		r.Delete("/books/{id}", h.delete)
	})
}

type bookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Price       int    `json:"price"`
	Stock       int    `json:"stock"`
}

func bookID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (h *BooksHandler) create(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, err := h.Catalog.Create(ctx, &library.Book{
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookResponse(*b))
}

func (h *BooksHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	books, err := h.Catalog.List(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toBookResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BooksHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(r)
	if !ok {
		writeError(w, library.ErrNotFound)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	b, err := h.Catalog.Get(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookResponse(*b))
}

func (h *BooksHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(r)
	if !ok {
		writeError(w, library.ErrNotFound)
		return
	}
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, err := h.Catalog.Update(ctx, id, &library.Book{
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookResponse(*b))
}

func (h *BooksHandler) patch(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(r)
	if !ok {
		writeError(w, library.ErrNotFound)
		return
	}
	var p library.BookPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, err := h.Catalog.Patch(ctx, id, &p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookResponse(*b))
}

func (h *BooksHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(r)
	if !ok {
		writeError(w, library.ErrNotFound)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Catalog.Delete(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
