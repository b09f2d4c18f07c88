// Package httpapi exposes the rs.ge operations over HTTP for the ERP
// front end. Callers authenticate with an HS256 bearer token whose subject
// identifies whose rs.ge credentials are used.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tetrisge/rsge/internal/credentials"
	"github.com/tetrisge/rsge/rsge"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type Handler struct {
	client    *rsge.Client
	store     credentials.Store
	jwtSecret []byte
	logger    *slog.Logger
	now       func() time.Time
}

func NewHandler(client *rsge.Client, store credentials.Store, jwtSecret []byte, logger *slog.Logger) *Handler {
	return &Handler{
		client:    client,
		store:     store,
		jwtSecret: jwtSecret,
		logger:    logger,
		now:       time.Now,
	}
}

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(h.recoverMiddleware)
	r.Use(h.loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, nil) })

	r.Route("/api/rs-ge", func(r chi.Router) {
		r.Use(h.authMiddleware)

		r.Get("/tin/{tin}", h.lookupTin)

		r.Route("/waybill", func(r chi.Router) {
			r.Get("/", h.getWaybills)
			r.Delete("/", h.deleteWaybill)
			r.Put("/", h.closeWaybill)
			r.Post("/save", h.saveWaybill)
			r.Post("/send", h.sendWaybill)
			r.Get("/units", h.getWaybillUnits)
		})

		r.Route("/invoice", func(r chi.Router) {
			r.Get("/", h.getInvoices)
			r.Post("/", h.saveInvoice)
		})

		r.Delete("/submissions/{digest}", h.forgetSubmission)
	})
	return r
}
