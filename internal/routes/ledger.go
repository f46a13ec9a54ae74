package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kas-kecil/kas_kecil/internal/ledger"
)

// RegisterLedgerRoutes wires the petty-cash entry and balance endpoints.
func RegisterLedgerRoutes(r fiber.Router, h *ledger.Handler) {
	r.Post("/entries", h.Add)
	r.Get("/entries", h.List)
	r.Get("/entries/:id", h.Get)
	r.Put("/entries/:id", h.Update)
	r.Delete("/entries/:id", h.Delete)
	r.Get("/balance", h.Balance)
}
