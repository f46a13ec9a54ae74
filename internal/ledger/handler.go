package ledger

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the ledger operations over HTTP.
type Handler struct {
	service *Service
}

// NewHandler builds a ledger HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Add records a new entry.
func (h *Handler) Add(c *fiber.Ctx) error {
	var payload Payload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if !payload.EntryType.Valid() {
		return fiber.NewError(http.StatusBadRequest, "entry_type must be debit or credit")
	}

	entry, err := h.service.Add(c.UserContext(), payload)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(entry)
}

// Get returns a single entry by id.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	entry, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(entry)
}

// List returns entries whose date falls within the inclusive start/end
// query window. Both bounds default to the full range.
func (h *Handler) List(c *fiber.Ctx) error {
	start, err := parseBound(c.Query("start"), 0)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid start timestamp")
	}
	end, err := parseBound(c.Query("end"), math.MaxUint64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid end timestamp")
	}

	entries, err := h.service.EntriesBetween(c.UserContext(), start, end)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(entries)
}

// Balance returns the current running balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.Balance(c.UserContext())
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"balance": balance})
}

// Update replaces the mutable fields of an existing entry.
func (h *Handler) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var payload Payload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if !payload.EntryType.Valid() {
		return fiber.NewError(http.StatusBadRequest, "entry_type must be debit or credit")
	}

	entry, err := h.service.Update(c.UserContext(), id, payload)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(entry)
}

// Delete removes an entry and returns its pre-deletion snapshot.
func (h *Handler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	entry, err := h.service.Delete(c.UserContext(), id)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(entry)
}

func parseID(c *fiber.Ctx) (uint64, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid entry id")
	}
	return id, nil
}

func parseBound(raw string, fallback uint64) (uint64, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
