package api

import (
	"errors"
	"net/http"

	"venuebook/internal/domain/waitlist"
	reqdto "venuebook/internal/handler/dto/request"
	resdto "venuebook/internal/handler/dto/response"
	"venuebook/internal/handler/httperr"
	"venuebook/internal/handler/middleware"
	"venuebook/internal/usecase/commands"
	"venuebook/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type WaitlistHandler struct {
	waitlistCommands commands.WaitlistCommands
}

func NewWaitlistHandler(waitlistCommands commands.WaitlistCommands) *WaitlistHandler {
	return &WaitlistHandler{waitlistCommands: waitlistCommands}
}

// @Summary Join waitlist
// @Description Join the queue for a full slot
// @Tags waitlist
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.CreateWaitlistEntryRequest true "Waitlist request"
// @Success 201 {object} resdto.WaitlistEntryResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /waitlist [post]
func (h *WaitlistHandler) CreateEntry(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, nil, "Internal server error", nil)
		return
	}

	var req reqdto.CreateWaitlistEntryRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request format", nil)
		return
	}

	view, err := h.waitlistCommands.CreateEntry(c.Request.Context(), commands.CreateEntryParams{
		SlotID:    req.SlotID,
		PartySize: req.PartySize,
		Notes:     req.Notes,
	}, userID)
	if err != nil {
		var dup *commands.WaitlistDuplicateError
		switch {
		case errors.As(err, &dup):
			httperr.AbortWithError(c, http.StatusConflict, err, "Already on the waitlist for this slot", gin.H{
				"entryId":       dup.EntryID,
				"reservationId": dup.ReservationID,
			})
		case errors.Is(err, commands.ErrWaitlistDuplicate):
			// Duplicate without identifiers (lost race whose winner could
			// not be read back).
			httperr.AbortWithError(c, http.StatusConflict, err, "Already on the waitlist for this slot", nil)
		case errors.Is(err, commands.ErrSlotNotFound):
			httperr.AbortWithError(c, http.StatusNotFound, err, "Slot not found", nil)
		case errors.Is(err, commands.ErrSlotNotFull):
			httperr.AbortWithError(c, http.StatusConflict, err, "Slot still has capacity; book it directly", nil)
		case errors.Is(err, commands.ErrInvalidPartySize):
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid party size", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusCreated, resdto.FromWaitlistEntryView(view))
}

// @Summary List waitlist entries
// @Description List the caller's waitlist entries
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param filter query string false "active | expired | all (default active)"
// @Success 200 {array} resdto.WaitlistEntryResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /waitlist [get]
func (h *WaitlistHandler) ListEntries(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, nil, "Internal server error", nil)
		return
	}

	filter, err := queries.ParseWaitlistFilter(c.Query("filter"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid filter", nil)
		return
	}

	views, err := h.waitlistCommands.List(c.Request.Context(), userID, filter)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromWaitlistEntryViews(views))
}

// @Summary Cancel waitlist entry
// @Description Leave the queue; a live offer passes to the next candidate
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /waitlist/{id} [delete]
func (h *WaitlistHandler) CancelEntry(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, nil, "Internal server error", nil)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid entry ID format", nil)
		return
	}

	if err := h.waitlistCommands.Cancel(c.Request.Context(), id, userID); err != nil {
		switch {
		case errors.Is(err, commands.ErrWaitlistEntryNotFound):
			httperr.AbortWithError(c, http.StatusNotFound, err, "Waitlist entry not found", nil)
		case errors.Is(err, commands.ErrAlreadyConverted):
			httperr.AbortWithError(c, http.StatusConflict, err, "Entry was already converted to a booking; cancel the reservation instead", nil)
		case errors.Is(err, commands.ErrEntryNotActionable):
			httperr.AbortWithError(c, http.StatusConflict, err, "Entry is no longer active", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Accept waitlist offer
// @Description Convert a live offer into a booking
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry ID"
// @Success 200 {object} resdto.ReservationResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /waitlist/{id}/accept [post]
func (h *WaitlistHandler) AcceptOffer(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, nil, "Internal server error", nil)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid entry ID format", nil)
		return
	}

	view, err := h.waitlistCommands.AcceptOffer(c.Request.Context(), id, userID)
	if err != nil {
		h.respondOfferError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromReservationView(view))
}

// @Summary Refuse waitlist offer
// @Description Decline a live offer; it passes to the next candidate
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /waitlist/{id}/refuse [post]
func (h *WaitlistHandler) RefuseOffer(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, nil, "Internal server error", nil)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid entry ID format", nil)
		return
	}

	if err := h.waitlistCommands.RefuseOffer(c.Request.Context(), id, userID); err != nil {
		h.respondOfferError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *WaitlistHandler) respondOfferError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, commands.ErrWaitlistEntryNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Waitlist entry not found", nil)
	case errors.Is(err, waitlist.ErrOfferExpired):
		httperr.AbortWithError(c, http.StatusConflict, err, "Offer has expired", nil)
	case errors.Is(err, waitlist.ErrNotOfferSent), errors.Is(err, commands.ErrEntryNotActionable):
		httperr.AbortWithError(c, http.StatusConflict, err, "Entry has no open offer", nil)
	default:
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
	}
}
