package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kozuki35/hot-desking/internal/apperr"
	"github.com/kozuki35/hot-desking/internal/domain"
	"github.com/kozuki35/hot-desking/internal/service/booking"
	"github.com/kozuki35/hot-desking/pkg/model"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.PUT("/:id", RequireAdmin(), h.update)
	router.DELETE("/:id", h.cancel)
}

// RegisterMine mounts the acting user's own booking routes.
func (h *BookingHandler) RegisterMine(router *gin.RouterGroup) {
	router.GET("", h.mine)
	router.PUT("/:id", h.update)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	date, err := domain.ParseDate(req.BookingDate)
	if err != nil {
		writeError(c, apperr.InvalidInput(err.Error()))
		return
	}
	slots, err := domain.ParseSlotSet(req.TimeSlotValues)
	if err != nil {
		writeError(c, apperr.InvalidInput(err.Error()))
		return
	}

	created, err := h.service.CreateBookings(c.Request.Context(), actorFrom(c), booking.CreateBookingInput{
		DeskID: req.DeskID,
		Date:   date,
		Slots:  slots,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.BookingsResponse{Booking: toBookings(created)})
}

// list returns the raw bookings of one desk and date when both are given.
// Without them it is the admin listing of every booking.
func (h *BookingHandler) list(c *gin.Context) {
	deskID, rawDate := c.Query("deskId"), c.Query("date")
	if deskID != "" || rawDate != "" {
		date, err := domain.ParseDate(rawDate)
		if err != nil {
			writeError(c, apperr.InvalidInput(err.Error()))
			return
		}
		list, err := h.service.ListForDesk(c.Request.Context(), deskID, date)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, model.BookingListResponse{Bookings: toBookings(list)})
		return
	}

	if !actorFrom(c).IsAdmin() {
		writeError(c, apperr.Forbidden("Administrator access required"))
		return
	}

	var statuses []domain.BookingStatus
	for _, v := range c.QueryArray("status") {
		status := domain.BookingStatus(v)
		if !status.Valid() {
			writeError(c, apperr.InvalidInput("unknown booking status "+v))
			return
		}
		statuses = append(statuses, status)
	}

	views, err := h.service.ListAll(c.Request.Context(), booking.ListFilter{Query: c.Query("q"), Statuses: statuses})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.BookingViewsResponse{Bookings: toBookingViews(views)})
}

func (h *BookingHandler) mine(c *gin.Context) {
	var status domain.BookingStatus
	if v := c.Query("status"); v != "" && v != "all" {
		status = domain.BookingStatus(v)
	}

	views, err := h.service.MyBookings(c.Request.Context(), actorFrom(c), status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.BookingViewsResponse{Bookings: toBookingViews(views)})
}

func (h *BookingHandler) update(c *gin.Context) {
	var req model.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	input := booking.UpdateBookingInput{Status: domain.BookingStatus(req.Status)}
	if req.BookingDate != "" {
		date, err := domain.ParseDate(req.BookingDate)
		if err != nil {
			writeError(c, apperr.InvalidInput(err.Error()))
			return
		}
		input.Date = date
	}
	if req.TimeSlot != nil && req.TimeSlot.Value != "" {
		slot, err := domain.ParseTimeSlot(req.TimeSlot.Value)
		if err != nil {
			writeError(c, apperr.InvalidInput(err.Error()))
			return
		}
		input.TimeSlot = slot
	}

	updated, err := h.service.UpdateBooking(c.Request.Context(), actorFrom(c), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.BookingResponse{Booking: toBooking(*updated)})
}

func (h *BookingHandler) cancel(c *gin.Context) {
	cancelled, err := h.service.CancelBooking(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.BookingResponse{Booking: toBooking(*cancelled)})
}
