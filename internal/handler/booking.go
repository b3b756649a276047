package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"cab/internal/domain"
	"cab/internal/middleware"
	"cab/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	bookingService *service.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	BookingID      string  `json:"booking_id,omitempty"`
	CarID          string  `json:"car_id"`
	PickupLocation string  `json:"pickup_location"`
	Destination    string  `json:"destination"`
	PickupDate     string  `json:"pickup_date"` // YYYY-MM-DD
	PickupTime     string  `json:"pickup_time"` // HH:MM
	Distance       float64 `json:"distance"`
	DriverRequired bool    `json:"driver_required"`
}

// CancelBookingRequest is the HTTP request body for cancelling a booking.
type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

// BookingResponse is the HTTP representation of a booking.
type BookingResponse struct {
	ID                      string  `json:"id"`
	CustomerID              string  `json:"customer_id"`
	CarID                   string  `json:"car_id"`
	DriverID                string  `json:"driver_id,omitempty"`
	PickupLocation          string  `json:"pickup_location"`
	Destination             string  `json:"destination"`
	PickupDate              string  `json:"pickup_date"`
	PickupTime              string  `json:"pickup_time"`
	BookingDate             string  `json:"booking_date"`
	Distance                float64 `json:"distance"`
	DistanceFare            float64 `json:"distance_fare"`
	Tax                     float64 `json:"tax"`
	DriverFee               float64 `json:"driver_fee"`
	TotalAmount             float64 `json:"total_amount"`
	RefundAmount            float64 `json:"refund_amount"`
	DriverRequired          bool    `json:"driver_required"`
	DriverAssignmentMessage string  `json:"driver_assignment_message,omitempty"`
	Status                  string  `json:"status"`
	CancellationReason      string  `json:"cancellation_reason,omitempty"`
	CancelledAt             string  `json:"cancelled_at,omitempty"`
}

// CarResponse is the HTTP representation of a car.
type CarResponse struct {
	ID               string  `json:"id"`
	Brand            string  `json:"brand"`
	Model            string  `json:"model"`
	LicensePlate     string  `json:"license_plate"`
	Capacity         int     `json:"capacity"`
	BaseRate         float64 `json:"base_rate"`
	DriverRate       float64 `json:"driver_rate"`
	AssignedDriverID string  `json:"assigned_driver_id,omitempty"`
	Available        bool    `json:"available"`
}

// DriverVisibilityResponse tells whether a customer may see a driver's details.
type DriverVisibilityResponse struct {
	DriverID   string `json:"driver_id"`
	HasBooking bool   `json:"has_booking"`
}

// CreateBooking handles POST /v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), service.CreateBookingRequest{
		BookingID:      req.BookingID,
		CustomerID:     middleware.CustomerID(c),
		CarID:          req.CarID,
		PickupLocation: req.PickupLocation,
		Destination:    req.Destination,
		PickupDate:     req.PickupDate,
		PickupTime:     req.PickupTime,
		Distance:       req.Distance,
		DriverRequired: req.DriverRequired,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(booking))
}

// GetBooking handles GET /v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.GetBookingDetails(c.Request.Context(), middleware.CustomerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// GetCustomerBookings handles GET /v1/customers/me/bookings
func (h *BookingHandler) GetCustomerBookings(c *gin.Context) {
	bookings, err := h.bookingService.GetCustomerBookings(c.Request.Context(), middleware.CustomerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponses(bookings))
}

// GetAll handles GET /v1/bookings
func (h *BookingHandler) GetAll(c *gin.Context) {
	bookings, err := h.bookingService.GetAllBookings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponses(bookings))
}

// GetAvailable handles GET /v1/bookings/available
func (h *BookingHandler) GetAvailable(c *gin.Context) {
	bookings, err := h.bookingService.GetAvailableBookings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponses(bookings))
}

// ConfirmBooking handles POST /v1/bookings/:id/confirm
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	booking, err := h.bookingService.ConfirmBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// CancelBooking handles POST /v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	booking, err := h.bookingService.CancelBooking(c.Request.Context(), middleware.CustomerID(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// DeleteBooking handles DELETE /v1/bookings/:id
func (h *BookingHandler) DeleteBooking(c *gin.Context) {
	if err := h.bookingService.DeleteBooking(c.Request.Context(), middleware.CustomerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DriverVisibility handles GET /v1/drivers/:id/visibility?email=
func (h *BookingHandler) DriverVisibility(c *gin.Context) {
	driverID := c.Param("id")
	hasBooking, err := h.bookingService.HasBookingWithDriver(c.Request.Context(), c.Query("email"), driverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, DriverVisibilityResponse{DriverID: driverID, HasBooking: hasBooking})
}

// ListCars handles GET /v1/cars?available=true
func (h *BookingHandler) ListCars(c *gin.Context) {
	available := true
	if raw := c.Query("available"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "available must be true or false"})
			return
		}
		available = parsed
	}

	cars, err := h.bookingService.ListCars(c.Request.Context(), available)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]CarResponse, 0, len(cars))
	for _, car := range cars {
		response = append(response, CarResponse{
			ID:               car.ID,
			Brand:            car.Brand,
			Model:            car.Model,
			LicensePlate:     car.LicensePlate,
			Capacity:         car.Capacity,
			BaseRate:         car.BaseRate,
			DriverRate:       car.DriverRate,
			AssignedDriverID: car.AssignedDriverID,
			Available:        car.Available,
		})
	}
	respondJSON(c, http.StatusOK, response)
}

func toBookingResponses(bookings []*domain.Booking) []BookingResponse {
	response := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		response = append(response, toBookingResponse(b))
	}
	return response
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	response := BookingResponse{
		ID:                      b.ID,
		CustomerID:              b.CustomerID,
		CarID:                   b.CarID,
		DriverID:                b.DriverID,
		PickupLocation:          b.PickupLocation,
		Destination:             b.Destination,
		PickupDate:              b.PickupDate,
		PickupTime:              b.PickupTime,
		BookingDate:             b.BookingDate.Format(time.RFC3339),
		Distance:                b.Distance,
		DistanceFare:            b.DistanceFare,
		Tax:                     b.Tax,
		DriverFee:               b.DriverFee,
		TotalAmount:             b.TotalAmount,
		RefundAmount:            b.RefundAmount,
		DriverRequired:          b.DriverRequired,
		DriverAssignmentMessage: b.DriverAssignmentMessage,
		Status:                  b.Status.String(),
		CancellationReason:      b.CancellationReason,
	}
	if !b.CancelledAt.IsZero() {
		response.CancelledAt = b.CancelledAt.Format(time.RFC3339)
	}
	return response
}
