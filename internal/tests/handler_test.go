package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"cab/internal/app"
	"cab/internal/domain"
	"cab/internal/handler"
	"cab/internal/middleware"
)

func newTestRouter(t *testing.T) (*testEnv, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := newTestEnv(t)
	router := app.NewRouter(app.RouterDeps{
		BookingHandler: handler.NewBookingHandler(env.service),
	})
	return env, router
}

func doRequest(router http.Handler, method, path, customerID string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if customerID != "" {
		req.Header.Set(middleware.CustomerIDHeader, customerID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createBody() handler.CreateBookingRequest {
	return handler.CreateBookingRequest{
		CarID:          testCarID,
		PickupLocation: "Colombo Fort",
		Destination:    "Bandaranaike Airport",
		PickupDate:     "2025-03-12",
		PickupTime:     "10:00",
		Distance:       10,
	}
}

func decodeBooking(t *testing.T, rec *httptest.ResponseRecorder) handler.BookingResponse {
	t.Helper()
	var resp handler.BookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHTTP_BookingLifecycle(t *testing.T) {
	env, router := newTestRouter(t)

	rec := doRequest(router, http.MethodPost, "/v1/bookings", testCustomerID, createBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBooking(t, rec)
	if created.TotalAmount != 1017.5 || created.Status != "PENDING" || created.CustomerID != testCustomerID {
		t.Errorf("unexpected booking %+v", created)
	}

	rec = doRequest(router, http.MethodPost, "/v1/bookings/"+created.ID+"/confirm", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodGet, "/v1/bookings/"+created.ID, testCustomerID, nil)
	if rec.Code != http.StatusOK || decodeBooking(t, rec).Status != "CONFIRMED" {
		t.Errorf("get: expected CONFIRMED booking, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodPost, "/v1/bookings/"+created.ID+"/cancel", testCustomerID, handler.CancelBookingRequest{Reason: "change of plan"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cancelled := decodeBooking(t, rec)
	if cancelled.RefundAmount != 1017.5 || cancelled.CancelledAt == "" {
		t.Errorf("unexpected cancelled booking %+v", cancelled)
	}
	if !env.store.GetCar(testCarID).Available {
		t.Error("expected car available after cancel")
	}

	rec = doRequest(router, http.MethodPost, "/v1/bookings/"+created.ID+"/cancel", testCustomerID, handler.CancelBookingRequest{Reason: "again"})
	if rec.Code != http.StatusConflict {
		t.Errorf("second cancel: expected 409, got %d", rec.Code)
	}
}

func TestHTTP_ErrorMapping(t *testing.T) {
	env, router := newTestRouter(t)
	env.addBooking("b-confirmed", testCarID, "2025-03-12", "10:00", domain.BookingStatusConfirmed)
	env.addBooking("b-pending", testCarID, "2025-03-20", "10:00", domain.BookingStatusPending)

	overlapping := createBody()
	overlapping.PickupTime = "10:30"
	badDate := createBody()
	badDate.PickupDate = "12-03-2025"
	unknownCar := createBody()
	unknownCar.CarID = "nope"

	testCases := []struct {
		name       string
		method     string
		path       string
		customerID string
		body       any
		wantCode   int
	}{
		{"missing customer header", http.MethodPost, "/v1/bookings", "", createBody(), http.StatusUnauthorized},
		{"malformed body", http.MethodPost, "/v1/bookings", testCustomerID, "not an object", http.StatusBadRequest},
		{"invalid date", http.MethodPost, "/v1/bookings", testCustomerID, badDate, http.StatusBadRequest},
		{"unknown car", http.MethodPost, "/v1/bookings", testCustomerID, unknownCar, http.StatusNotFound},
		{"overlapping slot", http.MethodPost, "/v1/bookings", testCustomerID, overlapping, http.StatusUnprocessableEntity},
		{"unknown booking", http.MethodGet, "/v1/bookings/missing", testCustomerID, nil, http.StatusNotFound},
		{"someone else's booking", http.MethodGet, "/v1/bookings/b-pending", otherCustomerID, nil, http.StatusForbidden},
		{"confirm twice", http.MethodPost, "/v1/bookings/b-confirmed/confirm", "", nil, http.StatusConflict},
		{"delete confirmed", http.MethodDelete, "/v1/bookings/b-confirmed", testCustomerID, nil, http.StatusConflict},
		{"empty reason", http.MethodPost, "/v1/bookings/b-pending/cancel", testCustomerID, handler.CancelBookingRequest{}, http.StatusBadRequest},
		{"bad availability filter", http.MethodGet, "/v1/cars?available=maybe", "", nil, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(router, tc.method, tc.path, tc.customerID, tc.body)
			if rec.Code != tc.wantCode {
				t.Errorf("expected %d, got %d: %s", tc.wantCode, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHTTP_DeletePendingBooking(t *testing.T) {
	env, router := newTestRouter(t)
	env.addBooking("b-pending", testCarID, "2025-03-20", "10:00", domain.BookingStatusPending)

	rec := doRequest(router, http.MethodDelete, "/v1/bookings/b-pending", testCustomerID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.store.GetBooking("b-pending") != nil {
		t.Error("expected booking to be deleted")
	}
}

func TestHTTP_Listings(t *testing.T) {
	env, router := newTestRouter(t)
	env.store.AddCar(&domain.Car{ID: "car-busy", Available: false})
	b := env.addBooking("b-1", testCarID, "2025-03-20", "10:00", domain.BookingStatusPending)
	b.DriverID = "drv-7"
	env.store.AddBooking(b)
	env.addBooking("b-2", testCarID, "2025-03-21", "10:00", domain.BookingStatusPending)

	var cars []handler.CarResponse
	rec := doRequest(router, http.MethodGet, "/v1/cars", "", nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &cars)
	if rec.Code != http.StatusOK || len(cars) != 1 || cars[0].ID != testCarID {
		t.Errorf("expected only the available car, got %d %+v", rec.Code, cars)
	}

	rec = doRequest(router, http.MethodGet, "/v1/cars?available=false", "", nil)
	cars = nil
	_ = json.Unmarshal(rec.Body.Bytes(), &cars)
	if len(cars) != 1 || cars[0].ID != "car-busy" {
		t.Errorf("expected only the busy car, got %+v", cars)
	}

	var bookings []handler.BookingResponse
	rec = doRequest(router, http.MethodGet, "/v1/bookings/available", "", nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &bookings)
	if len(bookings) != 1 || bookings[0].ID != "b-2" {
		t.Errorf("expected only b-2 to be open, got %+v", bookings)
	}

	bookings = nil
	rec = doRequest(router, http.MethodGet, "/v1/customers/me/bookings", testCustomerID, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &bookings)
	if len(bookings) != 2 {
		t.Errorf("expected 2 bookings for the customer, got %d", len(bookings))
	}

	var visibility handler.DriverVisibilityResponse
	rec = doRequest(router, http.MethodGet, "/v1/drivers/drv-7/visibility?email="+testCustomerEmail, "", nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &visibility)
	if rec.Code != http.StatusOK || !visibility.HasBooking {
		t.Errorf("expected driver to be visible, got %d %+v", rec.Code, visibility)
	}
}
