package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/eurent/internal/booking/domain"
	"github.com/example/eurent/internal/booking/service"
)

// HTTP exposes the rental API. Booking mutations take their parameters as
// query strings and answer with a message payload plus 200 (success or
// informational) or 400 (rejected input), matching the documented surface.
type HTTP struct {
	svc       *service.Service
	fleet     domain.FleetCatalog
	customers domain.CustomerDirectory
}

// NewHTTP constructs a handler.
func NewHTTP(svc *service.Service, fleet domain.FleetCatalog, customers domain.CustomerDirectory) *HTTP {
	return &HTTP{svc: svc, fleet: fleet, customers: customers}
}

// Router builds the chi router with all endpoints and middlewares.
func (h *HTTP) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Get("/", h.root)
	r.Get("/cars", h.listCars)
	r.Post("/cars", h.addCar)
	r.Get("/cars/{model}", h.carsByModel)
	r.Get("/customers", h.listCustomers)
	r.Post("/customers", h.addCustomer)
	r.Get("/customers/{name}", h.customersByName)
	r.Get("/booking", h.listBookings)
	r.Post("/booking", h.createBooking)
	r.Patch("/booking", h.updateBooking)
	r.Get("/booking/searchbyid/{id}", h.bookingByID)
	r.Get("/booking/searchbycustomer/{name}", h.bookingsByCustomer)
	return r
}

func (h *HTTP) root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<h1>Welcome to EURent</h1>" +
		"<p>EURent rents cars to its customers across fleet locations all " +
		"over the country, where cars can be picked up and dropped off.</p>"))
}

func (h *HTTP) listCars(w http.ResponseWriter, r *http.Request) {
	cars, err := h.fleet.List(r.Context())
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

func (h *HTTP) addCar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	model := q.Get("model")
	if model == "" {
		writeMessage(w, http.StatusBadRequest, "Car model cannot be blank")
		return
	}
	category := q.Get("type")
	if !domain.ValidCategory(category) {
		writeMessage(w, http.StatusBadRequest, "Incorrect car type. Must belong to "+categoryList())
		return
	}
	fee, err := strconv.Atoi(q.Get("fee"))
	if err != nil || fee < 0 {
		writeMessage(w, http.StatusBadRequest, "Fee must be a positive int value")
		return
	}
	v := domain.Vehicle{Model: model, Plate: q.Get("license_plate"), Category: category, DailyFee: fee}
	if err := h.fleet.Add(r.Context(), v); err != nil {
		if errors.Is(err, domain.ErrDuplicateVehicle) {
			writeMessage(w, http.StatusBadRequest, "This car already exists")
			return
		}
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeMessage(w, http.StatusOK, "Added Car Successfully")
}

func (h *HTTP) carsByModel(w http.ResponseWriter, r *http.Request) {
	cars, err := h.fleet.ListByModel(r.Context(), chi.URLParam(r, "model"))
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

func (h *HTTP) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customers.List(r.Context())
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (h *HTTP) addCustomer(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if _, err := h.customers.Add(r.Context(), q.Get("name"), q.Get("mobile")); err != nil {
		if errors.Is(err, domain.ErrDuplicateCustomer) {
			writeMessage(w, http.StatusBadRequest, "Customer already exists")
			return
		}
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeMessage(w, http.StatusOK, "Added Customer Successfully")
}

func (h *HTTP) customersByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	customer, found, err := h.customers.FindByName(r.Context(), name)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, []domain.Customer{})
		return
	}
	writeJSON(w, http.StatusOK, []domain.Customer{customer})
}

func (h *HTTP) listBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.svc.ListBookings(r.Context())
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *HTTP) createBooking(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.svc.CreateBooking(r.Context(), r.Header.Get("Idempotency-Key"), service.CreateBookingRequest{
		Category:     q.Get("car"),
		StartDate:    q.Get("start_date"),
		EndDate:      q.Get("end_date"),
		CustomerName: q.Get("customer"),
	})
	if err != nil {
		h.writeCreateError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("Booking %d Added Successfully", resp.BookingID))
}

func (h *HTTP) writeCreateError(w http.ResponseWriter, err error) {
	var noVehicle *domain.NoVehicleAvailableError
	switch {
	case errors.Is(err, domain.ErrInvalidDateFormat):
		writeMessage(w, http.StatusBadRequest, "Invalid Dates Provided, please use dd-mm-yyyy")
	case errors.Is(err, domain.ErrInvalidDateRange):
		writeMessage(w, http.StatusBadRequest, "Invalid date range provided")
	case isInvalidCategory(err):
		writeMessage(w, http.StatusBadRequest, "Invalid car type, please enter one from "+categoryList())
	case errors.As(err, &noVehicle):
		// Informational: the booking attempt simply fails.
		writeMessage(w, http.StatusOK, fmt.Sprintf("No %s cars available for this date range", noVehicle.Category))
	case errors.Is(err, domain.ErrCustomerNotFound):
		writeMessage(w, http.StatusBadRequest, "Customer not found")
	default:
		writeMessage(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *HTTP) updateBooking(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	requestType := q.Get("request")
	if requestType != "pick_up" && requestType != "drop_off" {
		writeMessage(w, http.StatusBadRequest, "Invalid request type")
		return
	}
	id, err := strconv.ParseInt(q.Get("id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid booking id")
		return
	}

	if requestType == "pick_up" {
		h.pickup(w, r, id)
		return
	}
	h.dropoff(w, r, id)
}

func (h *HTTP) pickup(w http.ResponseWriter, r *http.Request, id int64) {
	_, err := h.svc.Pickup(r.Context(), id)
	var tooEarly *domain.PickupTooEarlyError
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, fmt.Sprintf("Booking %d successfully registered for pick up", id))
	case errors.Is(err, domain.ErrBookingNotFound):
		writeMessage(w, http.StatusOK, fmt.Sprintf("Booking %d not found", id))
	case errors.Is(err, domain.ErrAlreadyCompleted):
		writeMessage(w, http.StatusBadRequest, "Booking has already been completed")
	case errors.As(err, &tooEarly):
		writeMessage(w, http.StatusBadRequest, "Booking has not yet started, you can pickup on or after "+tooEarly.Start.String())
	case errors.Is(err, domain.ErrAlreadyPickedUp):
		writeMessage(w, http.StatusBadRequest, "Booking has already been picked up/completed")
	default:
		writeMessage(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *HTTP) dropoff(w http.ResponseWriter, r *http.Request, id int64) {
	_, err := h.svc.Dropoff(r.Context(), id)
	var pastDue *domain.DropoffPastDueError
	var premature *domain.DropoffPrematureError
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, fmt.Sprintf("Booking %d successfully registered for drop off", id))
	case errors.Is(err, domain.ErrBookingNotFound):
		writeMessage(w, http.StatusOK, fmt.Sprintf("Booking %d not found", id))
	case errors.Is(err, domain.ErrNotPickedUp):
		writeMessage(w, http.StatusBadRequest, "Booking has not yet been picked up or completed")
	case errors.As(err, &pastDue):
		writeMessage(w, http.StatusBadRequest, "Drop off date passed, you had to drop off on or before "+pastDue.End.String())
	case errors.As(err, &premature):
		writeMessage(w, http.StatusBadRequest, "Drop off date cannot be before start date")
	default:
		writeMessage(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *HTTP) bookingByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid booking id")
		return
	}
	booking, err := h.svc.GetBooking(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			writeMessage(w, http.StatusOK, "No booking found for this id")
			return
		}
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *HTTP) bookingsByCustomer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	bookings, err := h.svc.BookingsByCustomer(r.Context(), name)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(bookings) == 0 {
		writeMessage(w, http.StatusOK, "No bookings found for customer "+name)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func isInvalidCategory(err error) bool {
	var invalid *domain.InvalidCategoryError
	return errors.As(err, &invalid)
}

func categoryList() string {
	quoted := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		quoted[i] = "'" + c + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
