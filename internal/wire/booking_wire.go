package wire

import (
	"github.com/go-chi/chi/v5"

	"travel-booking/internal/adaptor"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler) {
	r.Route("/api/bookings", func(r chi.Router) {
		// POST /api/bookings - Create a new booking with a collision-checked reference
		r.Post("/", bookingHandler.CreateBooking)

		// GET /api/bookings?owner_id=... - List bookings for an owner, paginated
		r.Get("/", bookingHandler.GetOwnerBookings)

		// GET /api/bookings/{id} - Booking details
		r.Get("/{id}", bookingHandler.GetBooking)

		// GET /api/bookings/reference/{reference} - Lookup by human-facing reference
		r.Get("/reference/{reference}", bookingHandler.GetBookingByReference)

		// POST /api/bookings/{id}/cancel - Proactive cancel while still pending
		r.Post("/{id}/cancel", bookingHandler.CancelBooking)
	})
}
