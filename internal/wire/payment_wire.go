package wire

import (
	"github.com/go-chi/chi/v5"

	"travel-booking/internal/adaptor"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler) {
	r.Route("/api/payments", func(r chi.Router) {
		// POST /api/payments - Start a payment attempt for a pending booking
		r.Post("/", paymentHandler.CreatePayment)

		// GET /api/payments/{id} - Payment attempt details
		r.Get("/{id}", paymentHandler.GetPayment)
	})
}
