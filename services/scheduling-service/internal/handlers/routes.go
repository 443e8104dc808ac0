package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
)

type Routes struct {
	Availability *AvailabilityHandler
	Slots        *SlotsHandler
	Appointments *AppointmentHandler
	// BookLimit wraps the public booking endpoint, usually with a rate limiter.
	BookLimit httpx.Middleware
}

func (rt Routes) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/availability", rt.Availability.Get)
	mux.HandleFunc("POST /api/v1/availability", rt.Availability.Upsert)
	mux.HandleFunc("PATCH /api/v1/availability", rt.Availability.Patch)

	mux.HandleFunc("GET /api/v1/slots", rt.Slots.List)

	var book http.Handler = http.HandlerFunc(rt.Appointments.Create)
	if rt.BookLimit != nil {
		book = rt.BookLimit(book)
	}
	mux.Handle("POST /api/v1/appointments", book)
	mux.HandleFunc("GET /api/v1/appointments", rt.Appointments.List)
	mux.HandleFunc("GET /api/v1/appointments/{id}", rt.Appointments.Get)
	mux.HandleFunc("PUT /api/v1/appointments/{id}", rt.Appointments.Update)
	mux.HandleFunc("DELETE /api/v1/appointments/{id}", rt.Appointments.Delete)
}
