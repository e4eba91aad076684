package api

import (
	"fmt"
	"net/http"
	"strconv"

	"shareit/internal/domain"
)

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	bookerID, err := s.callerID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req bookingRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := req.validate(s.now()); err != nil {
		s.fail(w, r, err)
		return
	}
	booking, err := s.svc.Bookings.CreateBooking(r.Context(), bookerID, req.ItemID, req.Start.Time, req.End.Time)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleApproveBooking(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.callerID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	bookingID, err := pathID(r, "bookingId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	approved, err := strconv.ParseBool(r.URL.Query().Get("approved"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: approved must be true or false", domain.ErrValidation))
		return
	}
	booking, err := s.svc.Bookings.ApproveBooking(r.Context(), ownerID, bookingID, approved)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	callerID, err := s.callerID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	bookingID, err := pathID(r, "bookingId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	booking, err := s.svc.Bookings.GetBooking(r.Context(), callerID, bookingID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleBookerBookings(w http.ResponseWriter, r *http.Request) {
	bookerID, err := s.callerID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	bookings, err := s.svc.Bookings.ListByBooker(r.Context(), bookerID, r.URL.Query().Get("state"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (s *HTTPServer) handleOwnerBookings(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.callerID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	bookings, err := s.svc.Bookings.ListByOwner(r.Context(), ownerID, r.URL.Query().Get("state"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}
