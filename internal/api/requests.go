package api

import "net/http"

func (s *HTTPServer) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	requesterID, err := s.callerID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	description, err := requireText("description", req.Description)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	request, err := s.svc.Requests.CreateRequest(r.Context(), requesterID, description)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

func (s *HTTPServer) handleOwnRequests(w http.ResponseWriter, r *http.Request) {
	requesterID, err := s.callerID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	views, err := s.svc.Requests.GetOwnRequests(r.Context(), requesterID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *HTTPServer) handleOtherRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := s.callerID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	views, err := s.svc.Requests.GetOtherRequests(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *HTTPServer) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := s.callerID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	requestID, err := pathID(r, "requestId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.svc.Requests.GetRequest(r.Context(), userID, requestID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
