package api

import "net/http"

func (s *HTTPServer) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.callerID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	item, err := req.toItem()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Items.CreateItem(r.Context(), ownerID, item); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *HTTPServer) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.callerID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	item, err := s.svc.Items.UpdateItem(r.Context(), ownerID, itemID, req.toPatch())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *HTTPServer) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.callerID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Items.DeleteItem(r.Context(), ownerID, itemID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleGetItem(w http.ResponseWriter, r *http.Request) {
	if _, err := s.callerID(r); err != nil {
		s.fail(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.svc.Items.GetItemView(r.Context(), itemID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleOwnerItems(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.callerID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	views, err := s.svc.Items.GetOwnerItems(r.Context(), ownerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *HTTPServer) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Items.SearchItems(r.Context(), r.URL.Query().Get("text"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleAddComment(w http.ResponseWriter, r *http.Request) {
	authorID, err := s.callerID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	text, err := requireText("text", req.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	comment, err := s.svc.Items.AddComment(r.Context(), itemID, authorID, text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}
