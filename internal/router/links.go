package router

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mvolkov/biotap/internal/auth"
	"github.com/mvolkov/biotap/internal/ipchecker"
	"github.com/mvolkov/biotap/internal/models"
)

// PostLink creates a link owned by the authenticated user.
func (r *Router) PostLink(res http.ResponseWriter, req *http.Request) {
	usr, ok := auth.UserFromContext(req.Context())
	if !ok {
		http.Error(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	request := &models.LinkCreateRequest{}
	if err := r.decodeAndValidate(req, request); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	lnk, err := r.service.CreateLink(req.Context(), usr.ID, request)
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusCreated, lnk)
}

// GetLinks lists the authenticated user's links with skip/limit paging.
func (r *Router) GetLinks(res http.ResponseWriter, req *http.Request) {
	usr, ok := auth.UserFromContext(req.Context())
	if !ok {
		http.Error(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	skip, err := queryInt(req, "skip", 0)
	if err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := queryInt(req, "limit", 0)
	if err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	links, err := r.service.GetUserLinks(req.Context(), usr.ID, skip, limit)
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, links)
}

func (r *Router) GetLink(res http.ResponseWriter, req *http.Request) {
	usr, ok := auth.UserFromContext(req.Context())
	if !ok {
		http.Error(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	lnk, err := r.service.GetLink(req.Context(), usr.ID, chi.URLParam(req, "linkID"))
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, lnk)
}

func (r *Router) PatchLink(res http.ResponseWriter, req *http.Request) {
	usr, ok := auth.UserFromContext(req.Context())
	if !ok {
		http.Error(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	request := &models.LinkUpdateRequest{}
	if err := r.decodeAndValidate(req, request); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	lnk, err := r.service.UpdateLink(req.Context(), usr.ID, chi.URLParam(req, "linkID"), request)
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, lnk)
}

func (r *Router) DeleteLink(res http.ResponseWriter, req *http.Request) {
	usr, ok := auth.UserFromContext(req.Context())
	if !ok {
		http.Error(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.service.DeleteLink(req.Context(), usr.ID, chi.URLParam(req, "linkID")); err != nil {
		writeError(res, err)
		return
	}

	res.WriteHeader(http.StatusNoContent)
}

// GetPublicProfile returns the active links of an active user in
// display order.
func (r *Router) GetPublicProfile(res http.ResponseWriter, req *http.Request) {
	_, links, err := r.service.GetPublicProfile(req.Context(), chi.URLParam(req, "username"))
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, links)
}

// GetRedirect records the click and redirects the visitor to the
// target URL.
func (r *Router) GetRedirect(res http.ResponseWriter, req *http.Request) {
	job := &models.ClickJob{
		IPAddress: ipchecker.ClientIPString(req),
		UserAgent: req.UserAgent(),
		Referer:   req.Referer(),
	}

	targetURL, err := r.service.ResolveClick(req.Context(), chi.URLParam(req, "linkID"), job)
	if err != nil {
		writeError(res, err)
		return
	}

	http.Redirect(res, req, targetURL, http.StatusFound)
}

type clickResponse struct {
	Message    string `json:"message"`
	ClickCount int64  `json:"click_count"`
}

// PostClick bumps the click counter without redirecting, for frontends
// that open the target themselves.
func (r *Router) PostClick(res http.ResponseWriter, req *http.Request) {
	lnk, err := r.service.RegisterClick(req.Context(), chi.URLParam(req, "linkID"))
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, clickResponse{
		Message:    "Click tracked",
		ClickCount: lnk.ClickCount,
	})
}

func queryInt(req *http.Request, name string, defaultValue int) (int, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}

	return strconv.Atoi(raw)
}
