package router

import (
	"net/http"
)

type rootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func (r *Router) GetRoot(res http.ResponseWriter, req *http.Request) {
	writeJSON(res, http.StatusOK, rootResponse{
		Message: r.appName + " API",
		Version: r.version,
		Status:  "running",
	})
}

func (r *Router) GetHealth(res http.ResponseWriter, req *http.Request) {
	writeJSON(res, http.StatusOK, healthResponse{Status: "healthy"})
}

// GetAPIHealth additionally checks storage connectivity.
func (r *Router) GetAPIHealth(res http.ResponseWriter, req *http.Request) {
	if err := r.service.Ping(req.Context()); err != nil {
		writeJSON(res, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy"})
		return
	}

	writeJSON(res, http.StatusOK, healthResponse{Status: "healthy"})
}
