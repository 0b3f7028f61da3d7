package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/finassist/internal/api/middleware"
)

// Router groups the handlers served by the API.
type Router struct {
	Operations *OperationsHandler
	Records    *RecordsHandler
	Categories *CategoriesHandler
	Jobs       *JobsHandler
	// Users is optional; without it the context route is not registered.
	Users *UsersHandler
}

// Mux registers every route on a new ServeMux.
func (rt Router) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/operations", post(rt.Operations.Dispatch))
	mux.HandleFunc("/api/validate", post(rt.Records.Validate))
	mux.HandleFunc("/api/categorize", post(rt.Records.Categorize))
	mux.HandleFunc("/api/categories", get(rt.Categories.ListCategories))
	mux.HandleFunc("/api/jobs", get(rt.Jobs.ListJobs))

	mux.HandleFunc("/api/jobs/", get(func(w http.ResponseWriter, r *http.Request) {
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" || strings.Contains(jobID, "/") {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		rt.Jobs.GetJob(w, r, jobID)
	}))

	if rt.Users != nil {
		mux.HandleFunc("/api/users/", get(func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
			userID, ok := strings.CutSuffix(rest, "/context")
			if !ok || userID == "" || strings.Contains(userID, "/") {
				middleware.WriteError(w, http.StatusNotFound, "Not found")
				return
			}
			rt.Users.GetContext(w, r, userID)
		}))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return mux
}

func get(h http.HandlerFunc) http.HandlerFunc {
	return only(http.MethodGet, h)
}

func post(h http.HandlerFunc) http.HandlerFunc {
	return only(http.MethodPost, h)
}

func only(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}
