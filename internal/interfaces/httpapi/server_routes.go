package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET "+openAPIPath, handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

// Literal segments take precedence over {source} in ServeMux matching.
func registerContestRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/contests", handler.ListContests)
	mux.HandleFunc("GET /v1/contests/debug", handler.GetContestFetchStats)
	mux.HandleFunc("GET /v1/contests/sources", handler.ListContestSources)
	mux.HandleFunc("GET /v1/contests/{source}", handler.ListContestsBySource)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/warm-contests", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunWarmContestsJob)))
}
