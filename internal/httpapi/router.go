package httpapi

import "net/http"

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /products", app.createHandler)
	mux.HandleFunc("GET /products", app.listHandler)
	mux.HandleFunc("GET /products/{id}", app.getHandler)
	mux.HandleFunc("PUT /products/{id}", app.updateHandler)
	mux.HandleFunc("DELETE /products/{id}", app.deleteHandler)

	if app.Stream != nil {
		mux.Handle("GET /products/stream", app.Stream)
	}

	mux.HandleFunc("GET /healthz", app.healthHandler)
	mux.HandleFunc("GET /openapi.yaml", app.openapiYAMLHandler)
	mux.HandleFunc("GET /openapi.json", app.openapiJSONHandler)
	mux.HandleFunc("GET /docs", app.docsHandler)

	return Chain(WithRequestID, WithLogging(app.logger), WithRecovery(app.logger))(mux)
}
