package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/next-trace/scg-product-service/internal/httpapi/openapi"
	"github.com/next-trace/scg-product-service/internal/logging"
	"github.com/next-trace/scg-product-service/product"
)

const maxBodyBytes = 1 << 20

// App holds the HTTP handlers' dependencies.
type App struct {
	Service *product.Service
	// Stream, when set, serves GET /products/stream.
	Stream http.Handler

	logger  *zerolog.Logger
	closing atomic.Bool
	started time.Time
}

// NewApp returns an App serving svc. A nil logger discards logs.
func NewApp(svc *product.Service, logger *zerolog.Logger) *App {
	if logger == nil {
		logger = logging.Nop()
	}

	return &App{Service: svc, logger: logger, started: time.Now()}
}

// StartShutdown makes writes and health checks answer 503 while in-flight requests drain.
func (a *App) StartShutdown() { a.closing.Store(true) }

func (a *App) log(r *http.Request) *zerolog.Logger {
	return logging.FromContext(r.Context(), a.logger)
}

// rejectWrite answers 503 during shutdown.
func (a *App) rejectWrite(w http.ResponseWriter) bool {
	if a.closing.Load() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return true
	}

	return false
}

// pathID returns the canonical product id from the path, answering 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := product.ParseID(r.PathValue("id"))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return "", false
	}

	return id, true
}

// decodeProduct reads a JSON product body, answering 415 or 400 on failure.
func decodeProduct(w http.ResponseWriter, r *http.Request) (product.Product, bool) {
	var p product.Product

	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return p, false
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&p); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			WriteJSONError(w, http.StatusRequestEntityTooLarge, "body_too_large", "")
			return p, false
		}

		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())

		return p, false
	}

	return p, true
}

func (a *App) createHandler(w http.ResponseWriter, r *http.Request) {
	if a.rejectWrite(w) {
		return
	}

	p, ok := decodeProduct(w, r)
	if !ok {
		return
	}

	created, err := a.Service.Create(r.Context(), p)
	if err != nil {
		writeServiceError(w, a.log(r), err)
		return
	}

	a.log(r).Debug().Str("product_id", created.ID).Msg("product created")
	writeJSON(w, http.StatusOK, created)
}

func (a *App) updateHandler(w http.ResponseWriter, r *http.Request) {
	if a.rejectWrite(w) {
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, ok := decodeProduct(w, r)
	if !ok {
		return
	}

	updated, err := a.Service.Update(r.Context(), id, p)
	if err != nil {
		writeServiceError(w, a.log(r), err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (a *App) deleteHandler(w http.ResponseWriter, r *http.Request) {
	if a.rejectWrite(w) {
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := a.Service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, a.log(r), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *App) getHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, found := a.Service.Get(id)
	if !found {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (a *App) listHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.Service.List())
}

func (a *App) healthHandler(w http.ResponseWriter, _ *http.Request) {
	if a.closing.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"uptime_sec": time.Since(a.started).Seconds(),
	})
}

func (a *App) openapiYAMLHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openapi.YAML)
}

func (a *App) openapiJSONHandler(w http.ResponseWriter, r *http.Request) {
	b, err := openapi.JSON()
	if err != nil {
		a.log(r).Error().Err(err).Msg("openapi conversion failed")
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")

		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

const docsHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Product Service API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.json',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`

func (a *App) docsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(docsHTML))
}
