// Package api exposes the generator, the history and the theme preference
// over HTTP for a browser front end.
package api

import (
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"filippo.io/csrf"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/wolfeidau/kingfisher/internal/app"
	"github.com/wolfeidau/kingfisher/internal/generator"
	"github.com/wolfeidau/kingfisher/internal/history"
	"github.com/wolfeidau/kingfisher/internal/logger"
	"github.com/wolfeidau/kingfisher/internal/prefs"
	"github.com/wolfeidau/kingfisher/internal/qr"
)

const maxBodyBytes = 64 * 1024

//go:embed index.html.tmpl
var indexTemplate string

// Options configures the HTTP handler.
type Options struct {
	// CORSOrigins are the origins allowed to call /api routes.
	CORSOrigins []string
	Logger      zerolog.Logger
	// Now is used to render entry ages. Default: time.Now
	Now func() time.Time
}

type server struct {
	app   *app.Controller
	now   func() time.Time
	index *template.Template
}

// NewHandler returns the HTTP handler. API routes are served with CORS,
// every other route with cross-origin request protection.
func NewHandler(c *app.Controller, opts Options) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &server{app: c, now: opts.Now}
	s.index = template.Must(template.New("index").Funcs(template.FuncMap{
		"preview": history.Preview,
		"age": func(t time.Time) string {
			return history.FormatAge(t, s.now())
		},
	}).Parse(indexTemplate))

	r := chi.NewRouter()

	r.Get("/healthz", s.healthz)
	r.Get("/", s.home)
	r.Post("/history/clear", s.clearHistoryForm)
	r.Post("/theme/toggle", s.toggleThemeForm)

	r.Route("/api", func(r chi.Router) {
		r.Use(requireJSON)

		r.Post("/qr", s.generate)
		r.Get("/history", s.listHistory)
		r.Delete("/history", s.clearHistory)
		r.Post("/history/{index}/replay", s.replay)
		r.Get("/theme", s.getTheme)
		r.Put("/theme", s.putTheme)
		r.Post("/theme/toggle", s.toggleTheme)
	})

	protection := csrf.New()
	withCORS := cors.New(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"X-QR-Size", "X-QR-Level", "X-QR-Characters"},
	})

	apiHandler := withCORS.Handler(r)
	pageHandler := protection.Handler(r)

	handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if isAPIRoute(req.URL.Path) {
			apiHandler.ServeHTTP(w, req)
			return
		}
		pageHandler.ServeHTTP(w, req)
	})

	return logger.HTTPRequests(opts.Logger)(clientIPMiddleware(handler))
}

func isAPIRoute(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// requireJSON rejects POST and PUT requests that are not declared as JSON,
// bodyless ones included. A cross-origin page can only send such a request
// after a CORS preflight, so the allowed origins gate every mutation.
func requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type generateRequest struct {
	Text  string `json:"text"`
	Size  int    `json:"size"`
	Level string `json:"level"`
}

type themeBody struct {
	Theme string `json:"theme"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	level, err := qr.ParseLevel(req.Level)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.app.Generator.Generate(r.Context(), generator.Request{Text: req.Text, Size: req.Size, Level: level})
	if err != nil {
		s.generateFailed(w, r, err)
		return
	}

	writePNG(w, res)
}

func (s *server) replay(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid history index")
		return
	}

	size := 0
	if v := r.URL.Query().Get("size"); v != "" {
		size, err = strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid size")
			return
		}
	}

	level, err := qr.ParseLevel(r.URL.Query().Get("level"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.app.Generator.Replay(r.Context(), index, size, level)
	if err != nil {
		s.generateFailed(w, r, err)
		return
	}

	writePNG(w, res)
}

func (s *server) generateFailed(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, generator.ErrEmptyText):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, history.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("failed to generate qr code")
		writeError(w, http.StatusInternalServerError, "failed to generate qr code")
	}
}

func (s *server) listHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.History.List())
}

func (s *server) clearHistory(w http.ResponseWriter, r *http.Request) {
	s.app.History.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) getTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, themeBody{Theme: string(s.app.Prefs.Theme())})
}

func (s *server) putTheme(w http.ResponseWriter, r *http.Request) {
	var body themeBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	theme, err := prefs.ParseTheme(body.Theme)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.app.SetTheme(r.Context(), theme)
	writeJSON(w, http.StatusOK, themeBody{Theme: string(theme)})
}

func (s *server) toggleTheme(w http.ResponseWriter, r *http.Request) {
	theme := s.app.ToggleTheme(r.Context())
	writeJSON(w, http.StatusOK, themeBody{Theme: string(theme)})
}

func (s *server) home(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Theme   prefs.Theme
		Entries []history.Entry
	}{
		Theme:   s.app.Prefs.Theme(),
		Entries: s.app.History.List(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.Execute(w, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to render index")
	}
}

func (s *server) clearHistoryForm(w http.ResponseWriter, r *http.Request) {
	s.app.History.Clear(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) toggleThemeForm(w http.ResponseWriter, r *http.Request) {
	s.app.ToggleTheme(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func writePNG(w http.ResponseWriter, res *generator.Result) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-QR-Size", strconv.Itoa(res.Image.Size))
	w.Header().Set("X-QR-Level", string(res.Image.Level))
	w.Header().Set("X-QR-Characters", strconv.Itoa(res.Characters))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Image.PNG)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
