package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/config"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/elasticsearch"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/reportfs"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/store"
)

type articleSearcher interface {
	Health(ctx context.Context) error
	SearchArticles(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
}

type reportStore interface {
	List() ([]reportfs.Entry, error)
	Load(date string) (models.Report, error)
	SetChecked(date, id string, checked bool) error
}

type deepDiveStore interface {
	List() ([]reportfs.DeepDive, error)
	Read(month, filename string) (string, error)
}

type favoriteStore interface {
	Ping(ctx context.Context) error
	Favorites(ctx context.Context) ([]store.Favorite, error)
	AddFavorite(ctx context.Context, f store.Favorite) (bool, error)
	RemoveFavorite(ctx context.Context, articleID string) error
}

type server struct {
	log       *slog.Logger
	cfg       *config.API
	search    articleSearcher
	reports   reportStore
	deepDives deepDiveStore
	favorites favoriteStore
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type checkedRequest struct {
	Checked *bool `json:"checked"`
}

type checkedResponse struct {
	Success   bool   `json:"success"`
	ArticleID string `json:"articleId"`
	Checked   bool   `json:"checked"`
}

type deepDiveResponse struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type favoriteRequest struct {
	ArticleID string `json:"articleId"`
	Date      string `json:"date"`
	Title     string `json:"title"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/headlines", s.handleListHeadlines)
		r.Get("/headlines/{date}", s.handleGetHeadlines)
		r.Patch("/headlines/{date}/articles/{id}", s.handleSetChecked)

		r.Get("/articles/search", s.handleSearch)

		r.Get("/deepdives", s.handleListDeepDives)
		r.Get("/deepdives/{month}/{filename}", s.handleGetDeepDive)

		r.Get("/favorites", s.handleListFavorites)
		r.Post("/favorites", s.handleAddFavorite)
		r.Delete("/favorites/{articleId}", s.handleRemoveFavorite)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.favorites.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	if err := s.search.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleListHeadlines(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.reports.List()
	if err != nil {
		s.log.Error("list headlines", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list headlines"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": entries})
}

func (s *server) handleGetHeadlines(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	rep, err := s.reports.Load(date)
	if err != nil {
		s.writeStoreError(w, "load headlines", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *server) handleSetChecked(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	id := chi.URLParam(r, "id")

	var req checkedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Checked == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "checked must be a boolean"})
		return
	}

	if err := s.reports.SetChecked(date, id, *req.Checked); err != nil {
		s.writeStoreError(w, "set checked", err)
		return
	}
	s.log.Info("article checked", slog.String("date", date), slog.String("id", id), slog.Bool("checked", *req.Checked))
	writeJSON(w, http.StatusOK, checkedResponse{Success: true, ArticleID: id, Checked: *req.Checked})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	params := elasticsearch.SearchParams{
		Query:    strings.TrimSpace(q.Get("q")),
		Keywords: parseCSV(q.Get("keywords")),
		Source:   strings.TrimSpace(q.Get("source")),
		Rank:     strings.ToUpper(strings.TrimSpace(q.Get("rank"))),
		From:     clampInt(q.Get("from"), 0, 10_000),
		Size:     clampInt(q.Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Sort:     strings.TrimSpace(q.Get("sort")),
		Start:    parseTime(q.Get("start")),
		End:      parseTime(q.Get("end")),
	}
	if params.Rank != "" && !models.Rank(params.Rank).Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "rank must be one of S, A, B, C"})
		return
	}

	result, err := s.search.SearchArticles(ctx, params)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleListDeepDives(w http.ResponseWriter, _ *http.Request) {
	files, err := s.deepDives.List()
	if err != nil {
		s.log.Error("list deep dives", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list deep dives"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *server) handleGetDeepDive(w http.ResponseWriter, r *http.Request) {
	month, err1 := url.PathUnescape(chi.URLParam(r, "month"))
	filename, err2 := url.PathUnescape(chi.URLParam(r, "filename"))
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid deep dive path"})
		return
	}

	content, err := s.deepDives.Read(month, filename)
	if err != nil {
		s.writeStoreError(w, "read deep dive", err)
		return
	}
	writeJSON(w, http.StatusOK, deepDiveResponse{Filename: filename, Content: content})
}

func (s *server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := s.favorites.Favorites(r.Context())
	if err != nil {
		s.log.Error("list favorites", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list favorites"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": favs})
}

func (s *server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	req.ArticleID = strings.TrimSpace(req.ArticleID)
	req.Title = strings.TrimSpace(req.Title)
	if req.ArticleID == "" || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "articleId and title are required"})
		return
	}

	added, err := s.favorites.AddFavorite(r.Context(), store.Favorite{
		ArticleID: req.ArticleID,
		Date:      req.Date,
		Title:     req.Title,
	})
	if err != nil {
		s.log.Error("add favorite", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to add favorite"})
		return
	}
	if !added {
		writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "already a favorite"})
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	articleID, err := url.PathUnescape(chi.URLParam(r, "articleId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid article id"})
		return
	}

	if err := s.favorites.RemoveFavorite(r.Context(), articleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "favorite not found"})
			return
		}
		s.log.Error("remove favorite", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to remove favorite"})
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *server) writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, reportfs.ErrInvalidDate), errors.Is(err, reportfs.ErrInvalidPath):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, reportfs.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		s.log.Error(op, slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to " + op})
	}
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	if ts, err := time.Parse(time.DateOnly, raw); err == nil {
		return &ts
	}
	return nil
}

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
