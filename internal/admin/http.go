package admin

import (
	"encoding/json"
	"errors"
	"expvar"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/annelo/go-tile-server/internal/storage"
	"github.com/annelo/go-tile-server/internal/world"
	"github.com/annelo/go-tile-server/internal/worldpool"
)

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}

// RouterOptions - зависимости служебного HTTP
type RouterOptions struct {
	Pool           *worldpool.Pool
	Store          storage.SnapshotStore
	AllowedOrigins []string
	Logger         *zap.SugaredLogger
}

// NewRouter собирает служебный HTTP-роутер
func NewRouter(opts RouterOptions) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	h := &handler{pool: opts.Pool, store: opts.Store, log: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/worlds", func(sub chi.Router) {
		sub.Get("/", h.listWorlds)
		sub.Get("/stored", h.listStored)
		sub.Get("/{name}", h.worldInfo)
		sub.Get("/{name}/snapshot", h.snapshot)
		sub.Post("/{name}/save", h.save)
	})
	r.Handle("/debug/vars", expvar.Handler())
	return r
}

type handler struct {
	pool  *worldpool.Pool
	store storage.SnapshotStore
	log   *zap.SugaredLogger
}

func (h *handler) listWorlds(w http.ResponseWriter, _ *http.Request) {
	infos := make([]worldpool.Info, 0, h.pool.Len())
	h.pool.Each(func(hd *worldpool.Handle) {
		if info, err := hd.Info(); err == nil {
			infos = append(infos, info)
		}
	})
	writeJSON(w, http.StatusOK, infos)
}

func (h *handler) listStored(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	names, err := h.store.List(r.Context())
	if err != nil {
		h.log.Errorw("список снимков", "error", err)
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *handler) worldInfo(w http.ResponseWriter, r *http.Request) {
	hd, ok := h.pool.Loaded(chi.URLParam(r, "name"))
	if !ok {
		errorJSON(w, http.StatusNotFound, "мир не загружен")
		return
	}
	info, err := hd.Info()
	if err != nil {
		errorJSON(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// snapshot отдает несжатый снимок: загруженного мира из памяти, иначе из
// хранилища
func (h *handler) snapshot(w http.ResponseWriter, r *http.Request) {
	name, err := storage.NormalizeName(chi.URLParam(r, "name"))
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	var data []byte
	if hd, ok := h.pool.Loaded(name); ok {
		err = hd.View(func(wd *world.World) error {
			data = wd.Snapshot()
			return nil
		})
	}
	if data == nil && h.store != nil {
		data, err = h.store.Load(r.Context(), name)
	}
	switch {
	case errors.Is(err, storage.ErrSnapshotNotFound), err == nil && data == nil:
		errorJSON(w, http.StatusNotFound, "снимок не найден")
		return
	case err != nil:
		h.log.Errorw("выгрузка снимка", "world", name, "error", err)
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.wld"`)
	_, _ = w.Write(data)
}

func (h *handler) save(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.pool.Save(r.Context(), name); err != nil {
		if errors.Is(err, worldpool.ErrNotLoaded) {
			errorJSON(w, http.StatusNotFound, err.Error())
			return
		}
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"saved": name})
}
