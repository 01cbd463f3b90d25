// Package backup exports and restores a user's planning data as a zip of
// plain JSON documents, and reports service health.
package backup

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	apphttp "moneyclip/internal/http"
	"moneyclip/internal/services/planstore"
	"moneyclip/internal/services/storage"
	"moneyclip/internal/version"
)

// maxUploadBytes bounds restore uploads
const maxUploadBytes = 10 << 20

// planEntry is the archive member holding the plan document
const planEntry = "plan.json"

// Handler serves backup, restore and health routes
type Handler struct {
	store   *planstore.Store
	storage *storage.Storage
	backend string
	log     *logrus.Entry
	now     func() time.Time
}

// New creates a Handler. store and st may be nil for the postgres backend,
// in which case only health and version are served.
func New(store *planstore.Store, st *storage.Storage, backend string, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{
		store:   store,
		storage: st,
		backend: backend,
		log:     log.WithField("component", "backup"),
		now:     time.Now,
	}
}

// RegisterPublicRoutes registers routes that need no authentication
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/version", h.HandleVersion)
}

// RegisterRoutes registers the per-user backup routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	if h.store == nil {
		return
	}
	r.Get("/backup", h.HandleBackup)
	r.Post("/restore", h.HandleRestore)
}

// HandleHealth reports liveness and whether stored data is readable
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":  "ok",
		"backend": h.backend,
	}
	if h.storage != nil {
		status["encrypted"] = h.storage.IsEncrypted()
		status["unlocked"] = h.storage.IsUnlocked()
	}
	apphttp.JSON(w, http.StatusOK, status)
}

// HandleVersion reports build information
func (h *Handler) HandleVersion(w http.ResponseWriter, r *http.Request) {
	apphttp.JSON(w, http.StatusOK, version.Get())
}

// HandleBackup streams the caller's documents, decrypted, as a zip
func (h *Handler) HandleBackup(w http.ResponseWriter, r *http.Request) {
	userID, err := apphttp.UserID(r)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusUnauthorized)
		return
	}
	dir, err := h.store.UserDir(userID)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusBadRequest)
		return
	}
	files, err := h.storage.Files(dir)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, "Failed to list data files: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Read everything first so a decryption failure can still be reported
	contents := make(map[string][]byte, len(files))
	for _, path := range files {
		data, err := h.storage.ReadFile(path)
		if err != nil {
			if errors.Is(err, storage.ErrLocked) {
				apphttp.ErrorResponse(w, h.log, "Data is locked", http.StatusServiceUnavailable)
				return
			}
			apphttp.ErrorResponse(w, h.log, "Failed to read "+filepath.Base(path)+": "+err.Error(), http.StatusInternalServerError)
			return
		}
		contents[filepath.Base(path)] = data
	}

	filename := fmt.Sprintf("moneyclip_%s_%s.zip", userID, h.now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	zw := zip.NewWriter(w)
	for _, path := range files {
		name := filepath.Base(path)
		f, err := zw.Create(name)
		if err == nil {
			_, err = f.Write(contents[name])
		}
		if err != nil {
			// Headers are already sent; all we can do is log
			h.log.WithError(err).WithField("file", name).Error("failed writing backup entry")
			break
		}
	}
	if err := zw.Close(); err != nil {
		h.log.WithError(err).Error("failed finishing backup archive")
		return
	}
	h.log.WithFields(logrus.Fields{"user": userID, "files": len(files)}).Info("backup exported")
}

// HandleRestore replaces the caller's plan with the plan.json of an uploaded
// backup. Every record is validated before anything is written.
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	userID, err := apphttp.UserID(r)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusUnauthorized)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		apphttp.ErrorResponse(w, h.log, "File too large", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		apphttp.ErrorResponse(w, h.log, "Error reading file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".zip") {
		apphttp.ErrorResponse(w, h.log, "Only ZIP backup files are allowed", http.StatusBadRequest)
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, "Error reading file", http.StatusBadRequest)
		return
	}

	plan, err := readPlan(content)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.store.ReplacePlan(r.Context(), userID, plan); err != nil {
		if errors.Is(err, storage.ErrLocked) {
			apphttp.ErrorResponse(w, h.log, "Data is locked", http.StatusServiceUnavailable)
			return
		}
		apphttp.ErrorResponse(w, h.log, "Failed to restore plan: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.log.WithField("user", userID).Info("plan restored from backup")
	apphttp.JSON(w, http.StatusOK, map[string]any{
		"message":   "Backup restored successfully",
		"accounts":  len(plan.Accounts),
		"expenses":  len(plan.Expenses),
		"income":    len(plan.Income),
		"paychecks": len(plan.Paychecks),
	})
}

// readPlan extracts and validates plan.json from a zip archive
func readPlan(content []byte) (*planstore.Plan, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, errors.New("invalid ZIP file")
	}

	for _, zf := range zr.File {
		// Only the base name matters; nested paths are ignored
		if zf.FileInfo().IsDir() || filepath.Base(zf.Name) != planEntry {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", zf.Name, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxUploadBytes))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", zf.Name, err)
		}

		plan := &planstore.Plan{}
		if err := json.Unmarshal(data, plan); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", planEntry, err)
		}
		if err := validatePlan(plan); err != nil {
			return nil, err
		}
		return plan, nil
	}
	return nil, fmt.Errorf("no %s found in backup", planEntry)
}

func validatePlan(p *planstore.Plan) error {
	primaries := 0
	for i, a := range p.Accounts {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("account %d: %w", i, err)
		}
		if a.IsPrimary {
			primaries++
		}
	}
	if primaries > 1 {
		return fmt.Errorf("%d accounts are marked primary, at most one is allowed", primaries)
	}
	for i, e := range p.Expenses {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("expense %d: %w", i, err)
		}
	}
	for i, inc := range p.Income {
		if err := inc.Validate(); err != nil {
			return fmt.Errorf("income %d: %w", i, err)
		}
	}
	for i, ps := range p.Paychecks {
		if err := ps.Validate(); err != nil {
			return fmt.Errorf("paycheck schedule %d: %w", i, err)
		}
	}

	seen := make(map[string]string)
	check := func(kind, id string) error {
		if id == "" {
			return fmt.Errorf("%s without id", kind)
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("duplicate id %q (%s and %s)", id, prev, kind)
		}
		seen[id] = kind
		return nil
	}
	for _, a := range p.Accounts {
		if err := check("account", a.ID); err != nil {
			return err
		}
	}
	for _, e := range p.Expenses {
		if err := check("expense", e.ID); err != nil {
			return err
		}
	}
	for _, inc := range p.Income {
		if err := check("income", inc.ID); err != nil {
			return err
		}
	}
	for _, ps := range p.Paychecks {
		if err := check("paycheck schedule", ps.ID); err != nil {
			return err
		}
	}
	return nil
}
