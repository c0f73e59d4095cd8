package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"giftwise/internal/gw"
	"giftwise/internal/kv"
	"giftwise/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// fail maps a storage error to a response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, gw.ErrInvalidBackup):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, kv.ErrQuotaExceeded):
		writeError(w, http.StatusInsufficientStorage, "storage quota exceeded")
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body of at most limit bytes into v.
func decode(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

type catalog struct {
	Relationships  []model.Option[model.Relationship] `json:"relationships"`
	BudgetRanges   []model.Budget                     `json:"budgetRanges"`
	Occasions      []model.Option[string]             `json:"occasions"`
	Industries     []string                           `json:"industries"`
	GiftCategories []string                           `json:"giftCategories"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog{
		Relationships:  model.Relationships,
		BudgetRanges:   model.BudgetRanges,
		Occasions:      model.Occasions,
		Industries:     model.Industries,
		GiftCategories: model.GiftCategories,
	})
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.storage.Profiles()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleAddProfile(w http.ResponseWriter, r *http.Request) {
	var fields model.ProfileFields
	if !decode(w, r, maxBodyBytes, &fields) {
		return
	}
	if strings.TrimSpace(fields.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !fields.Relationship.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown relationship %q", fields.Relationship))
		return
	}
	if !fields.BudgetRange.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown budget range %q", fields.BudgetRange))
		return
	}

	p, err := s.storage.AddProfile(fields)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.storage.Profile(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch model.ProfilePatch
	if !decode(w, r, maxBodyBytes, &patch) {
		return
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		writeError(w, http.StatusBadRequest, "name must not be empty")
		return
	}
	if patch.Relationship != nil && !patch.Relationship.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown relationship %q", *patch.Relationship))
		return
	}
	if patch.BudgetRange != nil && !patch.BudgetRange.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown budget range %q", *patch.BudgetRange))
		return
	}

	p, err := s.storage.UpdateProfile(chi.URLParam(r, "id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.DeleteProfile(chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProfileGifts(w http.ResponseWriter, r *http.Request) {
	gifts, err := s.storage.GiftsForProfile(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gifts)
}

func (s *Server) handleListGifts(w http.ResponseWriter, r *http.Request) {
	history, err := s.storage.GiftHistory()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleAddGift(w http.ResponseWriter, r *http.Request) {
	var fields model.GiftFields
	if !decode(w, r, maxBodyBytes, &fields) {
		return
	}
	if strings.TrimSpace(fields.GiftName) == "" {
		writeError(w, http.StatusBadRequest, "giftName is required")
		return
	}
	if fields.Price < 0 {
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	gift, err := s.storage.AddGiftToHistory(fields)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, gift)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.storage.Settings()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch model.SettingsPatch
	if !decode(w, r, maxBodyBytes, &patch) {
		return
	}
	if patch.Theme != nil && *patch.Theme != model.ThemeLight && *patch.Theme != model.ThemeDark {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown theme %q", *patch.Theme))
		return
	}
	if patch.DataRetention != nil && *patch.DataRetention < 0 {
		writeError(w, http.StatusBadRequest, "dataRetention must not be negative")
		return
	}

	settings, err := s.storage.UpdateSettings(patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.storage.Stats()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.storage.StorageUsage()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.storage.ExportJSON()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "backup too large")
		return
	}
	res, err := s.storage.ImportData(data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.ClearAllData(); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
