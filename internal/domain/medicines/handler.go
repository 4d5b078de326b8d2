package medicines

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"medcontrol-backend/internal/domain/schedule"
	"medcontrol-backend/internal/middleware"
	"medcontrol-backend/internal/platform/apperr"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/medicines", func(mr chi.Router) {
		mr.Post("/", createMedicineHandler(svc))
		mr.Get("/", listMedicinesHandler(svc))

		mr.Get("/{medicineID}", getMedicineHandler(svc))
		mr.Patch("/{medicineID}", updateMedicineHandler(svc))
		mr.Delete("/{medicineID}", deleteMedicineHandler(svc))

		// Regeneración bajo demanda de las dosis de los próximos N días
		mr.Post("/{medicineID}/regenerate", regenerateDosagesHandler(svc))
	})
}

// createMedicineRequest es el cuerpo para registrar un medicamento.
// frequency_hours y fixed_schedules son mutuamente excluyentes.
type createMedicineRequest struct {
	Name           string `json:"name"`
	Dosage         string `json:"dosage"`
	FrequencyHours int    `json:"frequency_hours"`
	FixedSchedules string `json:"fixed_schedules"` // "HH:MM,HH:MM"
	DateStart      string `json:"date_start"`      // RFC3339
	DateEnd        string `json:"date_end"`        // RFC3339 opcional
	Observations   string `json:"observations"`
}

type updateMedicineRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	Name           *string `json:"name"`
	Dosage         *string `json:"dosage"`
	FrequencyHours *int    `json:"frequency_hours"`
	FixedSchedules *string `json:"fixed_schedules"`
	DateStart      *string `json:"date_start"`
	DateEnd        *string `json:"date_end"` // null = limpiar (ver detección de presencia)
	Observations   *string `json:"observations"`
	Active         *bool   `json:"active"`
}

type regenerateRequest struct {
	DaysAhead int `json:"days_ahead"`
}

type regenerateResponse struct {
	DosagesCount int `json:"dosages_count"`
	DaysAhead    int `json:"days_ahead"`
}

type medicineResponse struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Name           string     `json:"name"`
	Dosage         string     `json:"dosage"`
	FrequencyHours *int       `json:"frequency_hours,omitempty"`
	FixedSchedules *string    `json:"fixed_schedules,omitempty"`
	DateStart      time.Time  `json:"date_start"`
	DateEnd        *time.Time `json:"date_end,omitempty"`
	Observations   string     `json:"observations"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// createMedicineHandler godoc
// @Summary Crear medicamento
// @Description Registra un medicamento y genera su calendario de dosis pendientes sobre [date_start, date_end] (o +30 días si no hay fin). La regla es frequency_hours XOR fixed_schedules. Autenticación: `X-Debug-User-ID` (dev) o `Authorization: Bearer <token>`.
// @Tags medicines
// @Accept json
// @Produce json
// @Param payload body createMedicineRequest true "Datos del medicamento; fechas en RFC3339 UTC"
// @Success 201 {object} medicineResponse
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 409 {object} errorResponse "MEDICINE_NAME_DUPLICATE"
// @Failure 422 {object} errorResponse
// @Router /medicines [post]
func createMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, apperr.Unauthorized("unauthorized"))
			return
		}

		var req createMedicineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.BadRequest("BAD_REQUEST", "invalid json"))
			return
		}

		dateStart, err := parseRFC3339(req.DateStart)
		if err != nil {
			writeError(w, apperr.Validation("date_start must be RFC3339"))
			return
		}

		var dateEnd *time.Time
		if strings.TrimSpace(req.DateEnd) != "" {
			t, err := parseRFC3339(req.DateEnd)
			if err != nil {
				writeError(w, apperr.Validation("date_end must be RFC3339"))
				return
			}
			dateEnd = &t
		}

		m, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			Name:           req.Name,
			Dosage:         req.Dosage,
			FrequencyHours: req.FrequencyHours,
			FixedSchedules: req.FixedSchedules,
			DateStart:      dateStart,
			DateEnd:        dateEnd,
			Observations:   req.Observations,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toMedicineResponse(m))
	}
}

// listMedicinesHandler godoc
// @Summary Listar medicamentos del usuario
// @Tags medicines
// @Produce json
// @Success 200 {array} medicineResponse
// @Failure 401 {object} errorResponse
// @Router /medicines [get]
func listMedicinesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, apperr.Unauthorized("unauthorized"))
			return
		}

		items, err := svc.ListByUser(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]medicineResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicineResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, apperr.Unauthorized("unauthorized"))
			return
		}

		m, err := svc.GetForUser(r.Context(), claims.UserID, chi.URLParam(r, "medicineID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMedicineResponse(m))
	}
}

// updateMedicineHandler godoc
// @Summary Editar medicamento (PATCH)
// @Description Cambios en regla, fechas o reactivación disparan la regeneración de dosis pendientes futuras. Enviar date_end como null limpia la fecha de fin.
// @Tags medicines
// @Accept json
// @Produce json
// @Param medicineID path string true "ID del medicamento"
// @Param payload body updateMedicineRequest true "Campos a modificar"
// @Success 200 {object} medicineResponse
// @Failure 401 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 422 {object} errorResponse
// @Router /medicines/{medicineID} [patch]
func updateMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, apperr.Unauthorized("unauthorized"))
			return
		}

		// Para soportar date_end: null hay que detectar presencia del campo.
		// Estrategia: decodificar a map primero y re-unmarshal al struct.
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeError(w, apperr.BadRequest("BAD_REQUEST", "invalid json"))
			return
		}

		var req updateMedicineRequest
		{
			b, _ := json.Marshal(raw)
			if err := json.Unmarshal(b, &req); err != nil {
				writeError(w, apperr.BadRequest("BAD_REQUEST", "invalid json"))
				return
			}
		}

		in := UpdateInput{
			Name:           req.Name,
			Dosage:         req.Dosage,
			FrequencyHours: req.FrequencyHours,
			FixedSchedules: req.FixedSchedules,
			Observations:   req.Observations,
			Active:         req.Active,
		}

		if req.DateStart != nil {
			t, err := parseRFC3339(*req.DateStart)
			if err != nil {
				writeError(w, apperr.Validation("date_start must be RFC3339"))
				return
			}
			in.DateStart = &t
		}

		if v, present := raw["date_end"]; present {
			in.DateEnd.Present = true
			if string(v) != "null" {
				var s string
				if err := json.Unmarshal(v, &s); err != nil {
					writeError(w, apperr.Validation("date_end must be RFC3339 or null"))
					return
				}
				t, err := parseRFC3339(s)
				if err != nil {
					writeError(w, apperr.Validation("date_end must be RFC3339 or null"))
					return
				}
				in.DateEnd.Value = &t
			}
		}

		m, err := svc.Update(r.Context(), claims.UserID, chi.URLParam(r, "medicineID"), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMedicineResponse(m))
	}
}

func deleteMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, apperr.Unauthorized("unauthorized"))
			return
		}

		if err := svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "medicineID")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// regenerateDosagesHandler godoc
// @Summary Regenerar dosis de los próximos N días
// @Tags medicines
// @Accept json
// @Produce json
// @Param medicineID path string true "ID del medicamento"
// @Param payload body regenerateRequest false "days_ahead entre 1 y 365 (default 7)"
// @Success 200 {object} regenerateResponse
// @Failure 401 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /medicines/{medicineID}/regenerate [post]
func regenerateDosagesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, apperr.Unauthorized("unauthorized"))
			return
		}

		req := regenerateRequest{DaysAhead: 7}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, apperr.BadRequest("BAD_REQUEST", "invalid json"))
				return
			}
			if req.DaysAhead == 0 {
				req.DaysAhead = 7
			}
		}

		count, err := svc.RegenerateNext(r.Context(), claims.UserID, chi.URLParam(r, "medicineID"), req.DaysAhead)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, regenerateResponse{DosagesCount: count, DaysAhead: req.DaysAhead})
	}
}

func toMedicineResponse(m Medicine) medicineResponse {
	out := medicineResponse{
		ID:           m.ID,
		UserID:       m.UserID,
		Name:         m.Name,
		Dosage:       m.Dosage,
		DateStart:    m.DateStart,
		DateEnd:      m.DateEnd,
		Observations: m.Observations,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}

	switch r := m.Rule.(type) {
	case schedule.IntervalRule:
		h := r.Hours
		out.FrequencyHours = &h
	case schedule.FixedTimesRule:
		s := schedule.FormatFixedTimes(r.Times)
		out.FixedSchedules = &s
	}
	return out
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(s))
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON/writeError están duplicados intencionalmente en handlers de
// distintos módulos para evitar crear paquetes/helpers compartidos
// demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	e := apperr.From(err)
	writeJSON(w, e.Status, errorResponse{Success: false, Code: e.Code, Message: e.Message})
}
