package dosages

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"medcontrol-backend/internal/middleware"
	"medcontrol-backend/internal/platform/apperr"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/dosages", func(dr chi.Router) {
		dr.Get("/", listDosagesHandler(svc))
		dr.Post("/", createDosageHandler(svc))

		dr.Get("/{dosageID}", getDosageHandler(svc))
		dr.Delete("/{dosageID}", deleteDosageHandler(svc))

		dr.Post("/{dosageID}/take", markTakenHandler(svc))
		dr.Post("/{dosageID}/miss", markMissedHandler(svc))
	})

	// Rutas anidadas bajo el medicamento dueño.
	r.Get("/medicines/{medicineID}/dosages", listByMedicineHandler(svc))
	r.Delete("/medicines/{medicineID}/dosages", deleteByMedicineHandler(svc))
}

type createDosageRequest struct {
	MedicineID   string `json:"medicine_id"`
	ExpectedTime string `json:"expected_time"` // RFC3339
}

type markTakenRequest struct {
	TakenAt string `json:"taken_at"` // RFC3339 opcional; vacío = ahora
}

type dosageResponse struct {
	ID           string     `json:"id"`
	MedicineID   string     `json:"medicine_id"`
	ExpectedTime time.Time  `json:"expected_time"`
	Status       string     `json:"status"`
	TakenAt      *time.Time `json:"taken_at,omitempty"`
	LateMinutes  *int       `json:"late_minutes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// listDosagesHandler godoc
// @Summary Listar dosis del usuario
// @Description Devuelve las dosis de todos los medicamentos del usuario, ordenadas por hora esperada.
// @Tags dosages
// @Produce json
// @Success 200 {array} dosageResponse
// @Failure 401 {object} errorResponse
// @Router /dosages [get]
func listDosagesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, apperr.Unauthorized("unauthorized"))
			return
		}

		items, err := svc.List(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDosageResponses(items))
	}
}

func listByMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, apperr.Unauthorized("unauthorized"))
			return
		}

		items, err := svc.ListByMedicine(r.Context(), claims.UserID, chi.URLParam(r, "medicineID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDosageResponses(items))
	}
}

// createDosageHandler godoc
// @Summary Crear dosis manual
// @Description Inserta una dosis pendiente puntual. Rechaza con DUPLICATE_DOSAGE si ya existe otra a menos de 5 minutos.
// @Tags dosages
// @Accept json
// @Produce json
// @Param payload body createDosageRequest true "medicine_id y expected_time RFC3339"
// @Success 201 {object} dosageResponse
// @Failure 401 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse "DUPLICATE_DOSAGE"
// @Router /dosages [post]
func createDosageHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, apperr.Unauthorized("unauthorized"))
			return
		}

		var req createDosageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.BadRequest("BAD_REQUEST", "invalid json"))
			return
		}

		expected, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ExpectedTime))
		if err != nil {
			writeError(w, apperr.Validation("expected_time must be RFC3339"))
			return
		}

		d, err := svc.Create(r.Context(), claims.UserID, req.MedicineID, expected)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toDosageResponse(d))
	}
}

func getDosageHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, apperr.Unauthorized("unauthorized"))
			return
		}

		d, err := svc.Get(r.Context(), claims.UserID, chi.URLParam(r, "dosageID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDosageResponse(d))
	}
}

// markTakenHandler godoc
// @Summary Marcar dosis como tomada
// @Description Transición pending -> taken/late. Más de 10 minutos tarde la marca late con late_minutes. Demasiado pronto responde DOSE_TOO_EARLY.
// @Tags dosages
// @Accept json
// @Produce json
// @Param dosageID path string true "ID de la dosis"
// @Param payload body markTakenRequest false "taken_at opcional en RFC3339"
// @Success 200 {object} dosageResponse
// @Failure 400 {object} errorResponse "DOSE_TOO_EARLY, INACTIVE_MEDICINE, STATUS_CHANGE_FORBIDDEN"
// @Failure 401 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /dosages/{dosageID}/take [post]
func markTakenHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, apperr.Unauthorized("unauthorized"))
			return
		}

		var takenAt *time.Time
		if r.Body != nil && r.ContentLength != 0 {
			var req markTakenRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, apperr.BadRequest("BAD_REQUEST", "invalid json"))
				return
			}
			if strings.TrimSpace(req.TakenAt) != "" {
				t, err := time.Parse(time.RFC3339, strings.TrimSpace(req.TakenAt))
				if err != nil {
					writeError(w, apperr.Validation("taken_at must be RFC3339"))
					return
				}
				takenAt = &t
			}
		}

		d, err := svc.MarkTaken(r.Context(), claims.UserID, chi.URLParam(r, "dosageID"), takenAt)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDosageResponse(d))
	}
}

func markMissedHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, apperr.Unauthorized("unauthorized"))
			return
		}

		d, err := svc.MarkMissed(r.Context(), claims.UserID, chi.URLParam(r, "dosageID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDosageResponse(d))
	}
}

// deleteByMedicineHandler godoc
// @Summary Vaciar el calendario de un medicamento
// @Description Borra todas las dosis del medicamento (pendientes e historial) sin borrar el medicamento.
// @Tags dosages
// @Produce json
// @Param medicineID path string true "ID del medicamento"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /medicines/{medicineID}/dosages [delete]
func deleteByMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, apperr.Unauthorized("unauthorized"))
			return
		}

		count, err := svc.DeleteByMedicine(r.Context(), claims.UserID, chi.URLParam(r, "medicineID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted_count": count})
	}
}

func deleteDosageHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			writeError(w, apperr.Unauthorized("unauthorized"))
			return
		}

		if err := svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "dosageID")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func toDosageResponse(d Dosage) dosageResponse {
	return dosageResponse{
		ID:           d.ID,
		MedicineID:   d.MedicineID,
		ExpectedTime: d.ExpectedTime,
		Status:       string(d.Status),
		TakenAt:      d.TakenAt,
		LateMinutes:  d.LateMinutes,
		CreatedAt:    d.CreatedAt,
	}
}

func toDosageResponses(items []Dosage) []dosageResponse {
	out := make([]dosageResponse, 0, len(items))
	for _, d := range items {
		out = append(out, toDosageResponse(d))
	}
	return out
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Duplicado intencionalmente respecto de otros módulos.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	e := apperr.From(err)
	writeJSON(w, e.Status, errorResponse{Success: false, Code: e.Code, Message: e.Message})
}
