package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/stork/internal/app"
	"github.com/okian/stork/internal/domain/model"
	"github.com/okian/stork/internal/domain/scoring"
	"github.com/okian/stork/pkg/logger"
)

// AdminDependencies defines the administrative operations. Mutations carry
// the caller's email; the service decides whether it is the admin.
type AdminDependencies interface {
	GetPrediction(ctx context.Context, id string) (model.Prediction, error)
	UpdatePrediction(ctx context.Context, adminEmail, id string, patch model.PredictionPatch) (model.Prediction, error)
	DeletePrediction(ctx context.Context, adminEmail, id string) error
	SaveActualResult(ctx context.Context, adminEmail string, in model.ActualResultInput) (model.ActualResult, error)
	ActualResult(ctx context.Context) (model.ActualResult, error)
	Winners(ctx context.Context) (service.WinnersResult, error)
	Settings(ctx context.Context) (model.Settings, error)
	UpdateSettings(ctx context.Context, adminEmail string, patch model.SettingsPatch) (model.Settings, error)
	CheckAdmin(ctx context.Context, email string) (model.Participant, error)
	ClearAll(ctx context.Context, adminEmail string) error
}

// AdminHandler handles /admin requests.
type AdminHandler struct {
	deps   AdminDependencies
	logger logger.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies, log logger.Logger) *AdminHandler {
	return &AdminHandler{deps: deps, logger: log}
}

type adminRequest struct {
	AdminEmail string `json:"admin_email"`
}

type updatePredictionRequest struct {
	AdminEmail string                `json:"admin_email"`
	Updates    model.PredictionPatch `json:"updates"`
}

type actualResultRequest struct {
	AdminEmail string `json:"admin_email"`
	model.ActualResultInput
}

type updateSettingsRequest struct {
	AdminEmail string `json:"admin_email"`
	model.SettingsPatch
}

type checkRequest struct {
	Email string `json:"email"`
}

type actualResultResponse struct {
	Results *model.ActualResult `json:"results"`
}

type settingsResponse struct {
	Settings model.Settings `json:"settings"`
}

type checkResponse struct {
	IsAdmin bool              `json:"is_admin"`
	User    model.Participant `json:"user"`
}

// WinnerEntry is one ranked prediction with its presentation hints.
type WinnerEntry struct {
	scoring.ScoredPrediction
	Medal string       `json:"medal,omitempty"`
	Label scoring.Band `json:"label"`
	Tone  string       `json:"tone"`
}

type winnersResponse struct {
	Winners          []WinnerEntry      `json:"winners"`
	ActualResults    model.ActualResult `json:"actual_results"`
	TotalPredictions int                `json:"total_predictions"`
}

// HandleGetPrediction handles GET /admin/predictions/{id}.
func (h *AdminHandler) HandleGetPrediction(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_get_prediction"
	p, err := h.deps.GetPrediction(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, predictionResponse{Prediction: p})
}

// HandleUpdatePrediction handles PATCH /admin/predictions/{id}.
func (h *AdminHandler) HandleUpdatePrediction(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_update_prediction"
	var req updatePredictionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.UpdatePrediction(r.Context(), req.AdminEmail, r.PathValue("id"), req.Updates)
	if err != nil {
		respondError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, predictionResponse{Prediction: p})
}

// HandleDeletePrediction handles DELETE /admin/predictions/{id}.
func (h *AdminHandler) HandleDeletePrediction(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_delete_prediction"
	var req adminRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.DeletePrediction(r.Context(), req.AdminEmail, r.PathValue("id")); err != nil {
		respondError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Prediction deleted"})
}

// HandleGetActualResult handles GET /admin/actual-results. A missing result
// is not an error here.
func (h *AdminHandler) HandleGetActualResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_get_actual_result"
	res, err := h.deps.ActualResult(r.Context())
	switch {
	case errors.Is(err, service.ErrNoActualResult):
		writeJSON(w, http.StatusOK, actualResultResponse{})
	case err != nil:
		respondError(r.Context(), h.logger, w, Wrap(op, err))
	default:
		writeJSON(w, http.StatusOK, actualResultResponse{Results: &res})
	}
}

// HandleSaveActualResult handles POST /admin/actual-results.
func (h *AdminHandler) HandleSaveActualResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_save_actual_result"
	var req actualResultRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.SaveActualResult(r.Context(), req.AdminEmail, req.ActualResultInput)
	if err != nil {
		respondError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, actualResultResponse{Results: &res})
}

// HandleWinners handles GET /admin/winners.
func (h *AdminHandler) HandleWinners(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_winners"
	res, err := h.deps.Winners(r.Context())
	if err != nil {
		respondError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}

	entries := make([]WinnerEntry, len(res.Winners))
	for i, sp := range res.Winners {
		entries[i] = WinnerEntry{
			ScoredPrediction: sp,
			Medal:            scoring.Medal(sp.Rank),
			Label:            scoring.Label(sp.Score),
			Tone:             scoring.Tone(sp.Score),
		}
	}
	writeJSON(w, http.StatusOK, winnersResponse{
		Winners:          entries,
		ActualResults:    res.Actual,
		TotalPredictions: res.TotalPredictions,
	})
}

// HandleGetSettings handles GET /admin/settings.
func (h *AdminHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_get_settings"
	s, err := h.deps.Settings(r.Context())
	if err != nil {
		respondError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: s})
}

// HandleUpdateSettings handles POST /admin/settings.
func (h *AdminHandler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_update_settings"
	var req updateSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	s, err := h.deps.UpdateSettings(r.Context(), req.AdminEmail, req.SettingsPatch)
	if err != nil {
		respondError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: s})
}

// HandleCheck handles POST /admin/check.
func (h *AdminHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_check"
	var req checkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.CheckAdmin(r.Context(), req.Email)
	if err != nil {
		respondError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, checkResponse{IsAdmin: true, User: p})
}

// HandleClearAll handles POST /admin/clear-all.
func (h *AdminHandler) HandleClearAll(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_clear_all"
	var req adminRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.ClearAll(r.Context(), req.AdminEmail); err != nil {
		respondError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "All data cleared"})
}
