package api

import (
	"context"
	"net/http"

	"golang.org/x/text/language"

	"github.com/okian/stork/internal/adapters/mail"
	service "github.com/okian/stork/internal/app"
	"github.com/okian/stork/internal/domain/model"
	"github.com/okian/stork/pkg/logger"
)

// PredictionDependencies defines the participant-facing prediction operations.
type PredictionDependencies interface {
	SubmitPrediction(ctx context.Context, in model.PredictionInput, locale string) (service.SubmitResult, error)
	ListPredictions(ctx context.Context) ([]model.Prediction, error)
	PredictionByEmail(ctx context.Context, email string) (model.Prediction, error)
}

// PredictionsHandler handles prediction requests.
type PredictionsHandler struct {
	deps   PredictionDependencies
	logger logger.Logger
}

// NewPredictionsHandler creates a new predictions handler.
func NewPredictionsHandler(deps PredictionDependencies, log logger.Logger) *PredictionsHandler {
	return &PredictionsHandler{deps: deps, logger: log}
}

type submitRequest struct {
	model.PredictionInput
	Locale string `json:"locale"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	service.SubmitResult
}

type predictionResponse struct {
	Prediction model.Prediction `json:"prediction"`
}

type predictionListResponse struct {
	Predictions []model.Prediction `json:"predictions"`
	Total       int                `json:"total"`
}

// HandleSubmit handles POST /predictions. A new prediction answers 201, a
// replaced one 200.
func (h *PredictionsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_prediction"
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	locale := req.Locale
	if locale == "" {
		locale = requestLocale(r)
	}
	res, err := h.deps.SubmitPrediction(r.Context(), req.PredictionInput, locale)
	if err != nil {
		respondError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}

	status, msg := http.StatusCreated, "Prediction submitted successfully!"
	if res.Updated {
		status, msg = http.StatusOK, "Prediction updated successfully!"
	}
	writeJSON(w, status, submitResponse{Success: true, Message: msg, SubmitResult: res})
}

// HandleList handles GET /predictions.
func (h *PredictionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_predictions"
	ps, err := h.deps.ListPredictions(r.Context())
	if err != nil {
		respondError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	if ps == nil {
		ps = []model.Prediction{}
	}
	writeJSON(w, http.StatusOK, predictionListResponse{Predictions: ps, Total: len(ps)})
}

// HandleByEmail handles GET /predictions/by-email?email=.
func (h *PredictionsHandler) HandleByEmail(w http.ResponseWriter, r *http.Request) {
	const op = "api.prediction_by_email"
	p, err := h.deps.PredictionByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		respondError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, predictionResponse{Prediction: p})
}

var (
	supportedLocales = []string{mail.DefaultLocale, "es-AR", "sv"}                                    //nolint:gochecknoglobals // read-only
	localeMatcher    = language.NewMatcher([]language.Tag{language.English, language.MustParse("es-AR"), language.Swedish}) //nolint:gochecknoglobals // read-only
)

// requestLocale picks the mail locale from Accept-Language.
func requestLocale(r *http.Request) string {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return mail.DefaultLocale
	}
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return mail.DefaultLocale
	}
	return supportedLocales[idx]
}
