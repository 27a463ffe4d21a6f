package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sheherjaano/backend/internal/auth"
	"github.com/sheherjaano/backend/internal/model"
	"github.com/sheherjaano/backend/internal/repository"
	"github.com/sheherjaano/backend/internal/service"
)

// KindRoute pairs a place kind with its URL segment. The server mounts the
// same three handlers under each prefix — one code path, five routes.
type KindRoute struct {
	Path string
	Kind model.Kind
}

// KindRoutes lists the URL prefix for every place kind:
//
//	POST /api/famous-spots        GET /api/famous-spots        GET /api/famous-spots/{id}
//	POST /api/hidden-spots        ...
func KindRoutes() []KindRoute {
	return []KindRoute{
		{Path: "famous-spots", Kind: model.KindFamousSpot},
		{Path: "hidden-spots", Kind: model.KindHiddenSpot},
		{Path: "famous-foods", Kind: model.KindFood},
		{Path: "handicrafts", Kind: model.KindHandicraft},
		{Path: "histories", Kind: model.KindHistory},
	}
}

// PlaceHandler serves the submission workflow and the place read endpoints.
type PlaceHandler struct {
	places *service.PlaceService
	logger *slog.Logger
}

// NewPlaceHandler creates a PlaceHandler.
func NewPlaceHandler(places *service.PlaceService, logger *slog.Logger) *PlaceHandler {
	return &PlaceHandler{places: places, logger: logger}
}

// submitRequest is the submission body. One shape covers all five kinds —
// clients send only the fields their kind uses.
type submitRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`

	State   string `json:"state"`
	City    string `json:"city"`
	Address string `json:"address"`

	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	Description   string   `json:"description"`
	Images        []string `json:"images"`
	VideoLink     string   `json:"videoLink"`
	InstagramLink string   `json:"instagramLink"`

	OpeningHours string `json:"openingHours"`
	EntryFee     string `json:"entryFee"`
	BestTime     string `json:"bestTime"`

	Era                string `json:"era"`
	BuiltBy            string `json:"builtBy"`
	YearBuilt          string `json:"yearBuilt"`
	HistoryDescription string `json:"historyDescription"`

	PriceRange   string         `json:"priceRange"`
	LocalMarkets []model.Market `json:"localMarkets"`

	Places []model.FoodPlace `json:"places"`
}

// submitResponse mirrors what the frontend needs after a submission: which
// branch fired, the documents involved, and — when this was the submitter's
// first item — their new role and a token that already carries it.
type submitResponse struct {
	Success      bool                `json:"success"`
	Message      string              `json:"message"`
	Place        *model.Place        `json:"place"`
	Contribution *model.Contribution `json:"contribution,omitempty"`
	IsNewPlace   bool                `json:"isNewPlace"`
	NewRole      string              `json:"newRole,omitempty"`
	AccessToken  string              `json:"accessToken,omitempty"`
}

// HandleSubmit returns the submission handler for one kind.
//
// HTTP: POST /api/{kind}
// Auth: Required
//
// Status is 201 when a new master place was created and 200 when the
// submission landed as a contribution on an existing one — the only
// endpoint where the status code itself tells the client which branch ran.
func (h *PlaceHandler) HandleSubmit(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
			return
		}

		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
			return
		}

		result, err := h.places.Submit(r.Context(), id.UserID, service.SubmitInput{
			Kind:               kind,
			Name:               req.Name,
			Category:           req.Category,
			State:              req.State,
			City:               req.City,
			Address:            req.Address,
			Latitude:           req.Latitude,
			Longitude:          req.Longitude,
			Description:        req.Description,
			Images:             req.Images,
			VideoLink:          req.VideoLink,
			InstagramLink:      req.InstagramLink,
			OpeningHours:       req.OpeningHours,
			EntryFee:           req.EntryFee,
			BestTime:           req.BestTime,
			Era:                req.Era,
			BuiltBy:            req.BuiltBy,
			YearBuilt:          req.YearBuilt,
			HistoryDescription: req.HistoryDescription,
			PriceRange:         req.PriceRange,
			LocalMarkets:       req.LocalMarkets,
			Places:             req.Places,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		status := http.StatusOK
		message := fmt.Sprintf("your contribution to %q was added", result.Place.Name)
		if result.IsNewPlace {
			status = http.StatusCreated
			message = fmt.Sprintf("%s %q created", kind.Label(), result.Place.Name)
		}

		writeJSON(w, status, submitResponse{
			Success:      true,
			Message:      message,
			Place:        result.Place,
			Contribution: result.Contribution,
			IsNewPlace:   result.IsNewPlace,
			NewRole:      result.NewRole,
			AccessToken:  result.AccessToken,
		})
	}
}

// HandleList returns the listing handler for one kind.
//
// HTTP: GET /api/{kind}?state=Rajasthan&city=Jaipur
// Auth: None — place listings are public.
func (h *PlaceHandler) HandleList(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := repository.PlaceFilter{
			State: r.URL.Query().Get("state"),
			City:  r.URL.Query().Get("city"),
		}

		places, err := h.places.List(r.Context(), kind, filter)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"count":   len(places),
			"places":  places,
		})
	}
}

// HandleGet returns the detail handler for one kind.
//
// HTTP: GET /api/{kind}/{id}
// Auth: None.
//
// The response embeds every contribution attached to the place, each joined
// with its author's public profile.
func (h *PlaceHandler) HandleGet(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		detail, err := h.places.Get(r.Context(), kind, id)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"place":         detail.Place,
			"owner":         detail.Owner,
			"contributions": detail.Contributions,
		})
	}
}
