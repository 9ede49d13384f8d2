package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/internal/region"
	"github.com/mindthegap/govdata/pkg/logger"
)

// ProfileGetter is the slice of the profile store the region handler reads.
type ProfileGetter interface {
	Get(ctx context.Context, regionCode string) (contracts.RegionProfile, error)
}

// RegionHandler serves stored region profiles.
type RegionHandler struct {
	store  ProfileGetter
	logger *logger.Logger
}

// NewRegionHandler creates a region handler.
func NewRegionHandler(store ProfileGetter, log *logger.Logger) *RegionHandler {
	return &RegionHandler{
		store:  store,
		logger: log.WithComponent("api.region"),
	}
}

// GetProfile returns the stored profile for one region code.
func (h *RegionHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	if _, err := region.Lookup(code); err != nil {
		writeError(w, http.StatusNotFound, "unknown region code")
		return
	}

	profile, err := h.store.Get(r.Context(), code)
	if err != nil {
		if errors.Is(err, contracts.ErrRegionNotFound) {
			writeError(w, http.StatusNotFound, "region not yet enriched")
			return
		}
		h.logger.WithError(err).WithField("region", code).Error("Profile lookup failed")
		writeError(w, http.StatusInternalServerError, "profile lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
