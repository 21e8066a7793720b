package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mhizterpaul/cartlink-backend/api/responses"
	"github.com/mhizterpaul/cartlink-backend/api/validators"
	"github.com/mhizterpaul/cartlink-backend/internal/links"
	"github.com/mhizterpaul/cartlink-backend/pkg/logger"
)

// RecordLinkClick bumps the click counter for a shared product link.
func RecordLinkClick(tracker links.Tracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		linkID, err := validators.ParsePathUUID(chi.URLParam(r, "linkID"), "link id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := tracker.RecordClick(r.Context(), linkID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "recorded"})
	}
}
