package api

import (
	"net/http"

	"github.com/xraph/conduit/attempt"
)

// listDeliveryLogs returns the full attempt ledger, newest first. An empty
// ledger is a 404, matching what operators probing a fresh deployment
// expect to see.
func (h *Handler) listDeliveryLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.conduit.Attempts().ListAll(r.Context(), attempt.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 0),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if len(logs) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No delivery logs found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"delivery_logs": logs})
}
