package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/signature"
)

// SignatureHeader is the request header carrying the inbound HMAC signature.
const SignatureHeader = "X-Hub-Signature-256"

type ingestResponse struct {
	Status         string `json:"status"`
	EventID        string `json:"event_id"`
	SubscriptionID string `json:"subscription_id"`
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	subID, err := id.ParseSubscriptionID(r.PathValue("subscriptionId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription ID")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return
	}
	defer r.Body.Close()

	evt, err := h.conduit.Ingest(r.Context(), subID, body, r.Header.Get(SignatureHeader))
	if err != nil {
		h.writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, ingestResponse{
		Status:         "accepted",
		EventID:        evt.ID.String(),
		SubscriptionID: subID.String(),
	})
}

func (h *Handler) ingestBypass(w http.ResponseWriter, r *http.Request) {
	subID, err := id.ParseSubscriptionID(r.PathValue("subscriptionId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription ID")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return
	}
	defer r.Body.Close()

	evt, err := h.conduit.IngestBypass(r.Context(), subID, body)
	if err != nil {
		h.writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, ingestResponse{
		Status:         "accepted",
		EventID:        evt.ID.String(),
		SubscriptionID: subID.String(),
	})
}

func (h *Handler) writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conduit.ErrSubscriptionNotFound):
		writeError(w, http.StatusNotFound, "subscription not found")
	case errors.Is(err, conduit.ErrMissingSignature):
		writeError(w, http.StatusUnauthorized, "missing signature header for subscription with secret key")
	case errors.Is(err, conduit.ErrInvalidSignature):
		writeError(w, http.StatusUnauthorized, "invalid signature")
	case errors.Is(err, conduit.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
	case errors.Is(err, conduit.ErrPayloadValidationFailed):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type getSignatureRequest struct {
	// Payload is signed as compact JSON when it is an object or array, and
	// as its literal contents when it is a JSON string.
	Payload json.RawMessage `json:"payload"`
	Secret  string          `json:"secret"`
}

type getSignatureResponse struct {
	Signature string `json:"signature"`
}

// getSignature computes a signature for a caller-supplied payload and
// secret, for testing webhook senders against a signed subscription.
func (h *Handler) getSignature(w http.ResponseWriter, r *http.Request) {
	var req getSignatureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request")
		return
	}

	if len(req.Payload) == 0 {
		writeError(w, http.StatusBadRequest, "missing payload field")
		return
	}
	if req.Secret == "" {
		writeError(w, http.StatusBadRequest, "missing secret field")
		return
	}

	sig, err := signature.SignJSON(req.Payload, req.Secret)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload field")
		return
	}

	writeJSON(w, http.StatusOK, getSignatureResponse{Signature: sig})
}
