package api

import (
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/attempt"
	"github.com/xraph/conduit/event"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/signature"
	"github.com/xraph/conduit/subscription"
)

// ForgeAPI wires all Forge-style HTTP handlers together.
//
// It covers the management surface: subscriptions, events, delivery logs,
// and operational routes. Raw webhook ingest stays on Handler, because
// signature verification runs over the body bytes exactly as received and
// must not pass through schema-bound request decoding.
type ForgeAPI struct {
	conduit *conduit.Conduit
	log     forge.Logger
}

// NewForgeAPI creates a ForgeAPI around a Conduit instance.
func NewForgeAPI(c *conduit.Conduit, log forge.Logger) *ForgeAPI {
	return &ForgeAPI{
		conduit: c,
		log:     log,
	}
}

// RegisterRoutes registers all Conduit admin API routes into the given Forge
// router with full OpenAPI metadata.
func (a *ForgeAPI) RegisterRoutes(router forge.Router) {
	a.registerSubscriptionRoutes(router)
	a.registerEventRoutes(router)
	a.registerDeliveryLogRoutes(router)
	a.registerSignatureRoutes(router)
	a.registerOpsRoutes(router)
}

// ---------------------------------------------------------------------------
// Subscription routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerSubscriptionRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("subscriptions"))

	if err := g.POST("/subscriptions", a.createSubscriptionForge,
		forge.WithSummary("Create subscription"),
		forge.WithDescription("Registers a delivery target. An empty secret means inbound payloads are accepted unsigned."),
		forge.WithOperationID("createSubscription"),
		forge.WithRequestSchema(CreateSubscriptionForgeRequest{}),
		forge.WithCreatedResponse(subscription.Subscription{}),
		forge.WithErrorResponses(),
	); err != nil {
		// Log the error and continue registering other routes instead of failing completely.
		// This ensures that if one route has an issue, the rest of the API remains available.
		// The error will be caught during testing or can be monitored via logs.
		a.log.Error("Failed to register createSubscription route", forge.Error(err))
	}

	if err := g.GET("/subscriptions", a.listSubscriptionsForge,
		forge.WithSummary("List subscriptions"),
		forge.WithDescription("Returns a paginated list of subscriptions, newest first."),
		forge.WithOperationID("listSubscriptions"),
		forge.WithRequestSchema(ListSubscriptionsForgeRequest{}),
		forge.WithListResponse(subscription.Subscription{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listSubscriptions route", forge.Error(err))
	}

	if err := g.GET("/subscriptions/:subscriptionId", a.getSubscriptionForge,
		forge.WithSummary("Get subscription"),
		forge.WithDescription("Returns details of a specific subscription."),
		forge.WithOperationID("getSubscription"),
		forge.WithResponseSchema(http.StatusOK, "Subscription details", subscription.Subscription{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getSubscription route", forge.Error(err))
	}

	if err := g.PUT("/subscriptions/:subscriptionId", a.updateSubscriptionForge,
		forge.WithSummary("Update subscription"),
		forge.WithDescription("Replaces the mutable fields of a subscription."),
		forge.WithOperationID("updateSubscription"),
		forge.WithRequestSchema(UpdateSubscriptionForgeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated subscription", subscription.Subscription{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register updateSubscription route", forge.Error(err))
	}

	if err := g.DELETE("/subscriptions/:subscriptionId", a.deleteSubscriptionForge,
		forge.WithSummary("Delete subscription"),
		forge.WithDescription("Deletes a subscription. Recorded events and attempts are kept."),
		forge.WithOperationID("deleteSubscription"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register deleteSubscription route", forge.Error(err))
	}

	if err := g.POST("/subscriptions/:subscriptionId/rotate-secret", a.rotateSecretForge,
		forge.WithSummary("Rotate secret"),
		forge.WithDescription("Generates a fresh signing secret. The plaintext is returned exactly once."),
		forge.WithOperationID("rotateSubscriptionSecret"),
		forge.WithResponseSchema(http.StatusOK, "New secret", SecretForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register rotateSubscriptionSecret route", forge.Error(err))
	}
}

func (a *ForgeAPI) createSubscriptionForge(ctx forge.Context, req *CreateSubscriptionForgeRequest) (*subscription.Subscription, error) {
	if req.URL == "" {
		return nil, forge.BadRequest("url is required")
	}

	sub, err := a.conduit.Subscriptions().Create(ctx.Context(), subscription.Input{
		URL:           req.URL,
		Description:   req.Description,
		Secret:        req.Secret,
		PayloadSchema: req.PayloadSchema,
		Headers:       req.Headers,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return nil, mapError(err)
	}

	err = ctx.JSON(http.StatusCreated, sub)
	if err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.JSON.
	return nil, nil
}

func (a *ForgeAPI) listSubscriptionsForge(ctx forge.Context, req *ListSubscriptionsForgeRequest) ([]*subscription.Subscription, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 50
	}

	subs, err := a.conduit.Subscriptions().List(ctx.Context(), subscription.ListOpts{
		Offset: req.Offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return subs, nil
}

func (a *ForgeAPI) getSubscriptionForge(ctx forge.Context, req *GetSubscriptionForgeRequest) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(req.SubscriptionID)
	if err != nil {
		return nil, forge.BadRequest("invalid subscription ID")
	}

	sub, getErr := a.conduit.Subscriptions().Get(ctx.Context(), subID)
	if getErr != nil {
		return nil, mapError(getErr)
	}

	return sub, nil
}

func (a *ForgeAPI) updateSubscriptionForge(ctx forge.Context, req *UpdateSubscriptionForgeRequest) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(req.SubscriptionID)
	if err != nil {
		return nil, forge.BadRequest("invalid subscription ID")
	}

	sub, updateErr := a.conduit.Subscriptions().Update(ctx.Context(), subID, subscription.Input{
		URL:           req.URL,
		Description:   req.Description,
		Secret:        req.Secret,
		PayloadSchema: req.PayloadSchema,
		Headers:       req.Headers,
		Metadata:      req.Metadata,
	})
	if updateErr != nil {
		return nil, mapError(updateErr)
	}

	return sub, nil
}

func (a *ForgeAPI) deleteSubscriptionForge(ctx forge.Context, req *DeleteSubscriptionForgeRequest) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(req.SubscriptionID)
	if err != nil {
		return nil, forge.BadRequest("invalid subscription ID")
	}

	if deleteErr := a.conduit.Subscriptions().Delete(ctx.Context(), subID); deleteErr != nil {
		return nil, mapError(deleteErr)
	}

	err = ctx.NoContent(http.StatusNoContent)
	if err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.NoContent.
	return nil, nil
}

func (a *ForgeAPI) rotateSecretForge(ctx forge.Context, req *SubscriptionActionForgeRequest) (*SecretForgeResponse, error) {
	subID, err := id.ParseSubscriptionID(req.SubscriptionID)
	if err != nil {
		return nil, forge.BadRequest("invalid subscription ID")
	}

	newSecret, rotateErr := a.conduit.Subscriptions().RotateSecret(ctx.Context(), subID)
	if rotateErr != nil {
		return nil, mapError(rotateErr)
	}

	return &SecretForgeResponse{Secret: newSecret}, nil
}

// ---------------------------------------------------------------------------
// Event routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerEventRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("events"))

	if err := g.GET("/events", a.listEventsForge,
		forge.WithSummary("List events"),
		forge.WithDescription("Returns a paginated list of accepted events, newest first."),
		forge.WithOperationID("listEvents"),
		forge.WithRequestSchema(ListEventsForgeRequest{}),
		forge.WithListResponse(event.Event{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listEvents route", forge.Error(err))
	}

	if err := g.GET("/events/:eventId", a.getEventForge,
		forge.WithSummary("Get event"),
		forge.WithDescription("Returns details of a specific event."),
		forge.WithOperationID("getEvent"),
		forge.WithResponseSchema(http.StatusOK, "Event details", event.Event{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getEvent route", forge.Error(err))
	}

	if err := g.GET("/events/:eventId/attempts", a.listEventAttemptsForge,
		forge.WithSummary("List event attempts"),
		forge.WithDescription("Returns the delivery attempts recorded for an event, newest first."),
		forge.WithOperationID("listEventAttempts"),
		forge.WithListResponse(attempt.Attempt{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listEventAttempts route", forge.Error(err))
	}

	if err := g.POST("/events/:eventId/replay", a.replayEventForge,
		forge.WithSummary("Replay event"),
		forge.WithDescription("Queues one extra delivery attempt for an event with zero delay."),
		forge.WithOperationID("replayEvent"),
		forge.WithResponseSchema(http.StatusAccepted, "Replay queued", ReplayForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register replayEvent route", forge.Error(err))
	}
}

func (a *ForgeAPI) listEventsForge(ctx forge.Context, req *ListEventsForgeRequest) ([]*event.Event, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 50
	}

	opts := event.ListOpts{
		Offset: req.Offset,
		Limit:  limit,
	}

	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			return nil, forge.BadRequest("invalid 'from' time format (use RFC3339)")
		}
		opts.From = &from
	}
	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			return nil, forge.BadRequest("invalid 'to' time format (use RFC3339)")
		}
		opts.To = &to
	}

	events, err := a.conduit.Store().ListEvents(ctx.Context(), opts)
	if err != nil {
		return nil, mapError(err)
	}

	return events, nil
}

func (a *ForgeAPI) getEventForge(ctx forge.Context, req *GetEventForgeRequest) (*event.Event, error) {
	evtID, err := id.ParseEventID(req.EventID)
	if err != nil {
		return nil, forge.BadRequest("invalid event ID")
	}

	evt, getErr := a.conduit.Store().GetEvent(ctx.Context(), evtID)
	if getErr != nil {
		return nil, mapError(getErr)
	}

	return evt, nil
}

func (a *ForgeAPI) listEventAttemptsForge(ctx forge.Context, req *EventActionForgeRequest) ([]*attempt.Attempt, error) {
	evtID, err := id.ParseEventID(req.EventID)
	if err != nil {
		return nil, forge.BadRequest("invalid event ID")
	}

	if _, getErr := a.conduit.Store().GetEvent(ctx.Context(), evtID); getErr != nil {
		return nil, mapError(getErr)
	}

	atts, listErr := a.conduit.Attempts().ListByEvent(ctx.Context(), evtID)
	if listErr != nil {
		return nil, mapError(listErr)
	}

	return atts, nil
}

func (a *ForgeAPI) replayEventForge(ctx forge.Context, req *EventActionForgeRequest) (*ReplayForgeResponse, error) {
	evtID, err := id.ParseEventID(req.EventID)
	if err != nil {
		return nil, forge.BadRequest("invalid event ID")
	}

	n, replayErr := a.conduit.Replay(ctx.Context(), evtID)
	if replayErr != nil {
		return nil, mapError(replayErr)
	}

	err = ctx.JSON(http.StatusAccepted, ReplayForgeResponse{Status: "queued", Attempt: n})
	if err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.JSON.
	return nil, nil
}

// ---------------------------------------------------------------------------
// Delivery log routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerDeliveryLogRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("delivery-logs"))

	if err := g.GET("/logs/deliverylogs", a.listDeliveryLogsForge,
		forge.WithSummary("List delivery logs"),
		forge.WithDescription("Returns the full delivery attempt ledger, newest first, optionally filtered by status."),
		forge.WithOperationID("listDeliveryLogs"),
		forge.WithRequestSchema(ListDeliveryLogsForgeRequest{}),
		forge.WithListResponse(attempt.Attempt{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listDeliveryLogs route", forge.Error(err))
	}
}

func (a *ForgeAPI) listDeliveryLogsForge(ctx forge.Context, req *ListDeliveryLogsForgeRequest) ([]*attempt.Attempt, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 50
	}

	opts := attempt.ListOpts{
		Offset: req.Offset,
		Limit:  limit,
	}

	if req.Status != "" {
		status := attempt.Status(req.Status)
		opts.Status = &status
	}

	logs, err := a.conduit.Attempts().ListAll(ctx.Context(), opts)
	if err != nil {
		return nil, mapError(err)
	}

	return logs, nil
}

// ---------------------------------------------------------------------------
// Signature routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerSignatureRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("signature"))

	if err := g.POST("/ingest/getsignature", a.signPayloadForge,
		forge.WithSummary("Sign payload"),
		forge.WithDescription("Computes the HMAC signature for a payload and secret, for testing webhook senders."),
		forge.WithOperationID("signPayload"),
		forge.WithRequestSchema(SignPayloadForgeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Computed signature", SignPayloadForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register signPayload route", forge.Error(err))
	}
}

func (a *ForgeAPI) signPayloadForge(_ forge.Context, req *SignPayloadForgeRequest) (*SignPayloadForgeResponse, error) {
	if len(req.Payload) == 0 {
		return nil, forge.BadRequest("missing payload field")
	}
	if req.Secret == "" {
		return nil, forge.BadRequest("missing secret field")
	}

	sig, err := signature.SignJSON(req.Payload, req.Secret)
	if err != nil {
		return nil, forge.BadRequest("invalid payload field")
	}

	return &SignPayloadForgeResponse{Signature: sig}, nil
}

// ---------------------------------------------------------------------------
// Operational routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerOpsRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("ops"))

	if err := g.GET("/stats", a.getStatsForge,
		forge.WithSummary("System statistics"),
		forge.WithDescription("Returns queue depth and attempt counts by status."),
		forge.WithOperationID("getStats"),
		forge.WithResponseSchema(http.StatusOK, "System statistics", conduit.Stats{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getStats route", forge.Error(err))
	}

	if err := g.GET("/ping", a.pingForge,
		forge.WithSummary("Health check"),
		forge.WithDescription("Verifies store connectivity."),
		forge.WithOperationID("ping"),
		forge.WithResponseSchema(http.StatusOK, "Health status", PingForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register ping route", forge.Error(err))
	}
}

func (a *ForgeAPI) getStatsForge(ctx forge.Context, _ *StatsForgeRequest) (*conduit.Stats, error) {
	stats, err := a.conduit.Stats(ctx.Context())
	if err != nil {
		return nil, mapError(err)
	}

	return &stats, nil
}

func (a *ForgeAPI) pingForge(ctx forge.Context, _ *PingForgeRequest) (*PingForgeResponse, error) {
	if err := a.conduit.Store().Ping(ctx.Context()); err != nil {
		return nil, forge.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	return &PingForgeResponse{Status: "ok"}, nil
}
