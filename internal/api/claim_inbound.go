package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/slotwise/slotwise/internal/claim"
	"github.com/slotwise/slotwise/internal/realtime"
)

const inboundTimeout = 5 * time.Second

// ClaimInbound bridges websocket messages to the reservation coordinator.
// It implements realtime.InboundHandler; the coordinator itself answers the
// client through the hub, so most outcomes need no reply from here.
type ClaimInbound struct {
	coordinator *claim.Coordinator
	hub         *realtime.Hub
	logger      *zap.Logger
}

func NewClaimInbound(coordinator *claim.Coordinator, hub *realtime.Hub, logger *zap.Logger) *ClaimInbound {
	return &ClaimInbound{coordinator: coordinator, hub: hub, logger: logger}
}

func (ci *ClaimInbound) HandleInbound(clientID string, msg realtime.InboundMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), inboundTimeout)
	defer cancel()

	switch msg.Type {
	case realtime.EventClaimRequested:
		ci.handleRequest(ctx, clientID, msg.Payload)
	case realtime.EventClaimReleased:
		ci.handleRelease(ctx, clientID, msg.Payload)
	default:
		ci.logger.Debug("Ignoring unknown inbound event",
			zap.String("client_id", clientID),
			zap.String("type", string(msg.Type)),
		)
	}
}

func (ci *ClaimInbound) handleRequest(ctx context.Context, clientID string, raw json.RawMessage) {
	var p realtime.ClaimRequestedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		ci.hub.SendTo(clientID, realtime.Event{
			Type:    realtime.EventClaimDenied,
			Payload: realtime.ClaimDeniedPayload{Reason: "malformed claim request"},
		})
		return
	}

	_, err := ci.coordinator.RequestClaim(ctx, p.OrganizerID, p.SlotStart, p.SlotEnd, clientID)
	switch {
	case err == nil, errors.Is(err, claim.ErrContended):
		// The coordinator already answered the client either way.
	case errors.Is(err, claim.ErrInvalidInterval):
		ci.hub.SendTo(clientID, realtime.Event{
			Type:    realtime.EventClaimDenied,
			Payload: realtime.ClaimDeniedPayload{Reason: "slot interval is in the past or inverted"},
		})
	default:
		ci.logger.Error("Claim request failed",
			zap.String("client_id", clientID),
			zap.Int64("organizer_id", p.OrganizerID),
			zap.Error(err),
		)
		ci.hub.SendTo(clientID, realtime.Event{
			Type:    realtime.EventClaimDenied,
			Payload: realtime.ClaimDeniedPayload{Reason: "internal error, try again"},
		})
	}
}

func (ci *ClaimInbound) handleRelease(ctx context.Context, clientID string, raw json.RawMessage) {
	var p realtime.ClaimReleasedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		ci.logger.Debug("Malformed claim release", zap.String("client_id", clientID))
		return
	}

	if err := ci.coordinator.ReleaseClaim(ctx, p.Handle); err != nil {
		ci.logger.Error("Claim release failed",
			zap.String("client_id", clientID),
			zap.String("handle", p.Handle.String()),
			zap.Error(err),
		)
	}
}
