package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/asset-attestation/internal/core/events"
)

// Enqueuer accepts notification jobs for background delivery.
type Enqueuer interface {
	Enqueue(job Job) error
}

type EventHandler struct {
	sender Sender
	queue  Enqueuer
	logger *slog.Logger
}

func NewEventHandler(sender Sender, queue Enqueuer, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		sender: sender,
		queue:  queue,
		logger: logger,
	}
}

func (h *EventHandler) HandleCampaignLaunched(ctx context.Context, event events.Event) error {
	launched, ok := event.(*events.CampaignLaunchedEvent)
	if !ok {
		h.logger.Error("invalid event type for campaign launched handler", "event_type", event.EventType())
		return fmt.Errorf("expected CampaignLaunchedEvent, got %T", event)
	}

	h.logger.Info("handling campaign launched event",
		"campaign_id", launched.CampaignID,
		"participants", len(launched.Participants),
		"invitees", len(launched.Invitees),
		"event_id", launched.EventID())

	campaign := CampaignInfo{
		ID:        launched.CampaignID,
		Name:      launched.CampaignName,
		StartDate: launched.StartDate,
		EndDate:   launched.EndDate,
	}

	dropped := 0
	for _, r := range launched.Participants {
		to := personFrom(r)
		err := h.queue.Enqueue(Job{
			Kind: KindLaunchNotice,
			To:   to.Email,
			Send: func(ctx context.Context) error {
				return h.sender.SendLaunchNotice(ctx, to, campaign)
			},
		})
		if err != nil {
			dropped++
		}
	}
	for _, r := range launched.Invitees {
		to, token := personFrom(r), r.InviteToken
		err := h.queue.Enqueue(Job{
			Kind: KindInvite,
			To:   to.Email,
			Send: func(ctx context.Context) error {
				return h.sender.SendInvite(ctx, to, campaign, token)
			},
		})
		if err != nil {
			dropped++
		}
	}

	if dropped > 0 {
		h.logger.Warn("some launch notifications were not queued",
			"campaign_id", launched.CampaignID,
			"dropped", dropped)
		return fmt.Errorf("%d launch notifications for campaign %d were not queued", dropped, launched.CampaignID)
	}
	return nil
}

func (h *EventHandler) HandleAttestationCompleted(ctx context.Context, event events.Event) error {
	completed, ok := event.(*events.AttestationCompletedEvent)
	if !ok {
		h.logger.Error("invalid event type for attestation completed handler", "event_type", event.EventType())
		return fmt.Errorf("expected AttestationCompletedEvent, got %T", event)
	}

	to := personFrom(completed.Employee)
	campaign := CampaignInfo{ID: completed.CampaignID, Name: completed.CampaignName}
	assetsCreated := completed.AssetsCreated

	return h.queue.Enqueue(Job{
		Kind: KindCompletionReceipt,
		To:   to.Email,
		Send: func(ctx context.Context) error {
			return h.sender.SendCompletionReceipt(ctx, to, campaign, assetsCreated)
		},
	})
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeCampaignLaunched, h.HandleCampaignLaunched)
	eventBus.Subscribe(events.EventTypeAttestationCompleted, h.HandleAttestationCompleted)

	h.logger.Info("notification event handlers registered",
		"handlers", []string{events.EventTypeCampaignLaunched, events.EventTypeAttestationCompleted})
}

func personFrom(r events.Recipient) Person {
	return Person{Email: r.Email, FirstName: r.FirstName, LastName: r.LastName}
}
