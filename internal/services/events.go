package services

import (
	"context"
	"errors"
	"time"

	"github.com/heroverse/apiserver/types"
	"go.uber.org/zap"
)

// EventSink receives user change events.
type EventSink interface {
	Publish(ctx context.Context, event types.UserEvent) error
}

// EventSinks fans an event out to every sink and joins their errors.
type EventSinks []EventSink

func (s EventSinks) Publish(ctx context.Context, event types.UserEvent) error {
	var errs []error
	for _, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// emit publishes best-effort: a failing sink is logged and never fails the
// request that produced the event.
func emit(ctx context.Context, sink EventSink, logger *zap.Logger, eventType types.UserEventType, userID, actorID string) {
	if sink == nil {
		return
	}
	event := types.UserEvent{
		Type:       eventType,
		UserID:     userID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
	if err := sink.Publish(ctx, event); err != nil && logger != nil {
		logger.Warn("publish user event failed",
			zap.String("type", string(eventType)),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
