package service

import (
	"context"

	"github.com/phrazzld/scry-chat/internal/events"
	"github.com/phrazzld/scry-chat/internal/task"
)

// notify publishes a conversation change. A publish failure is logged and
// never fails the caller.
func (s *chatServiceImpl) notify(ctx context.Context, eventType, key string) {
	if s.deps.Events == nil {
		return
	}
	if err := s.deps.Events.EmitEvent(ctx, events.NewConversationEvent(eventType, key)); err != nil {
		s.log(ctx).Warn("failed to publish conversation change",
			"event_type", eventType,
			"error", err)
	}
}

// watch wraps t so that a successful run, which appended an assistant turn,
// is published as a conversation change.
func (s *chatServiceImpl) watch(key string, t task.Task) task.Task {
	if s.deps.Events == nil {
		return t
	}
	return &notifyingTask{Task: t, key: key, notify: s.notify}
}

type notifyingTask struct {
	task.Task
	key    string
	notify func(ctx context.Context, eventType, key string)
}

// Execute runs the wrapped task and reports the appended turn on success.
func (t *notifyingTask) Execute(ctx context.Context) (string, error) {
	result, err := t.Task.Execute(ctx)
	if err == nil {
		t.notify(ctx, events.TypeTurnAppended, t.key)
	}
	return result, err
}
