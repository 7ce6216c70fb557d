package websocket

import (
	"encoding/json"

	"backend/internal/service"
)

// LifecycleNotifier adapts the hub to the lifecycle services: every
// transition is broadcast to connected admin tabs so list and trash views
// stay current without polling.
type LifecycleNotifier struct {
	hub *Hub
}

func NewLifecycleNotifier(hub *Hub) *LifecycleNotifier {
	return &LifecycleNotifier{hub: hub}
}

// Publish broadcasts the event as JSON. Marshalling a LifecycleEvent
// cannot fail; the send blocks only until the hub loop picks it up.
func (n *LifecycleNotifier) Publish(event service.LifecycleEvent) {
	payload, err := json.Marshal(map[string]interface{}{
		"type":  "lifecycle",
		"event": event,
	})
	if err != nil {
		return
	}
	n.hub.Broadcast <- payload
}
