package chat

import (
	"github.com/robbine75/chat/internal/types"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Event is the envelope broadcast to a thread group whenever a message
// is created, updated or deleted.
type Event struct {
	Payload Payload `json:"payload"`
}

type Payload struct {
	Action string `json:"action"`
	// Data carries the serialized message fields; nil for deletes.
	Data *types.Message `json:"data"`
	Pk   int            `json:"pk"`
}

func CreateEvent(msg types.Message) Event {
	return Event{Payload: Payload{Action: ActionCreate, Data: &msg, Pk: msg.Id}}
}

func UpdateEvent(msg types.Message) Event {
	return Event{Payload: Payload{Action: ActionUpdate, Data: &msg, Pk: msg.Id}}
}

func DeleteEvent(pk int) Event {
	return Event{Payload: Payload{Action: ActionDelete, Data: nil, Pk: pk}}
}
