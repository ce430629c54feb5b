package server

// ClientEvent is an inbound frame on a thread session. Exactly one field
// is expected to be set; frames matching neither shape are dropped.
type ClientEvent struct {
	// Text creates a message in the session's thread.
	Text *string `json:"text,omitempty"`
	// Read clears the user's unread marker for the thread.
	Read *bool `json:"read,omitempty"`
}
