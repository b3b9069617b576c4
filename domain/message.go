package domain

// Broadcast is the payload of a message-broadcast event.
// It is never stored past delivery.
type Broadcast struct {
	Message string   `json:"message"`
	Holder  Identity `json:"holder"`
}
