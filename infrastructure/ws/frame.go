// Package ws carries relay sessions over WebSocket connections.
//
// Every frame is a JSON text message {"event": name, "data": payload}.
// Clients send "message" events with a string payload; the relay answers with
// "message-broadcast" events whose payload is {"message", "holder"}.
package ws

import (
	"encoding/json"

	"keychat/domain"
)

const (
	EventMessage          = "message"
	EventMessageBroadcast = "message-broadcast"
)

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type OutboundFrame struct {
	Event string           `json:"event"`
	Data  domain.Broadcast `json:"data"`
}

// MessageFrame builds the frame a client sends to chat.
func MessageFrame(text string) ([]byte, error) {
	data, err := json.Marshal(text)
	if err != nil {
		return nil, err
	}
	return json.Marshal(inboundFrame{Event: EventMessage, Data: data})
}

// parseMessage extracts the chat text of a frame. ok is false for frames that
// are not chat messages. A non-string payload is relayed as its JSON text.
func parseMessage(raw []byte) (string, bool) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Event != EventMessage {
		return "", false
	}
	if len(frame.Data) == 0 {
		return "", true
	}
	var text string
	if err := json.Unmarshal(frame.Data, &text); err != nil {
		return string(frame.Data), true
	}
	return text, true
}
