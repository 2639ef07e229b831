package queue

import "encoding/json"

// Message is an analysis job for a committed document.
type Message struct {
	DocumentID  string `json:"documentId"`
	FileName    string `json:"fileName"`
	StoragePath string `json:"storagePath"`
	RequestID   string `json:"requestId,omitempty"`
	EnqueuedAt  string `json:"enqueuedAt"`
	Version     int    `json:"version"`
}

// MessageVersion is the current job payload version.
const MessageVersion = 1

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
