package events

import (
	"encoding/json"
	"time"
)

// ChangeMessage announces that a collection changed on some instance. It
// carries only the collection path; receivers reload from the backend.
type ChangeMessage struct {
	Path      string    `json:"path"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(path, origin string) *ChangeMessage {
	return &ChangeMessage{
		Path:      path,
		Origin:    origin,
		Timestamp: time.Now(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
