package amqp

import (
	"encoding/json"
	"time"

	"dompet/internal/core"
)

// MessageTypeUpgradeRequest is the type of messages relayed to the bot.
const MessageTypeUpgradeRequest = "upgrade_request"

// UpgradeRequestMessage asks the operators to upgrade an account. The bot
// consuming the queue turns it into a chat prompt.
type UpgradeRequestMessage struct {
	Type        string    `json:"type"`
	UserID      int64     `json:"user_id"`
	Tier        string    `json:"tier"`
	Feature     string    `json:"feature,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewUpgradeRequestMessage(req core.UpgradeRequest, at time.Time) *UpgradeRequestMessage {
	return &UpgradeRequestMessage{
		Type:        MessageTypeUpgradeRequest,
		UserID:      req.UserID,
		Tier:        string(req.Tier),
		Feature:     req.Feature,
		RequestedAt: at.UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *UpgradeRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// UpgradeRequestMessageFromJSON decodes a message body.
func UpgradeRequestMessageFromJSON(data []byte) (*UpgradeRequestMessage, error) {
	var msg UpgradeRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
