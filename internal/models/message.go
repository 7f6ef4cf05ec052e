package models

import (
	"strings"
	"time"
)

type MessageTemplate string

const (
	MessageTemplateOnMyWay        MessageTemplate = "on_my_way"
	MessageTemplateArrived        MessageTemplate = "arrived"
	MessageTemplateNeedDirections MessageTemplate = "need_directions"
	MessageTemplateThankYou       MessageTemplate = "thank_you"
)

var templateTexts = map[MessageTemplate]string{
	MessageTemplateOnMyWay:        "I am on my way.",
	MessageTemplateArrived:        "I have arrived.",
	MessageTemplateNeedDirections: "I need directions, please share the exact location.",
	MessageTemplateThankYou:       "Thank you for your help.",
}

// ParseMessageTemplate accepts the template names case-insensitively.
func ParseMessageTemplate(s string) (MessageTemplate, bool) {
	t := MessageTemplate(strings.ToLower(strings.TrimSpace(s)))
	_, ok := templateTexts[t]
	return t, ok
}

// DefaultText is the body used when a template message carries no text of its own.
func (t MessageTemplate) DefaultText() string {
	return templateTexts[t]
}

// Message is a note between the requester and a donor of one SOS request.
type Message struct {
	ID           uint64
	SOSRequestID uint64
	SenderID     uint64
	RecipientID  uint64
	Content      string
	// Template is empty for free-text messages.
	Template  MessageTemplate
	IsRead    bool
	ReadAt    *time.Time
	CreatedAt time.Time
}

func (m *Message) IsTemplate() bool {
	return m.Template != ""
}

// ConversationQuery selects the messages exchanged between two users, optionally within one request.
type ConversationQuery struct {
	UserID       uint64
	OtherUserID  uint64
	SOSRequestID uint64
}
