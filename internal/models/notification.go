package models

import "time"

type NotificationType string

const (
	NotificationSOSRequest    NotificationType = "sos_request"
	NotificationSOSResponse   NotificationType = "sos_response"
	NotificationSOSFulfilled  NotificationType = "sos_fulfilled"
	NotificationDonorProgress NotificationType = "donor_progress"
	NotificationSystem        NotificationType = "system"
)

type NotificationChannel string

const (
	ChannelInApp NotificationChannel = "in_app"
	ChannelEmail NotificationChannel = "email"
	ChannelSMS   NotificationChannel = "sms"
)

// Notification is the in-app record a user sees in their feed.
type Notification struct {
	ID          uint64
	RecipientID uint64
	Type        NotificationType
	Title       string
	Body        string
	Metadata    map[string]any
	Channels    []NotificationChannel
	Priority    string
	IsRead      bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}

// NotificationQuery pages a user's feed. A nil Read returns read and unread alike.
type NotificationQuery struct {
	RecipientID uint64
	Read        *bool
	Limit       int
}
