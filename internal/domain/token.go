package domain

import "time"

const PushProviderFCM = "firebase-fcm"

// PushToken is a device token registered for a user.
type PushToken struct {
	UserID    string
	Token     string
	Provider  string
	CreatedAt time.Time
}
