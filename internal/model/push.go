package model

import "time"

// PushSubscription is a browser push registration stored for one device.
type PushSubscription struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"device_id"`
	Endpoint  string    `json:"endpoint"`
	P256dhKey string    `json:"p256dh_key"`
	AuthKey   string    `json:"auth_key"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// DevicePushState is the last platform state a device reported.
type DevicePushState struct {
	DeviceID   string    `json:"device_id"`
	Supported  bool      `json:"supported"`
	Permission string    `json:"permission"`
	UpdatedAt  time.Time `json:"updated_at"`
}
