package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/prometna/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

// SaveSubscription stores the device's subscription, replacing any previous one.
// A device holds at most one subscription and an endpoint belongs to at most one device.
func (s *PushStore) SaveSubscription(deviceID, endpoint, p256dh, auth, userAgent string) (*model.PushSubscription, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin save subscription: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ? AND device_id <> ?`, endpoint, deviceID); err != nil {
		return nil, fmt.Errorf("release endpoint: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO push_subscriptions (device_id, endpoint, p256dh_key, auth_key, user_agent)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(device_id) DO UPDATE SET endpoint = excluded.endpoint, p256dh_key = excluded.p256dh_key,
		 auth_key = excluded.auth_key, user_agent = excluded.user_agent`,
		deviceID, endpoint, p256dh, auth, userAgent,
	)
	if err != nil {
		return nil, fmt.Errorf("save push subscription: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save subscription: %w", err)
	}

	return s.GetByDevice(deviceID)
}

// GetByDevice returns the device's subscription, or nil if it has none.
func (s *PushStore) GetByDevice(deviceID string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.QueryRow(
		`SELECT id, device_id, endpoint, p256dh_key, auth_key, user_agent, created_at
		 FROM push_subscriptions WHERE device_id = ?`, deviceID,
	).Scan(&sub.ID, &sub.DeviceID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.UserAgent, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return &sub, nil
}

func (s *PushStore) ListAll() ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT id, device_id, endpoint, p256dh_key, auth_key, user_agent, created_at
		 FROM push_subscriptions ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func (s *PushStore) DeleteByDevice(deviceID string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE device_id = ?`, deviceID)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

func (s *PushStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}

// GetDeviceState returns the last reported platform state, or nil if the device never reported.
func (s *PushStore) GetDeviceState(deviceID string) (*model.DevicePushState, error) {
	var st model.DevicePushState
	var supportedInt int
	err := s.db.QueryRow(
		`SELECT device_id, supported, permission, updated_at FROM device_push_state WHERE device_id = ?`, deviceID,
	).Scan(&st.DeviceID, &supportedInt, &st.Permission, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get device push state: %w", err)
	}
	st.Supported = supportedInt != 0
	return &st, nil
}

// SetDeviceState upserts what the device reported about its notification capability and permission.
func (s *PushStore) SetDeviceState(deviceID string, supported bool, permission string) error {
	var supportedInt int
	if supported {
		supportedInt = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO device_push_state (device_id, supported, permission)
		 VALUES (?, ?, ?)
		 ON CONFLICT(device_id) DO UPDATE SET supported = excluded.supported, permission = excluded.permission,
		 updated_at = CURRENT_TIMESTAMP`,
		deviceID, supportedInt, permission,
	)
	if err != nil {
		return fmt.Errorf("set device push state: %w", err)
	}
	return nil
}

func scanSubscriptions(rows *sql.Rows) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	for rows.Next() {
		var sub model.PushSubscription
		if err := rows.Scan(&sub.ID, &sub.DeviceID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.UserAgent, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
