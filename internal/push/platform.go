package push

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/prometna/internal/store"
	"github.com/dukerupert/prometna/internal/websocket"
)

// ErrDeviceOffline is returned when a local notification has no open page to land on.
var ErrDeviceOffline = errors.New("device has no open connection")

// Notifier delivers messages to a device's open pages.
type Notifier interface {
	SendTo(deviceID string, msg websocket.Message) int
}

// DeviceReport is what the browser observed about its own push capability:
// support, Notification.permission, and the subscription pushManager returned.
type DeviceReport struct {
	Supported    bool          `json:"supported"`
	Permission   Permission    `json:"permission"`
	Subscription *Subscription `json:"subscription,omitempty"`
	UserAgent    string        `json:"-"`
}

// DevicePlatform implements Platform for one browser from its reports,
// the push store, and the websocket hub.
type DevicePlatform struct {
	store    *store.PushStore
	notifier Notifier
	deviceID string
	report   *DeviceReport
}

func NewDevicePlatform(s *store.PushStore, n Notifier, deviceID string) *DevicePlatform {
	return &DevicePlatform{store: s, notifier: n, deviceID: deviceID}
}

// Report records what the browser observed. Later calls on this platform
// answer from the report.
func (p *DevicePlatform) Report(r DeviceReport) error {
	r.Permission = ParsePermission(string(r.Permission))
	if err := p.store.SetDeviceState(p.deviceID, r.Supported, string(r.Permission)); err != nil {
		return fmt.Errorf("record device report: %w", err)
	}
	p.report = &r
	return nil
}

// Supported reports whether the device has push support. Devices that never
// reported are assumed capable.
func (p *DevicePlatform) Supported() bool {
	if p.report != nil {
		return p.report.Supported
	}
	st, err := p.store.GetDeviceState(p.deviceID)
	if err != nil || st == nil {
		return true
	}
	return st.Supported
}

func (p *DevicePlatform) Permission(ctx context.Context) (Permission, error) {
	if p.report != nil {
		return p.report.Permission, nil
	}
	st, err := p.store.GetDeviceState(p.deviceID)
	if err != nil {
		return PermissionDefault, err
	}
	if st == nil {
		return PermissionDefault, nil
	}
	return ParsePermission(st.Permission), nil
}

func (p *DevicePlatform) Subscription(ctx context.Context) (*Subscription, error) {
	sub, err := p.store.GetByDevice(p.deviceID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, nil
	}
	return &Subscription{
		Endpoint: sub.Endpoint,
		Keys:     Keys{P256dh: sub.P256dhKey, Auth: sub.AuthKey},
	}, nil
}

// Subscribe completes with the subscription the browser obtained from
// pushManager.subscribe. A report without one means the prompt was blocked
// or dismissed, told apart by the reported permission.
func (p *DevicePlatform) Subscribe(ctx context.Context, applicationServerKey []byte) (*Subscription, error) {
	if len(applicationServerKey) != 65 {
		return nil, fmt.Errorf("%w: want 65 bytes, got %d", ErrInvalidKey, len(applicationServerKey))
	}
	if p.report != nil && p.report.Permission == PermissionDenied {
		return nil, ErrPermissionDenied
	}
	if p.report == nil || p.report.Subscription == nil {
		return nil, ErrPromptDismissed
	}
	sub := p.report.Subscription
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return nil, errors.New("incomplete subscription: endpoint and keys are required")
	}

	if _, err := p.store.SaveSubscription(p.deviceID, sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth, p.report.UserAgent); err != nil {
		return nil, err
	}
	// A granted subscription implies the prompt was accepted.
	if p.report.Permission != PermissionGranted {
		p.report.Permission = PermissionGranted
		if err := p.store.SetDeviceState(p.deviceID, true, string(PermissionGranted)); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

func (p *DevicePlatform) Unsubscribe(ctx context.Context) error {
	return p.store.DeleteByDevice(p.deviceID)
}

// ShowNotification asks the device's open pages to display n locally.
func (p *DevicePlatform) ShowNotification(ctx context.Context, n Notification) error {
	msg := websocket.NewNotification(n.Title, n.Body, n.Icon)
	if p.notifier.SendTo(p.deviceID, msg) == 0 {
		return ErrDeviceOffline
	}
	return nil
}
