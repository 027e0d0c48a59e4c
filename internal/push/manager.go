package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Permission mirrors the browser's Notification.permission.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ParsePermission maps an arbitrary value onto a Permission, treating
// anything unrecognized as default.
func ParsePermission(s string) Permission {
	switch Permission(s) {
	case PermissionGranted, PermissionDenied:
		return Permission(s)
	default:
		return PermissionDefault
	}
}

// StatusText is the label shown next to the push toggle.
func (p Permission) StatusText() string {
	switch p {
	case PermissionGranted:
		return "Dozvola odobrena"
	case PermissionDenied:
		return "Dozvola blokirana"
	default:
		return "Čeka se dozvola"
	}
}

// State is where a device sits in the subscription lifecycle.
type State string

const (
	StateUnknown       State = "unknown"
	StateUnsupported   State = "unsupported"
	StateChecking      State = "checking"
	StateNotSubscribed State = "not_subscribed"
	StateSubscribed    State = "subscribed"
	StateDenied        State = "denied"
)

const (
	testTitle = "Testna Obavijest"
	testBody  = "Ako vidite ovo, obavijesti rade ispravno!"
)

var (
	ErrUnsupported      = errors.New("push notifications are not supported on this device")
	ErrPermissionDenied = errors.New("notification permission denied")
	ErrNotSubscribed    = errors.New("device is not subscribed to notifications")
	ErrPromptDismissed  = errors.New("permission prompt dismissed without a subscription")
)

// Alerts shown to the user for the recoverable push errors.
const (
	DeniedAlert        = "Blokirali ste obavijesti. Morate ih omogućiti u postavkama preglednika."
	NotSubscribedAlert = "Morate biti pretplaćeni za testiranje obavijesti."
	UnsupportedAlert   = "Push obavijesti nisu podržane u ovom pregledniku."
)

// Keys are the client's encryption keys from PushSubscription.toJSON().
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is an active push registration as the browser reports it.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     Keys   `json:"keys"`
}

// Notification is shown by the device itself rather than sent through a push service.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	Badge string `json:"badge,omitempty"`
}

// Platform is the push substrate of one device.
type Platform interface {
	Supported() bool
	Permission(ctx context.Context) (Permission, error)
	Subscription(ctx context.Context) (*Subscription, error)
	Subscribe(ctx context.Context, applicationServerKey []byte) (*Subscription, error)
	Unsubscribe(ctx context.Context) error
	ShowNotification(ctx context.Context, n Notification) error
}

// Status is a snapshot of the manager after an operation.
type Status struct {
	State        State         `json:"state"`
	Permission   Permission    `json:"permission"`
	StatusText   string        `json:"statusText"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// Manager drives the permission and subscription state machine for one device.
type Manager struct {
	mu         sync.Mutex
	platform   Platform
	vapidKey   string
	logger     *slog.Logger
	state      State
	permission Permission
	sub        *Subscription
}

// NewManager creates a Manager in the unknown state. vapidKey is the base64url
// application server key handed to the platform on subscribe.
func NewManager(platform Platform, vapidKey string, logger *slog.Logger) *Manager {
	return &Manager{
		platform:   platform,
		vapidKey:   vapidKey,
		logger:     logger,
		state:      StateUnknown,
		permission: PermissionDefault,
	}
}

// Status returns the current snapshot without touching the platform.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Manager) snapshot() Status {
	return Status{
		State:        m.state,
		Permission:   m.permission,
		StatusText:   m.permission.StatusText(),
		Subscription: m.sub,
	}
}

// CheckStatus reads permission and subscription from the platform. It never
// fails; platform errors leave the device not subscribed.
func (m *Manager) CheckStatus(ctx context.Context) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.platform.Supported() {
		m.state = StateUnsupported
		m.sub = nil
		m.logger.Warn("push notifications are not supported on this device")
		return m.snapshot()
	}

	m.state = StateChecking
	m.refresh(ctx)
	return m.snapshot()
}

// refresh settles Checking into one of the resting states.
func (m *Manager) refresh(ctx context.Context) {
	perm, err := m.platform.Permission(ctx)
	if err != nil {
		m.logger.Warn("read notification permission", "error", err)
		perm = PermissionDefault
	}
	m.permission = perm

	sub, err := m.platform.Subscription(ctx)
	if err != nil {
		m.logger.Warn("read push subscription", "error", err)
		sub = nil
	}
	m.sub = sub

	switch {
	case sub != nil:
		m.state = StateSubscribed
	case perm == PermissionDenied:
		m.state = StateDenied
	default:
		m.state = StateNotSubscribed
	}
}

// Subscribe toggles the device: an existing subscription is cancelled,
// otherwise a new one is requested with the VAPID key. A denied permission
// short-circuits without any platform call.
func (m *Manager) Subscribe(ctx context.Context) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.platform.Supported() {
		m.state = StateUnsupported
		return m.snapshot(), ErrUnsupported
	}

	if m.state == StateUnknown || m.state == StateChecking {
		m.permission = m.currentPermission(ctx)
	}
	if m.permission == PermissionDenied {
		m.state = StateDenied
		return m.snapshot(), ErrPermissionDenied
	}

	existing, err := m.platform.Subscription(ctx)
	if err != nil {
		return m.snapshot(), fmt.Errorf("read push subscription: %w", err)
	}
	if existing != nil {
		if err := m.platform.Unsubscribe(ctx); err != nil {
			return m.snapshot(), fmt.Errorf("unsubscribe: %w", err)
		}
		m.sub = nil
		m.state = StateNotSubscribed
		m.logger.Info("device unsubscribed")
		m.permission = m.currentPermission(ctx)
		return m.snapshot(), nil
	}

	key, err := DecodeApplicationServerKey(m.vapidKey)
	if err != nil {
		return m.snapshot(), fmt.Errorf("decode vapid key: %w", err)
	}

	sub, err := m.platform.Subscribe(ctx, key)
	m.permission = m.currentPermission(ctx)
	if err != nil {
		m.sub = nil
		// Only a permission that now reads denied is terminal.
		if m.permission == PermissionDenied {
			m.state = StateDenied
			m.logger.Warn("subscribe rejected, permission denied")
			return m.snapshot(), ErrPermissionDenied
		}
		m.state = StateNotSubscribed
		return m.snapshot(), fmt.Errorf("subscribe: %w", err)
	}

	m.sub = sub
	m.state = StateSubscribed
	m.logger.Info("device subscribed", "endpoint", sub.Endpoint)
	return m.snapshot(), nil
}

// Unsubscribe cancels any active subscription. Calling it without one is a no-op.
func (m *Manager) Unsubscribe(ctx context.Context) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.platform.Supported() {
		m.state = StateUnsupported
		return m.snapshot(), nil
	}

	existing, err := m.platform.Subscription(ctx)
	if err != nil {
		return m.snapshot(), fmt.Errorf("read push subscription: %w", err)
	}
	if existing != nil {
		if err := m.platform.Unsubscribe(ctx); err != nil {
			return m.snapshot(), fmt.Errorf("unsubscribe: %w", err)
		}
	}
	m.sub = nil
	m.permission = m.currentPermission(ctx)
	if m.permission == PermissionDenied {
		m.state = StateDenied
	} else {
		m.state = StateNotSubscribed
	}
	return m.snapshot(), nil
}

// SendTestNotification shows the fixed test notification on the device.
// Without an active subscription it returns ErrNotSubscribed and does nothing.
func (m *Manager) SendTestNotification(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.platform.Supported() {
		return ErrNotSubscribed
	}
	sub, err := m.platform.Subscription(ctx)
	if err != nil {
		return fmt.Errorf("read push subscription: %w", err)
	}
	if sub == nil {
		m.logger.Warn("test notification requested without a subscription")
		return ErrNotSubscribed
	}

	if err := m.platform.ShowNotification(ctx, Notification{
		Title: testTitle,
		Body:  testBody,
		Icon:  NotificationIcon,
	}); err != nil {
		return fmt.Errorf("show notification: %w", err)
	}
	return nil
}

func (m *Manager) currentPermission(ctx context.Context) Permission {
	perm, err := m.platform.Permission(ctx)
	if err != nil {
		return m.permission
	}
	return perm
}
