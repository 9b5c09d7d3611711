package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/medrescue-api/internal/metrics"
	"github.com/harentsoaR/medrescue-api/internal/models"
)

// PushPayload is the JSON document the service worker renders.
type PushPayload struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Icon  string   `json:"icon,omitempty"`
	Badge string   `json:"badge,omitempty"`
	Data  PushData `json:"data"`
}

type PushData struct {
	URL string `json:"url"`
}

func newPush(title, body, url string) *PushPayload {
	return &PushPayload{
		Title: title,
		Body:  body,
		Icon:  "/logo192.png",
		Badge: "/logo192.png",
		Data:  PushData{URL: url},
	}
}

// AdminRegistry holds the id of the account that receives admin notifications.
type AdminRegistry struct {
	mu sync.RWMutex
	id primitive.ObjectID
}

func NewAdminRegistry(id primitive.ObjectID) *AdminRegistry {
	return &AdminRegistry{id: id}
}

// ResolveAdminRegistry prefers the configured id and otherwise looks the
// admin up once. A deployment without an admin yields an empty registry.
func ResolveAdminRegistry(ctx context.Context, configuredID string, users UserRepository) (*AdminRegistry, error) {
	if configuredID != "" {
		id, err := primitive.ObjectIDFromHex(configuredID)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_USER_ID %q is not a valid ObjectID: %w", configuredID, err)
		}
		return NewAdminRegistry(id), nil
	}

	admin, err := users.FindAdmin(ctx)
	if errors.Is(err, models.ErrUserNotFound) {
		return NewAdminRegistry(primitive.NilObjectID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolving admin: %w", err)
	}
	return NewAdminRegistry(admin.ID), nil
}

func (r *AdminRegistry) AdminID() (primitive.ObjectID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.id, !r.id.IsZero()
}

func (r *AdminRegistry) Set(id primitive.ObjectID) {
	r.mu.Lock()
	r.id = id
	r.mu.Unlock()
}

type NotificationService struct {
	users   UserRepository
	push    PushSender
	admin   *AdminRegistry
	timeout time.Duration
	log     *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time

	wg sync.WaitGroup
}

func NewNotificationService(users UserRepository, push PushSender, admin *AdminRegistry, timeout time.Duration, log *zap.Logger, m *metrics.Collector) *NotificationService {
	return &NotificationService{
		users:   users,
		push:    push,
		admin:   admin,
		timeout: timeout,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// Notify appends the in-app entry and, when push is non-nil, starts a best
// effort browser push that never blocks the caller.
func (s *NotificationService) Notify(ctx context.Context, userID primitive.ObjectID, n models.Notification, push *PushPayload) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	if err := s.users.AppendNotification(ctx, userID, n); err != nil {
		return fmt.Errorf("appending notification: %w", err)
	}
	s.metrics.NotificationsWritten.Inc()

	if push != nil {
		s.dispatchPush(userID, *push)
	}
	return nil
}

// NotifyAdmin targets the registered admin. An empty registry is resolved
// again on demand so an admin created after startup is picked up.
func (s *NotificationService) NotifyAdmin(ctx context.Context, n models.Notification, push *PushPayload) error {
	id, ok := s.admin.AdminID()
	if !ok {
		admin, err := s.users.FindAdmin(ctx)
		if errors.Is(err, models.ErrUserNotFound) {
			s.log.Warn("no admin configured, dropping admin notification", zap.String("type", n.Type))
			return nil
		}
		if err != nil {
			return fmt.Errorf("resolving admin: %w", err)
		}
		s.admin.Set(admin.ID)
		id = admin.ID
	}
	return s.Notify(ctx, id, n, push)
}

func (s *NotificationService) dispatchPush(userID primitive.ObjectID, payload PushPayload) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		outcome := s.deliver(ctx, userID, payload)
		s.metrics.PushDeliveries.WithLabelValues(outcome).Inc()
	}()
}

func (s *NotificationService) deliver(ctx context.Context, userID primitive.ObjectID, payload PushPayload) string {
	log := s.log.With(zap.String("user_id", userID.Hex()))

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		log.Warn("push skipped, user lookup failed", zap.Error(err))
		return "failed"
	}
	if user.PushSubscription == nil || user.PushSubscription.Endpoint == "" {
		return "no_subscription"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Error("encoding push payload", zap.Error(err))
		return "failed"
	}

	err = s.push.Send(ctx, user.PushSubscription, body)
	var pushErr *PushError
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, ErrPushDisabled):
		return "disabled"
	case errors.As(err, &pushErr) && pushErr.Expired():
		log.Info("push subscription expired, clearing", zap.Int("status", pushErr.StatusCode))
		if err := s.users.SetPushSubscription(ctx, userID, nil); err != nil {
			log.Warn("clearing expired subscription", zap.Error(err))
		}
		return "expired"
	default:
		log.Warn("push delivery failed", zap.Error(err))
		return "failed"
	}
}

// Wait blocks until in-flight push deliveries finish or ctx is done.
func (s *NotificationService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *NotificationService) Subscribe(ctx context.Context, userID primitive.ObjectID, sub models.PushSubscription) error {
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return invalid("subscription endpoint and keys are required")
	}
	return s.users.SetPushSubscription(ctx, userID, &sub)
}

func (s *NotificationService) MarkAllSeen(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return s.users.MarkAllNotificationsSeen(ctx, userID)
}

func (s *NotificationService) DeleteAll(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return s.users.ClearNotifications(ctx, userID)
}
