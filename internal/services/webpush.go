package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/harentsoaR/medrescue-api/internal/config"
	"github.com/harentsoaR/medrescue-api/internal/models"
)

var ErrPushDisabled = errors.New("web push is not configured")

type PushSender interface {
	Send(ctx context.Context, sub *models.PushSubscription, payload []byte) error
}

// PushError is a non-success response from the push service.
type PushError struct {
	StatusCode int
	Body       string
}

func (e *PushError) Error() string {
	return fmt.Sprintf("push service responded %d: %s", e.StatusCode, e.Body)
}

// Expired reports whether the push service no longer knows the subscription.
func (e *PushError) Expired() bool {
	return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
}

type WebPushSender struct {
	cfg config.PushConfig
}

func NewWebPushSender(cfg config.PushConfig) *WebPushSender {
	return &WebPushSender{cfg: cfg}
}

func (w *WebPushSender) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
	}, &webpush.Options{
		Subscriber:      w.cfg.Subscriber,
		VAPIDPublicKey:  w.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: w.cfg.VAPIDPrivateKey,
		TTL:             w.cfg.TTL,
	})
	if err != nil {
		return fmt.Errorf("sending push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &PushError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

type NoopPushSender struct{}

func (NoopPushSender) Send(context.Context, *models.PushSubscription, []byte) error {
	return ErrPushDisabled
}
