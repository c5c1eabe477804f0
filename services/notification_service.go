package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/plantbazaar/backend/models"
	"github.com/plantbazaar/backend/repository"
)

// PushSender delivers a push notification to a user's devices.
// Delivery is best-effort; the dispatcher swallows failures.
type PushSender interface {
	Send(ctx context.Context, userID, title, body string) error
}

// WebhookPushSender posts the notification to a push-gateway webhook.
type WebhookPushSender struct {
	url        string
	httpClient *http.Client
}

func NewWebhookPushSender(url string) *WebhookPushSender {
	return &WebhookPushSender{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (s *WebhookPushSender) Send(ctx context.Context, userID, title, body string) error {
	payload, err := json.Marshal(map[string]string{
		"user_id": userID,
		"title":   title,
		"body":    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &pushStatusError{status: resp.StatusCode}
	}
	return nil
}

type pushStatusError struct {
	status int
}

func (e *pushStatusError) Error() string {
	return http.StatusText(e.status)
}

// NotificationService attempts push delivery and unconditionally
// persists the notification record. Push failure is logged and
// swallowed; a persistence failure is returned to the caller.
type NotificationService struct {
	repo repository.NotificationRepository
	push PushSender
}

func NewNotificationService(repo repository.NotificationRepository, push PushSender) *NotificationService {
	return &NotificationService{repo: repo, push: push}
}

// Dispatch sends and records one notification. userID may be empty for
// broadcast-style calls; orderID may be empty when unrelated to an order.
func (s *NotificationService) Dispatch(ctx context.Context, userID, orderID, title, message, notifType string) error {
	if s.push != nil {
		if err := s.push.Send(ctx, userID, title, message); err != nil {
			zap.L().Warn("Push delivery failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}

	n := &models.Notification{
		UserID:    userID,
		OrderID:   orderID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Read:      false,
		CreatedAt: time.Now(),
	}
	return s.repo.Save(ctx, n)
}

// ListForUser returns a user's notifications newest-first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.repo.FindByUserID(ctx, userID)
}
