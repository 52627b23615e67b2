package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"docchat-backend/internal/logger"
	"docchat-backend/models"
)

// NotificationService registers device tokens and dispatches push
// messages through the FCM HTTP endpoint. The chat pipeline has no
// dependency on it and never blocks on its availability.
type NotificationService struct {
	tokens     *mongo.Collection
	httpClient *http.Client
	serverKey  string
	endpoint   string
}

func NewNotificationService(db *mongo.Database, serverKey, endpoint string) *NotificationService {
	return &NotificationService{
		tokens: db.Collection("device_tokens"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		serverKey: serverKey,
		endpoint:  endpoint,
	}
}

// RegisterToken stores a device token. Registering the same token twice
// is a no-op.
func (ns *NotificationService) RegisterToken(ctx context.Context, token string) error {
	filter := bson.M{"token": token}
	update := bson.M{
		"$setOnInsert": bson.M{
			"token":         token,
			"registered_at": time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := ns.tokens.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("registering device token: %w", err)
	}
	return nil
}

type fcmRequest struct {
	RegistrationIDs []string        `json:"registration_ids"`
	Notification    fcmNotification `json:"notification"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// SendToAll pushes a notification to every registered device. Returns
// the provider-reported success and failure counts.
func (ns *NotificationService) SendToAll(ctx context.Context, title, body string) (int, int, error) {
	cursor, err := ns.tokens.Find(ctx, bson.M{})
	if err != nil {
		return 0, 0, fmt.Errorf("loading device tokens: %w", err)
	}
	var registered []models.DeviceToken
	if err := cursor.All(ctx, &registered); err != nil {
		return 0, 0, fmt.Errorf("decoding device tokens: %w", err)
	}
	if len(registered) == 0 {
		return 0, 0, fmt.Errorf("no device tokens registered")
	}

	ids := make([]string, len(registered))
	for i, t := range registered {
		ids[i] = t.Token
	}

	payload, err := json.Marshal(fcmRequest{
		RegistrationIDs: ids,
		Notification:    fcmNotification{Title: title, Body: body},
	})
	if err != nil {
		return 0, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ns.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+ns.serverKey)

	resp, err := ns.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("sending push notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("push dispatch failed with status %d", resp.StatusCode)
	}

	var result fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, 0, fmt.Errorf("decoding push response: %w", err)
	}

	logger.Info("Push notifications dispatched", "success", result.Success, "failure", result.Failure)
	return result.Success, result.Failure, nil
}
