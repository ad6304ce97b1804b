// Package notify raises the one user-visible sync event: an entry exhausting
// its retry budget. Everything else in the sync path stays silent.
package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// LogNotifier is the headless default.
type LogNotifier struct{}

func (LogNotifier) SyncFailed(ctx context.Context, entityType, entityID string) {
	log.Printf("sync permanently failed for %s %s; operator clearing required", entityType, entityID)
}

// FCMNotifier pushes the failure to the user's device via Firebase Cloud
// Messaging. Send errors are logged, not propagated: notification delivery
// is itself best-effort.
type FCMNotifier struct {
	client      *messaging.Client
	deviceToken string
}

func NewFCMNotifier(ctx context.Context, app *firebase.App, deviceToken string) (*FCMNotifier, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}
	return &FCMNotifier{
		client:      client,
		deviceToken: deviceToken,
	}, nil
}

func (n *FCMNotifier) SyncFailed(ctx context.Context, entityType, entityID string) {
	msg := &messaging.Message{
		Token: n.deviceToken,
		Notification: &messaging.Notification{
			Title: "Workout sync failed",
			Body:  fmt.Sprintf("Could not sync %s %s after several attempts.", entityType, entityID),
		},
	}
	if _, err := n.client.Send(ctx, msg); err != nil {
		log.Printf("failed to push sync-failure notification: %v", err)
	}
}

// InitFirebase initializes the Firebase Admin SDK from environment-shaped
// credentials (private key arrives base64 encoded).
func InitFirebase(projectID, privateKeyB64, clientEmail string) (*firebase.App, error) {
	privateKey, err := base64.StdEncoding.DecodeString(privateKeyB64)
	if err != nil {
		return nil, err
	}

	credentialsJSON, err := json.Marshal(map[string]interface{}{
		"type":         "service_account",
		"project_id":   projectID,
		"private_key":  string(privateKey),
		"client_email": clientEmail,
	})
	if err != nil {
		return nil, err
	}

	app, err := firebase.NewApp(context.Background(), nil, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, err
	}
	return app, nil
}
