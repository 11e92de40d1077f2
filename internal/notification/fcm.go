package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMService delivers streak-confirmation warnings to user devices.
type FCMService struct {
	client *messaging.Client
}

// NewFCMService initializes the Firebase messaging client. Credentials come
// from the FCM_SERVICE_ACCOUNT_JSON environment variable (Base64 encoded),
// with a local service account key file as fallback.
func NewFCMService(localFilePath string) (*FCMService, error) {
	var opt option.ClientOption

	encodedCreds := os.Getenv("FCM_SERVICE_ACCOUNT_JSON")
	if encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials from FCM_SERVICE_ACCOUNT_JSON: %v", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		log.Println("FCM Service: Initializing from FCM_SERVICE_ACCOUNT_JSON environment variable.")
	} else {
		if _, err := os.Stat(localFilePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("local firebase file not found: %s, and FCM_SERVICE_ACCOUNT_JSON environment variable is not set", localFilePath)
		}
		opt = option.WithCredentialsFile(localFilePath)
		log.Printf("FCM Service: Initializing from local file: %s.", localFilePath)
	}

	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %v", err)
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %v", err)
	}

	return &FCMService{client: client}, nil
}

// SendPush delivers one notification to each token, individually. A token
// that fails is logged and skipped; the call fails only when every token
// failed.
func (s *FCMService) SendPush(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	successCount := 0
	failureCount := 0

	for _, token := range tokens {
		message := &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
				Notification: &messaging.AndroidNotification{
					Sound: "default",
				},
			},
		}

		if _, err := s.client.Send(ctx, message); err != nil {
			log.Printf("FCM: Failed to send to token %s: %v", token, err)
			failureCount++
		} else {
			successCount++
		}
	}

	if successCount == 0 && failureCount > 0 {
		return fmt.Errorf("all push notifications failed")
	}
	return nil
}

// SendStreakWarning is the confirmation nudge the sweeper sends once a streak
// has gone unconfirmed past the warning threshold.
func (s *FCMService) SendStreakWarning(ctx context.Context, tokens []string, hoursLeft int) error {
	body := fmt.Sprintf("Your streak resets in about %d hours. Open the app and confirm you're still going.", hoursLeft)
	return s.SendPush(ctx, tokens, "Your streak needs a check-in", body, map[string]string{
		"type": "streak_warning",
	})
}
