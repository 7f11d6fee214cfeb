package services

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// InitFirebase returns a messaging client, or nil when no service account is
// configured.
func InitFirebase(ctx context.Context, serviceAccountPath string) (*messaging.Client, error) {
	if serviceAccountPath == "" {
		log.Println("Warning: FIREBASE_SERVICE_ACCOUNT_PATH not set. Push notifications will be disabled.")
		return nil, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %v", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %v", err)
	}

	log.Println("Firebase Cloud Messaging initialized successfully")
	return client, nil
}

// PushNotifier sends events to the device token stored on each recipient.
type PushNotifier struct {
	sender messageSender
	users  UserStore
}

func NewPushNotifier(sender messageSender, users UserStore) *PushNotifier {
	return &PushNotifier{sender: sender, users: users}
}

func (p *PushNotifier) Notify(ctx context.Context, e Event) error {
	data := map[string]string{
		"type":   e.Type(),
		"domain": e.Domain,
		"id":     fmt.Sprintf("%d", e.ID),
		"status": e.Status,
	}
	for k, v := range e.Data {
		data[k] = fmt.Sprintf("%v", v)
	}

	var firstErr error
	for _, userID := range e.Recipients {
		user, err := p.users.GetByID(ctx, userID)
		if err != nil || user.FCMToken == "" {
			continue
		}
		_, err = p.sender.Send(ctx, &messaging.Message{
			Token: user.FCMToken,
			Notification: &messaging.Notification{
				Title: e.Title,
				Body:  e.Body,
			},
			Data: data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
				Notification: &messaging.AndroidNotification{
					ChannelID: "fleetshare_default",
					Tag:       fmt.Sprintf("%s_%d", e.Kind, e.ID),
				},
			},
		})
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("push to user %d: %w", userID, err)
		}
	}
	return firstErr
}
