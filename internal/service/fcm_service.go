package service

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FCMService sends push notifications via Firebase Cloud Messaging.
// A nil *FCMService is valid and sends nothing.
type FCMService struct {
	client *messaging.Client
	log    *zap.Logger
}

// NewFCMService returns nil if Firebase is not configured or fails to start.
func NewFCMService(ctx context.Context, credentialsFile string, log *zap.Logger) *FCMService {
	if credentialsFile == "" {
		return nil
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		log.Warn("fcm: init firebase app", zap.Error(err))
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		log.Warn("fcm: messaging client", zap.Error(err))
		return nil
	}
	return &FCMService{client: client, log: log}
}

// SendToUser pushes a notification to one device token.
func (s *FCMService) SendToUser(ctx context.Context, fcmToken, notifType, title, body string, data map[string]interface{}) error {
	if s == nil || fcmToken == "" {
		return nil
	}
	dataStr := map[string]string{"type": notifType}
	for k, v := range data {
		dataStr[k] = fmt.Sprint(v)
	}
	msg := &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:  dataStr,
		Token: fcmToken,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
	if _, err := s.client.Send(ctx, msg); err != nil {
		s.log.Warn("fcm: send", zap.String("type", notifType), zap.Error(err))
		return err
	}
	return nil
}
