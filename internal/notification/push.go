package notification

import (
	"context"
	"log"

	authrepo "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/repository"
	"github.com/jxuanl/spm-g2-little-farms-sub000/pkg/fcm"
)

// DeviceSender is the part of the FCM client the notifier uses
type DeviceSender interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// PushNotifier sends FCM notifications to every registered device of the
// addressed users and prunes tokens FCM rejects
type PushNotifier struct {
	fcmRepo authrepo.FCMTokenRepository
	sender  DeviceSender
}

func NewPushNotifier(fcmRepo authrepo.FCMTokenRepository, sender DeviceSender) *PushNotifier {
	return &PushNotifier{fcmRepo: fcmRepo, sender: sender}
}

func (n *PushNotifier) NotifyUsers(ctx context.Context, userIDs []string, msg Message) {
	var tokens []string
	seen := make(map[string]struct{})
	for _, userID := range userIDs {
		if _, ok := seen[userID]; ok || userID == "" {
			continue
		}
		seen[userID] = struct{}{}

		userTokens, err := n.fcmRepo.GetTokensByUserID(ctx, userID)
		if err != nil {
			log.Printf("[FCM] Error getting FCM tokens for user %s: %v", userID, err)
			continue
		}
		for _, t := range userTokens {
			tokens = append(tokens, t.Token)
		}
	}

	if len(tokens) == 0 {
		return
	}

	failedTokens, err := n.sender.SendToDevices(ctx, tokens, fcm.NotificationData{
		Title:       msg.Title,
		Body:        msg.Body,
		Data:        msg.Data,
		ClickAction: msg.ClickAction,
	})
	if err != nil {
		log.Printf("[FCM] Error sending notifications: %v", err)
		return
	}

	for _, token := range failedTokens {
		if err := n.fcmRepo.DeleteToken(ctx, token); err != nil {
			log.Printf("[FCM] Failed to remove stale token: %v", err)
		}
	}
}
