package session

import "fmt"

// NotificationKind distinguishes toasts shown to the player.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Fixed player-facing messages. Provider error detail never appears here.
const (
	TitleEnvironmentFailed   = "Error Creating Nightmare"
	MsgEnvironmentFailed     = "Failed to conjure a nightmare. Please try again."
	TitleObjectiveFailed     = "Error Devising Fate"
	MsgObjectiveFailed       = "Failed to devise a twisted fate. Please try again."
	TitleObjectiveComplete   = "Objective Complete!"
	rewardDescriptionPattern = "You've been rewarded with: %s"
)

// Notification is a user-visible message emitted by a game operation.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
}

func EnvironmentFailed() Notification {
	return Notification{Kind: NotificationError, Title: TitleEnvironmentFailed, Description: MsgEnvironmentFailed}
}

func ObjectiveFailed() Notification {
	return Notification{Kind: NotificationError, Title: TitleObjectiveFailed, Description: MsgObjectiveFailed}
}

// ObjectiveCompleted names the reward that was just awarded.
func ObjectiveCompleted(reward string) Notification {
	return Notification{
		Kind:        NotificationSuccess,
		Title:       TitleObjectiveComplete,
		Description: fmt.Sprintf(rewardDescriptionPattern, reward),
	}
}
