package model

import "time"

// AdminUser is an operator allowed to manage the question bank.
type AdminUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Subscriber is an email address that asked for periodic reassessment reminders.
type Subscriber struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	CreatedAt      time.Time  `json:"created_at"`
	LastRemindedAt *time.Time `json:"last_reminded_at,omitempty"`
}

// ReminderBase returns the time the next reminder interval is measured from.
func (s Subscriber) ReminderBase() time.Time {
	if s.LastRemindedAt != nil {
		return *s.LastRemindedAt
	}
	return s.CreatedAt
}
