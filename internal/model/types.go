package model

import "time"

// ReminderType enumerates the closed set of reminder schedules.
type ReminderType string

const (
	ReminderSingle  ReminderType = "single"
	ReminderDaily   ReminderType = "daily"
	ReminderWeekly  ReminderType = "weekly"
	ReminderMonthly ReminderType = "monthly"
	ReminderCustom  ReminderType = "custom"
)

// ValidReminderType reports whether t is one of the known reminder types.
func ValidReminderType(t ReminderType) bool {
	switch t {
	case ReminderSingle, ReminderDaily, ReminderWeekly, ReminderMonthly, ReminderCustom:
		return true
	}
	return false
}

// Record is a persisted text entity with an attached embedding. The embedding
// itself never leaves the store layer; Record deliberately has no vector field.
type Record struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"ownerId"`
	ConversationID *int64     `json:"conversationId,omitempty"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Category       string     `json:"category"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	Tags           []string   `json:"tags,omitempty"`
	Reminders      []Reminder `json:"reminders,omitempty"`
	CreationTime   time.Time  `json:"creationTime"`
	UpdateTime     time.Time  `json:"updateTime"`
}

// PrimaryText returns the text the record's embedding is computed from.
// Any change to it requires re-embedding; metadata edits do not.
func (r *Record) PrimaryText() string {
	if r.Title == "" {
		return r.Content
	}
	if r.Content == "" {
		return r.Title
	}
	return r.Title + "\n" + r.Content
}

// Reminder is a scheduled notification trigger owned by a Record. It is
// created active and unsent; marking it sent is its only terminal transition.
// Recurrence synthesis for daily/weekly/monthly types belongs to an external
// scheduler, not the store.
type Reminder struct {
	ID           string       `json:"id"`
	RecordID     string       `json:"recordId"`
	Type         ReminderType `json:"type"`
	ScheduledFor time.Time    `json:"scheduledFor"`
	Message      string       `json:"message,omitempty"`
	IsActive     bool         `json:"isActive"`
	IsSent       bool         `json:"isSent"`
	CreationTime time.Time    `json:"creationTime"`
	UpdateTime   time.Time    `json:"updateTime"`
}

// Due reports whether the reminder is eligible for delivery at now.
func (r *Reminder) Due(now time.Time) bool {
	return r.IsActive && !r.IsSent && !r.ScheduledFor.After(now)
}

// ReminderInput describes a reminder to attach on create/update. Every write
// that touches reminders replaces the record's full reminder set; each input
// becomes a fresh reminder with a new id in the active, unsent state.
type ReminderInput struct {
	Type         ReminderType `json:"type"`
	ScheduledFor time.Time    `json:"scheduledFor"`
	Message      string       `json:"message,omitempty"`
}

// RecordInput captures fields for creating a record. Unset enums receive the
// store schema's defaults.
type RecordInput struct {
	OwnerID        string          `json:"ownerId"`
	ConversationID *int64          `json:"conversationId,omitempty"`
	Title          string          `json:"title"`
	Content        string          `json:"content"`
	Category       string          `json:"category,omitempty"`
	Priority       string          `json:"priority,omitempty"`
	Status         string          `json:"status,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	Reminders      []ReminderInput `json:"reminders,omitempty"`
}

// RecordUpdate is a partial update; nil fields are left untouched.
// Supplying Title or Content triggers re-embedding. Tags and Reminders use
// the *Set flags to distinguish "replace with empty" from "leave alone".
type RecordUpdate struct {
	ConversationID *int64          `json:"conversationId,omitempty"`
	Title          *string         `json:"title,omitempty"`
	Content        *string         `json:"content,omitempty"`
	Category       *string         `json:"category,omitempty"`
	Priority       *string         `json:"priority,omitempty"`
	Status         *string         `json:"status,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	TagsSet        bool            `json:"-"`
	Reminders      []ReminderInput `json:"reminders,omitempty"`
	RemindersSet   bool            `json:"-"`
}

// TouchesPrimaryText reports whether applying u would change the fields the
// embedding is derived from.
func (u *RecordUpdate) TouchesPrimaryText() bool {
	return u.Title != nil || u.Content != nil
}

// Filter is a conjunction of optional equality / any-of predicates over
// record metadata. A zero Filter matches everything.
type Filter struct {
	OwnerID        string   `json:"ownerId,omitempty"`
	ConversationID *int64   `json:"conversationId,omitempty"`
	Category       string   `json:"category,omitempty"`
	Priority       string   `json:"priority,omitempty"`
	Status         string   `json:"status,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// IsZero reports whether no predicate is present.
func (f Filter) IsZero() bool {
	return f.OwnerID == "" && f.ConversationID == nil && f.Category == "" &&
		f.Priority == "" && f.Status == "" && len(f.Tags) == 0
}

// SearchOptions tune a similarity search.
type SearchOptions struct {
	Limit     int      `json:"limit,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Filter    Filter   `json:"filter,omitempty"`
}

// SearchResult pairs a record with its similarity score. Score is a cosine
// similarity in [0,1] (higher is better); Distance is always 1 - Score.
type SearchResult struct {
	Record   *Record `json:"record"`
	Score    float64 `json:"score"`
	Distance float64 `json:"distance"`
}
