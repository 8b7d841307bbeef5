// Package scheduler - reminder scheduling engine
package scheduler

import (
	"fmt"
	"sync"
	"time"
)

// ReminderKey identifies one logical reminder: a (document, reminder
// timestamp) pair. Rescheduling a reminder produces a new key.
type ReminderKey string

// NewReminderKey derive the dedup key for one document reminder
func NewReminderKey(docID string, reminderAt time.Time) ReminderKey {
	return ReminderKey(fmt.Sprintf("%s@%s", docID, reminderAt.UTC().Format(time.RFC3339Nano)))
}

// SentLedger records which reminders have already produced a notification.
//
// The in-memory implementation does not survive process restarts and is not
// shared across scheduler instances; a horizontally scaled deployment must
// inject a durable implementation instead.
type SentLedger interface {
	/*
		AlreadySent check whether a reminder was already delivered

			@param key ReminderKey - the reminder dedup key
			@return true if a notification already went out for this key
	*/
	AlreadySent(key ReminderKey) bool

	/*
		MarkSent record a reminder as delivered

			@param key ReminderKey - the reminder dedup key
	*/
	MarkSent(key ReminderKey)
}

// memorySentLedger implements SentLedger with a process-lifetime set
type memorySentLedger struct {
	lock *sync.RWMutex
	sent map[ReminderKey]bool
}

// NewMemorySentLedger define an in-memory sent reminder ledger
func NewMemorySentLedger() SentLedger {
	return &memorySentLedger{lock: &sync.RWMutex{}, sent: make(map[ReminderKey]bool)}
}

func (l *memorySentLedger) AlreadySent(key ReminderKey) bool {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.sent[key]
}

func (l *memorySentLedger) MarkSent(key ReminderKey) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.sent[key] = true
}
