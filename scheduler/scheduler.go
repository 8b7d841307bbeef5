package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/kaviselvaram-dev/docvault/db"
	"github.com/kaviselvaram-dev/docvault/models"
	"github.com/kaviselvaram-dev/docvault/notify"
	"github.com/robfig/cron/v3"
)

// DefaultSweepInterval default period between reminder sweeps
const DefaultSweepInterval = time.Minute

// DefaultReminderWindow default reach of the sweep window on either side of now
const DefaultReminderWindow = time.Minute

/*
ReminderScheduler recurring background task that sweeps due reminders and
delegates delivery to the notification sink.

Sweeps never overlap: when a sweep is still running at the next tick, that
tick is skipped rather than queued, so a hung delivery delays at most its
own sweep. Delivery failures leave the reminder unmarked in the sent ledger;
it is retried on every later sweep whose window still covers the reminder
timestamp, and silently never sent once the window has passed.
*/
type ReminderScheduler interface {
	/*
		Start begin periodic reminder sweeps
	*/
	Start()

	/*
		Stop halt periodic reminder sweeps, waiting for a running sweep to finish

			@param ctx context.Context - execution context bounding the wait
	*/
	Stop(ctx context.Context) error

	/*
		Sweep perform one reminder pass

			@param ctx context.Context - execution context
			@param now time.Time - reference instant for the sweep window
	*/
	Sweep(ctx context.Context, now time.Time) error
}

// ReminderSchedulerParams reminder scheduler init parameters
type ReminderSchedulerParams struct {
	// Persistence persistence layer client
	Persistence db.Client `validate:"-"`
	// Sink outbound notification delivery
	Sink notify.Sink `validate:"-"`
	// Ledger sent reminder dedup ledger
	Ledger SentLedger `validate:"-"`
	// SweepInterval period between sweeps. Defaults to DefaultSweepInterval
	SweepInterval time.Duration
	// WindowBefore sweep window reach into the past. Defaults to DefaultReminderWindow
	WindowBefore time.Duration
	// WindowAfter sweep window reach into the future. Defaults to DefaultReminderWindow
	WindowAfter time.Duration
}

// reminderScheduler implements ReminderScheduler
type reminderScheduler struct {
	goutils.Component

	persistence db.Client
	sink        notify.Sink
	ledger      SentLedger

	windowBefore time.Duration
	windowAfter  time.Duration

	timer *cron.Cron
}

// cronToApexLogger adapts apex/log for the cron job runner
type cronToApexLogger struct {
	logTags log.Fields
}

func (l cronToApexLogger) Info(msg string, keysAndValues ...interface{}) {
	log.WithFields(l.logTags).Debugf("%s %v", msg, keysAndValues)
}

func (l cronToApexLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.WithError(err).WithFields(l.logTags).Errorf("%s %v", msg, keysAndValues)
}

/*
NewReminderScheduler define new reminder scheduler

	@param params ReminderSchedulerParams - scheduler parameters
	@returns scheduler instance
*/
func NewReminderScheduler(params ReminderSchedulerParams) (ReminderScheduler, error) {
	logTags := log.Fields{"module": "scheduler", "component": "reminder-scheduler"}

	if params.Persistence == nil || params.Sink == nil || params.Ledger == nil {
		return nil, fmt.Errorf("reminder scheduler needs persistence, sink, and ledger")
	}

	interval := params.SweepInterval
	if interval == 0 {
		interval = DefaultSweepInterval
	}
	windowBefore := params.WindowBefore
	if windowBefore == 0 {
		windowBefore = DefaultReminderWindow
	}
	windowAfter := params.WindowAfter
	if windowAfter == 0 {
		windowAfter = DefaultReminderWindow
	}

	instance := &reminderScheduler{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		persistence:  params.Persistence,
		sink:         params.Sink,
		ledger:       params.Ledger,
		windowBefore: windowBefore,
		windowAfter:  windowAfter,
	}

	cronLogger := cronToApexLogger{logTags: logTags}
	instance.timer = cron.New(
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := instance.timer.AddFunc(
		fmt.Sprintf("@every %s", interval), instance.timedSweep,
	); err != nil {
		return nil, fmt.Errorf("failed to schedule reminder sweep [%w]", err)
	}

	return instance, nil
}

// timedSweep entry point for the recurring timer
func (s *reminderScheduler) timedSweep() {
	ctx := context.Background()
	if err := s.Sweep(ctx, time.Now().UTC()); err != nil {
		log.WithError(err).WithFields(s.LogTags).Error("Reminder sweep failed")
	}
}

/*
Start begin periodic reminder sweeps
*/
func (s *reminderScheduler) Start() {
	s.timer.Start()
	log.WithFields(s.LogTags).Info("Reminder scheduler started")
}

/*
Stop halt periodic reminder sweeps, waiting for a running sweep to finish

	@param ctx context.Context - execution context bounding the wait
*/
func (s *reminderScheduler) Stop(ctx context.Context) error {
	stopCtx := s.timer.Stop()
	select {
	case <-stopCtx.Done():
		log.WithFields(s.LogTags).Info("Reminder scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("gave up waiting for running reminder sweep [%w]", ctx.Err())
	}
}

/*
Sweep perform one reminder pass

	@param ctx context.Context - execution context
	@param now time.Time - reference instant for the sweep window
*/
func (s *reminderScheduler) Sweep(ctx context.Context, now time.Time) error {
	logTags := s.GetLogTagsForContext(ctx)

	var candidates []models.Document
	if dbErr := s.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			candidates, err = dbClient.ListDocumentsWithDueReminders(
				dbCtx, now, s.windowBefore, s.windowAfter,
			)
			return err
		},
	); dbErr != nil {
		return fmt.Errorf("failed to query due reminders [%w]", dbErr)
	}

	// One candidate's failure must not abort the remainder of the sweep
	for _, doc := range candidates {
		if doc.ReminderAt == nil {
			continue
		}
		if err := s.processCandidate(ctx, doc); err != nil {
			log.WithError(err).WithFields(logTags).
				WithField("document_id", doc.ID).
				Error("Reminder delivery failed, will retry while window lasts")
		}
	}

	return nil
}

// processCandidate deliver the reminder for one due document
func (s *reminderScheduler) processCandidate(ctx context.Context, doc models.Document) error {
	logTags := s.GetLogTagsForContext(ctx)

	key := NewReminderKey(doc.ID, *doc.ReminderAt)
	if s.ledger.AlreadySent(key) {
		return nil
	}

	// Resolve the owner for delivery
	var owner models.User
	if dbErr := s.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			owner, err = dbClient.GetUser(dbCtx, doc.OwnerID)
			return err
		},
	); dbErr != nil {
		// Anomaly: the registry row points at a missing user. Skip the entry.
		log.WithError(dbErr).WithFields(logTags).
			WithField("document_id", doc.ID).
			WithField("owner_id", doc.OwnerID).
			Warn("Skipping reminder for document with unresolvable owner")
		return nil
	}

	expiry := "N/A"
	if doc.ExpiryDate != nil {
		expiry = doc.ExpiryDate.Format("2006-01-02")
	}
	subject := fmt.Sprintf("Reminder: %s", doc.Filename)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour document '%s' is due soon.\nExpiry Date: %s\n",
		owner.Email, doc.Filename, expiry,
	)

	if err := s.sink.Send(ctx, owner.Email, subject, body); err != nil {
		// Leave the ledger untouched so the next sweep inside the window retries
		return fmt.Errorf("notification sink rejected reminder for %s [%w]", doc.ID, err)
	}

	s.ledger.MarkSent(key)

	if dbErr := s.persistence.UseDatabaseInTransaction(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			_, err := dbClient.RecordAuditEvent(
				dbCtx, owner.ID, models.AuditActionReminderSent,
				models.AuditEventDocumentRelated{DocumentID: doc.ID, Filename: doc.Filename},
			)
			return err
		},
	); dbErr != nil {
		// The notification went out; failing to log it must not trigger a resend
		log.WithError(dbErr).WithFields(logTags).
			WithField("document_id", doc.ID).
			Error("Failed to record reminder audit event")
	}

	return nil
}
