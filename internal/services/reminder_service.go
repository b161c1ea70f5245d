package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/todoapp/todo-reminder-api/internal/mailer"
	"github.com/todoapp/todo-reminder-api/internal/models"
	"github.com/todoapp/todo-reminder-api/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrReminderDispatch = errors.New("failed to send reminder")
)

// Sender is the part of the dispatcher the reminder service needs.
type Sender interface {
	Send(ctx context.Context, to mailer.Recipient) error
	SendBatch(ctx context.Context, recipients []mailer.Recipient) mailer.Report
}

// ReminderService selects incomplete tasks due today and hands them, grouped
// per owner, to the dispatcher.
type ReminderService struct {
	taskRepo repository.TaskRepository
	sender   Sender
	loc      *time.Location
	log      *zap.Logger
}

func NewReminderService(taskRepo repository.TaskRepository, sender Sender, loc *time.Location, log *zap.Logger) *ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderService{
		taskRepo: taskRepo,
		sender:   sender,
		loc:      loc,
		log:      log,
	}
}

// DueWindow returns the first and last millisecond of now's calendar day in
// loc. Midnight belongs to the day it starts.
func DueWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
	return start, end
}

// SelectDue groups every user's due tasks. Users without due tasks are absent.
func (s *ReminderService) SelectDue(ctx context.Context, now time.Time) ([]mailer.Recipient, error) {
	return s.selectDue(ctx, now, nil)
}

// SelectDueForUser is SelectDue scoped to one owner.
func (s *ReminderService) SelectDueForUser(ctx context.Context, userID string, now time.Time) ([]mailer.Recipient, error) {
	return s.selectDue(ctx, now, &userID)
}

func (s *ReminderService) selectDue(ctx context.Context, now time.Time, ownerID *string) ([]mailer.Recipient, error) {
	start, end := DueWindow(now, s.loc)

	tasks, err := s.taskRepo.FindDueWithin(ctx, start, end, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select due tasks: %w", err)
	}
	return s.group(tasks), nil
}

// group keeps store order: groups in order of first appearance and tasks in
// the order they arrived.
func (s *ReminderService) group(tasks []models.Task) []mailer.Recipient {
	index := map[string]int{}
	recipients := []mailer.Recipient{}

	for _, t := range tasks {
		email := t.User.Email
		if email == "" {
			s.log.Warn("skipping due task without a reachable owner",
				zap.String("task_id", t.ID),
				zap.String("user_id", t.UserID),
			)
			continue
		}

		i, ok := index[email]
		if !ok {
			i = len(recipients)
			index[email] = i
			recipients = append(recipients, mailer.Recipient{Email: email, Name: t.User.Name})
		}
		recipients[i].Tasks = append(recipients[i].Tasks, t)
	}
	return recipients
}

// RunBatch is the scheduled path: select across users and send to each.
// Individual delivery failures are in the report, not the error.
func (s *ReminderService) RunBatch(ctx context.Context, now time.Time) (mailer.Report, error) {
	recipients, err := s.SelectDue(ctx, now)
	if err != nil {
		return mailer.Report{}, err
	}
	if len(recipients) == 0 {
		s.log.Info("no tasks due today")
		return mailer.Report{}, nil
	}

	report := s.sender.SendBatch(ctx, recipients)
	s.log.Info("reminder batch finished",
		zap.Int("recipients", len(recipients)),
		zap.Int("sent", report.Sent),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

// SendNow is the manual path for one user. It returns the number of tasks
// included; zero means nothing was due and nothing was sent.
func (s *ReminderService) SendNow(ctx context.Context, userID string, now time.Time) (int, error) {
	recipients, err := s.SelectDueForUser(ctx, userID, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, r := range recipients {
		if err := s.sender.Send(ctx, r); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrReminderDispatch, err)
		}
		count += len(r.Tasks)
	}
	return count, nil
}
