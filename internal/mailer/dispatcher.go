// Package mailer renders task reminders and hands them to a mail transport.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/todoapp/todo-reminder-api/internal/models"
	"go.uber.org/zap"
)

// ErrDispatch wraps every failure to render or submit a reminder.
var ErrDispatch = errors.New("reminder dispatch failed")

// Recipient is one user's group of due tasks.
type Recipient struct {
	Email string
	Name  string
	Tasks []models.Task
}

// Failure records one recipient that could not be reached.
type Failure struct {
	Email string
	Err   error
}

// Report summarises a batch.
type Report struct {
	Sent   int
	Failed []Failure
}

// Dispatcher turns recipients into messages on a shared transport.
type Dispatcher struct {
	transport   Transport
	fromAddress string
	fromName    string
	loc         *time.Location
	log         *zap.Logger
}

func NewDispatcher(transport Transport, fromAddress, fromName string, loc *time.Location, log *zap.Logger) *Dispatcher {
	if loc == nil {
		loc = time.Local
	}
	return &Dispatcher{
		transport:   transport,
		fromAddress: fromAddress,
		fromName:    fromName,
		loc:         loc,
		log:         log,
	}
}

// Send delivers one reminder. Errors wrap ErrDispatch.
func (d *Dispatcher) Send(ctx context.Context, to Recipient) error {
	if len(to.Tasks) == 0 {
		return nil
	}

	html, text, err := Render(to.Name, to.Tasks, d.loc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatch, err)
	}

	msg := Message{
		FromAddress: d.fromAddress,
		FromName:    d.fromName,
		To:          to.Email,
		Subject:     Subject,
		HTML:        html,
		Text:        text,
	}
	if err := d.transport.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDispatch, err)
	}

	d.log.Info("reminder sent", zap.String("to", to.Email), zap.Int("tasks", len(to.Tasks)))
	return nil
}

// SendBatch attempts every recipient in order. A failure is logged and
// recorded, and never stops the remaining sends. A cancelled context marks
// the rest as failed without contacting the transport.
func (d *Dispatcher) SendBatch(ctx context.Context, recipients []Recipient) Report {
	var report Report
	for _, r := range recipients {
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, Failure{Email: r.Email, Err: fmt.Errorf("%w: %v", ErrDispatch, err)})
			continue
		}
		if err := d.Send(ctx, r); err != nil {
			d.log.Error("reminder failed", zap.String("to", r.Email), zap.Error(err))
			report.Failed = append(report.Failed, Failure{Email: r.Email, Err: err})
			continue
		}
		report.Sent++
	}
	return report
}
