package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/todoapp/todo-reminder-api/internal/config"
	"github.com/todoapp/todo-reminder-api/internal/database"
	"github.com/todoapp/todo-reminder-api/internal/handlers"
	"github.com/todoapp/todo-reminder-api/internal/mailer"
	"github.com/todoapp/todo-reminder-api/internal/repository"
	"github.com/todoapp/todo-reminder-api/internal/repository/mongostore"
	"github.com/todoapp/todo-reminder-api/internal/router"
	"github.com/todoapp/todo-reminder-api/internal/scheduler"
	"github.com/todoapp/todo-reminder-api/internal/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	storeConnectTimeout = 30 * time.Second
	mailVerifyTimeout   = 15 * time.Second
	smtpTimeout         = 30 * time.Second
)

// stores is the selected backend. close releases it.
type stores struct {
	tasks repository.TaskRepository
	users repository.UserRepository
	close func(ctx context.Context) error
}

// openStores connects to the configured backend and brings its schema up to
// date.
func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	if cfg.Database.Driver == "mongodb" {
		ctx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
		defer cancel()

		store, err := mongostore.Connect(ctx, cfg.GetDatabaseDSN(), cfg.Database.Name)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(context.Background())
			return nil, err
		}
		log.Info("connected to mongodb", zap.String("database", cfg.Database.Name))
		return &stores{tasks: store.Tasks(), users: store.Users(), close: store.Close}, nil
	}

	if err := database.Connect(cfg, log); err != nil {
		return nil, err
	}
	if err := database.Migrate(log); err != nil {
		_ = database.Close()
		return nil, err
	}
	db := database.GetDB()
	return &stores{
		tasks: repository.NewTaskRepository(db),
		users: repository.NewUserRepository(db),
		close: func(context.Context) error { return database.Close() },
	}, nil
}

// newTransport returns the SMTP relay when configured, otherwise a transport
// that only logs. A failed verification is logged and not fatal.
func newTransport(ctx context.Context, cfg *config.Config, log *zap.Logger) mailer.Transport {
	if !cfg.MailConfigured() {
		log.Warn("EMAIL_HOST, EMAIL_USER or EMAIL_PASS not set, reminder emails will only be logged")
		return mailer.LogTransport{Log: log}
	}

	transport := mailer.NewSMTPTransport(mailer.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.User,
		Password: cfg.Mail.Password,
		Timeout:  smtpTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, mailVerifyTimeout)
	defer cancel()
	if err := transport.Verify(ctx); err != nil {
		log.Warn("mail relay verification failed", zap.String("host", cfg.Mail.Host), zap.Error(err))
	} else {
		log.Info("mail relay ready", zap.String("host", cfg.Mail.Host), zap.Int("port", cfg.Mail.Port))
	}
	return transport
}

// newTrigger builds the scheduler around a reminder batch. The Redis day
// guard is attached only when REDIS_ADDR is set; the returned cleanup closes
// the client.
func newTrigger(cfg *config.Config, log *zap.Logger, reminders *services.ReminderService, report *mailer.Report) (*scheduler.Trigger, func(), error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	job := func(ctx context.Context) error {
		r, err := reminders.RunBatch(ctx, time.Now())
		if report != nil {
			*report = r
		}
		return err
	}

	opts := []scheduler.Option{
		scheduler.WithRunTimeout(cfg.Reminder.RunTimeout),
		scheduler.WithLogger(log),
	}
	cleanup := func() {}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts = append(opts, scheduler.WithGuard(scheduler.NewRedisGuard(client)))
		cleanup = func() { _ = client.Close() }
	}

	trigger, err := scheduler.New(cfg.Reminder.Cron, loc, job, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return trigger, cleanup, nil
}

func (c *cli) serve(ctx context.Context) error {
	cfg, log := c.cfg, c.log

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		return err
	}
	defer func() {
		if err := st.close(context.Background()); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()

	transport := newTransport(ctx, cfg, log)
	defer func() {
		if err := transport.Close(); err != nil {
			log.Warn("failed to close mail transport", zap.Error(err))
		}
	}()

	tokens := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	dispatcher := mailer.NewDispatcher(transport, cfg.Mail.From, cfg.Mail.FromName, loc, log)
	reminders := services.NewReminderService(st.tasks, dispatcher, loc, log)

	engine := router.New(cfg, log, tokens, router.Handlers{
		Auth:     handlers.NewAuthHandler(services.NewAuthService(st.users, tokens, cfg.Auth.BCryptCost), log),
		Task:     handlers.NewTaskHandler(services.NewTaskService(st.tasks, loc), log),
		Reminder: handlers.NewReminderHandler(reminders, time.Now, log),
		Health:   handlers.NewHealthHandler(st.tasks, log),
	})

	srv := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var trigger *scheduler.Trigger
	if cfg.Reminder.Enabled {
		t, cleanup, err := newTrigger(cfg, log, reminders, nil)
		if err != nil {
			return err
		}
		defer cleanup()
		trigger = t
		trigger.Start()
	} else {
		log.Info("reminder scheduler disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if trigger != nil {
			if err := trigger.Stop(shutdownCtx); err != nil {
				log.Warn("reminder scheduler did not stop cleanly", zap.Error(err))
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// remind runs one batch now, ignoring the day guard, and fails when any
// recipient could not be reached.
func (c *cli) remind(ctx context.Context, cmd *cobra.Command) error {
	cfg, log := c.cfg, c.log

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.close(context.Background()) }()

	transport := newTransport(ctx, cfg, log)
	defer func() { _ = transport.Close() }()

	dispatcher := mailer.NewDispatcher(transport, cfg.Mail.From, cfg.Mail.FromName, loc, log)
	reminders := services.NewReminderService(st.tasks, dispatcher, loc, log)

	var report mailer.Report
	trigger, cleanup, err := newTrigger(cfg, log, reminders, &report)
	if err != nil {
		return err
	}
	defer cleanup()
	defer func() { _ = trigger.Stop(context.Background()) }()

	if err := trigger.RunNow(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "reminders sent: %d, failed: %d\n", report.Sent, len(report.Failed))
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d reminder(s) could not be delivered", len(report.Failed))
	}
	return nil
}

func (c *cli) migrate(ctx context.Context) error {
	st, err := openStores(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	c.log.Info("store schema up to date", zap.String("driver", c.cfg.Database.Driver))
	return st.close(context.Background())
}
