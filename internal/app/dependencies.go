package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/projtrack/tracker/internal/config"
	"github.com/projtrack/tracker/internal/event_bus"
	"github.com/projtrack/tracker/internal/mail"
	"github.com/projtrack/tracker/internal/observability"
	"github.com/projtrack/tracker/internal/utils"
	"github.com/projtrack/tracker/pkg/activity"
	"github.com/projtrack/tracker/pkg/challenge"
	"github.com/projtrack/tracker/pkg/user"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus
	Mailer   mail.Mailer

	Tokens             *user.Tokens
	ConfirmationSender *user.ConfirmationSender
	UserService        user.Service
	UserHandler        *user.Handler

	ActivityRepo    activity.Repository
	ActivityService activity.Service
	ActivityHandler *activity.Handler

	ChallengeRepo    challenge.Repository
	ChallengeService challenge.Service
	ChallengeHandler *challenge.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus()
	deps.Mailer = mail.New(cfg.SMTP)
	observability.Subscribe(deps.EventBus)

	deps.Tokens = user.NewTokens(cfg.Auth.Secret, cfg.Auth.ConfirmationTTL, deps.Clock)
	deps.ConfirmationSender = user.NewConfirmationSender(deps.Tokens, deps.Mailer, cfg.Host)
	deps.ConfirmationSender.Subscribe(deps.EventBus)
	deps.UserService = user.NewUserService(user.NewUserRepo(db), deps.EventBus, deps.Tokens, deps.Clock, user.Options{
		AdminEmail: cfg.Auth.AdminEmail,
		SessionTTL: cfg.Session.TTL,
	})
	deps.UserHandler = user.NewHandler(deps.UserService, cfg.Session)

	deps.ChallengeRepo = challenge.NewRepository(db)
	deps.ChallengeService = challenge.NewService(deps.ChallengeRepo, deps.EventBus)
	deps.ChallengeHandler = challenge.NewHandler(deps.ChallengeService, cfg.Upload.MaxBytes)

	deps.ActivityRepo = activity.NewRepository(db)
	deps.ActivityService = activity.NewService(deps.ActivityRepo, deps.EventBus)
	deps.ActivityHandler = activity.NewHandler(deps.ActivityService, deps.ChallengeHandler.Table, cfg.Upload.MaxBytes)

	return deps
}
