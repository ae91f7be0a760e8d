// Package main provides the campaignflow API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/campaignflow/pkg/eventbus"
	"github.com/dukex/campaignflow/pkg/events"
	"github.com/dukex/campaignflow/pkg/persistence"
	"github.com/dukex/campaignflow/pkg/registry"
	"github.com/dukex/campaignflow/pkg/services"
	"github.com/dukex/campaignflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		persistence: persistence,
		logger:      logger,
		registry:    registry,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	opts := []services.CampaignOption{services.WithLogger(a.logger)}
	if a.eventBus != nil {
		opts = append(opts, services.WithPublisher(a.eventBus))
	}

	campaignService := services.NewCampaign(a.persistence, opts...)
	nodeService := services.NewNode(campaignService, a.registry, nil)

	handlers := web.NewAPIHandlers(campaignService, nodeService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			_, ok := campaignService.HealthCheck(c.Context())

			return ok
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Campaignflow API")
	})

	handlers.RegisterRoutes(app)

	return app
}

// SubscribeEvents logs every campaign lifecycle event seen on the bus.
func (a *API) SubscribeEvents(ctx context.Context) error {
	if a.eventBus == nil {
		return nil
	}

	for _, eventType := range []events.EventType{
		events.CampaignSavedEvent,
		events.CampaignDeletedEvent,
		events.CampaignRenamedEvent,
		events.CampaignValidatedEvent,
	} {
		err := a.eventBus.Handle(eventType, a.logEvent)
		if err != nil {
			return err
		}
	}

	return a.eventBus.Subscribe(ctx)
}

func (a *API) logEvent(ctx context.Context, event any) error {
	typed, ok := event.(eventbus.Event)
	if !ok {
		return nil
	}

	a.logger.InfoContext(ctx, "Campaign event received", "event_type", typed.GetType(), "event", event)

	return nil
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
