package cmd

import (
	"context"
	"fmt"
	"go/types"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cmdUtils "github.com/hatchpay/offramp-backend/cmd/utils"
	"github.com/hatchpay/offramp-backend/db"
	"github.com/hatchpay/offramp-backend/internal/crashtracker"
	"github.com/hatchpay/offramp-backend/internal/data"
	"github.com/hatchpay/offramp-backend/internal/message"
	"github.com/hatchpay/offramp-backend/internal/monitor"
	"github.com/hatchpay/offramp-backend/internal/notifier"
	"github.com/hatchpay/offramp-backend/internal/provider"
	"github.com/hatchpay/offramp-backend/internal/serve"
	"github.com/hatchpay/offramp-backend/internal/verification"
)

type ServeCommand struct{}

type ServerServiceInterface interface {
	StartServe(ctx context.Context, opts serve.ServeOptions, httpServer serve.HTTPServerInterface)
}

type ServerService struct{}

// Making sure that ServerService implements ServerServiceInterface
var _ ServerServiceInterface = (*ServerService)(nil)

func (s *ServerService) StartServe(ctx context.Context, opts serve.ServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.Serve(ctx, opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting server: %s", err.Error())
	}
}

func (c *ServeCommand) Command(serverService ServerServiceInterface, monitorService monitor.MonitorServiceInterface) *cobra.Command {
	serveOpts := serve.ServeOptions{}
	engineCfg := verification.DefaultConfig()

	configOpts := cmdUtils.ConfigOptions{
		{
			Name:        "port",
			Usage:       "Port where the server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &serveOpts.Port,
			FlagDefault: 8000,
			Required:    true,
		},
	}

	// crash tracker options
	crashTrackerOptions := crashtracker.CrashTrackerOptions{}
	configOpts = append(configOpts, cmdUtils.CrashTrackerTypeConfigOption(&crashTrackerOptions.CrashTrackerType))

	// metrics options
	var metricType monitor.MetricType
	configOpts = append(configOpts,
		&cmdUtils.ConfigOption{
			Name:           "metrics-type",
			Usage:          `Metric monitor type. Options: "PROMETHEUS"`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionMetricType,
			ConfigKey:      &metricType,
			FlagDefault:    string(monitor.MetricTypePrometheus),
			Required:       true,
		})

	// messenger config options:
	messengerOptions := message.MessengerOptions{}
	configOpts = append(configOpts, cmdUtils.TwilioConfigOptions(&messengerOptions)...)
	configOpts = append(configOpts, cmdUtils.AWSConfigOptions(&messengerOptions)...)

	// sms
	var smsSenderType message.MessengerType
	configOpts = append(configOpts,
		&cmdUtils.ConfigOption{
			Name:           "sms-sender-type",
			Usage:          fmt.Sprintf("SMS Sender Type. Options: %+v", message.MessengerType("").ValidSMSTypes()),
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionMessengerType,
			ConfigKey:      &smsSenderType,
			FlagDefault:    string(message.MessengerTypeDryRun),
			Required:       true,
		})

	// email
	var emailSenderType message.MessengerType
	configOpts = append(configOpts,
		&cmdUtils.ConfigOption{
			Name:           "email-sender-type",
			Usage:          fmt.Sprintf("Email Sender Type. Options: %+v", message.MessengerType("").ValidEmailTypes()),
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionMessengerType,
			ConfigKey:      &emailSenderType,
			FlagDefault:    string(message.MessengerTypeDryRun),
			Required:       true,
		})

	// payment provider options:
	providerOptions := cmdUtils.ProviderOptions{}
	configOpts = append(configOpts, cmdUtils.ProviderConfigOptions(&providerOptions)...)

	// verification engine options:
	configOpts = append(configOpts, cmdUtils.VerificationEngineConfigOptions(&engineCfg)...)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HatchPay Off-Ramp API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmdUtils.PropagatePersistentPreRun(cmd, args)

			// Validate & ingest input parameters
			configOpts.Require()
			err := configOpts.SetValues()
			if err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}

			// Initializing monitor service
			metricOptions := monitor.MetricOptions{
				MetricType:  metricType,
				Environment: globalOptions.Environment,
			}
			err = monitorService.Start(metricOptions)
			if err != nil {
				log.Fatalf("Error creating monitor service: %s", err.Error())
			}

			// Inject crash tracker options dependencies
			globalOptions.PopulateCrashTrackerOptions(&crashTrackerOptions)

			// Inject server dependencies
			serveOpts.Environment = globalOptions.Environment
			serveOpts.GitCommit = globalOptions.GitCommit
			serveOpts.DatabaseDSN = globalOptions.DatabaseURL
			serveOpts.Version = globalOptions.Version
			serveOpts.MonitorService = monitorService
		},
		Run: func(cmd *cobra.Command, _ []string) {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Setup the Crash Tracker client
			crashTrackerClient, err := crashtracker.GetClient(ctx, crashTrackerOptions)
			if err != nil {
				log.WithContext(ctx).Fatalf("error creating crash tracker client: %s", err.Error())
			}
			serveOpts.CrashTrackerClient = crashTrackerClient

			// Setup the DB connection pool and the data models
			dbConnectionPool, err := db.OpenDBConnectionPoolWithMetrics(globalOptions.DatabaseURL, monitorService)
			if err != nil {
				log.WithContext(ctx).Fatalf("error connecting to the database: %s", err.Error())
			}
			defer func() {
				if closeErr := db.CloseConnectionPoolIfNeeded(ctx, dbConnectionPool); closeErr != nil {
					log.WithContext(ctx).Errorf("closing DB connection pool: %v", closeErr)
				}
			}()
			models, err := data.NewModels(dbConnectionPool)
			if err != nil {
				log.WithContext(ctx).Fatalf("error creating models: %s", err.Error())
			}
			serveOpts.DBConnectionPool = dbConnectionPool
			serveOpts.Models = models

			// Setup the message dispatcher with the Email and SMS clients
			dispatcher := message.NewMessageDispatcher()
			emailOptions := messengerOptions
			emailOptions.MessengerType = emailSenderType
			emailOptions.Environment = globalOptions.Environment
			emailClient, err := message.GetClient(emailOptions)
			if err != nil {
				log.WithContext(ctx).Fatalf("error creating email client: %s", err.Error())
			}
			dispatcher.RegisterClient(ctx, message.MessageChannelEmail, emailClient)

			smsOptions := messengerOptions
			smsOptions.MessengerType = smsSenderType
			smsOptions.Environment = globalOptions.Environment
			smsClient, err := message.GetClient(smsOptions)
			if err != nil {
				log.WithContext(ctx).Fatalf("error creating SMS client: %s", err.Error())
			}
			dispatcher.RegisterClient(ctx, message.MessageChannelSMS, smsClient)

			// Setup the notification sink
			emailNotifier, err := notifier.NewEmailNotifier(notifier.EmailNotifierOptions{
				Dispatcher:     dispatcher,
				ServiceName:    engineCfg.ServiceName,
				MonitorService: monitorService,
			})
			if err != nil {
				log.WithContext(ctx).Fatalf("error creating email notifier: %s", err.Error())
			}
			webhookNotifier, err := notifier.NewWebhookNotifier(notifier.WebhookNotifierOptions{
				ServiceName:    engineCfg.ServiceName,
				Timeout:        engineCfg.WebhookTimeout,
				MonitorService: monitorService,
			})
			if err != nil {
				log.WithContext(ctx).Fatalf("error creating webhook notifier: %s", err.Error())
			}

			// Setup the payment provider client with retries
			providerClient, err := provider.NewClient(provider.ClientOptions{
				BasePath:       providerOptions.BaseURL,
				AdminID:        providerOptions.AdminID,
				AdminSecret:    providerOptions.AdminSecret,
				Timeout:        engineCfg.ProviderTimeout,
				MonitorService: monitorService,
			})
			if err != nil {
				log.WithContext(ctx).Fatalf("error creating provider client: %s", err.Error())
			}
			retryingProvider := provider.NewRetryingClient(providerClient, provider.RetryConfig{
				InitialDelay: engineCfg.RetryInitialDelay,
				Multiplier:   engineCfg.RetryMultiplier,
				MaxDelay:     engineCfg.RetryMaxDelay,
				MaxAttempts:  engineCfg.RetryMaxAttempts,
			})

			// Setup the verification engine
			engine, err := verification.NewEngine(verification.EngineOptions{
				Config:         engineCfg,
				Store:          models.Transactions,
				AuditLogger:    models.AuditEvents,
				Provider:       retryingProvider,
				NotifySink:     notifier.NewNotifier(emailNotifier, webhookNotifier),
				MonitorService: monitorService,
				CrashTracker:   crashTrackerClient.Clone(),
			})
			if err != nil {
				log.WithContext(ctx).Fatalf("error creating verification engine: %s", err.Error())
			}
			serveOpts.Engine = engine

			// Start the engine (crash recovery + background sweep jobs)
			log.WithContext(ctx).Info("Starting Verification Engine...")
			if err = engine.Start(ctx); err != nil {
				log.WithContext(ctx).Fatalf("error starting verification engine: %s", err.Error())
			}
			defer func() {
				log.WithContext(ctx).Info("Stopping Verification Engine...")
				if stopErr := engine.Stop(); stopErr != nil {
					log.WithContext(ctx).Errorf("stopping verification engine: %v", stopErr)
				}
			}()

			// Starting Application Server
			log.WithContext(ctx).Info("Starting Application Server...")
			serverService.StartServe(ctx, serveOpts, &serve.HTTPServer{})
		},
	}
	err := configOpts.Init(cmd)
	if err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}
