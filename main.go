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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"citizenconnect/config"
	"citizenconnect/controllers"
	"citizenconnect/logging"
	"citizenconnect/models"
	"citizenconnect/notify"
	"citizenconnect/regions"
	"citizenconnect/repository"
	"citizenconnect/routes"
	"citizenconnect/targeting"
	"citizenconnect/workflow"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "citizenconnect",
		Short:         "CitizenConnect issue and announcement API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(serveCmd(), migrateCmd(), audienceCmd())
	return cmd
}

// setup loads configuration and initializes logging.
func setup() config.Config {
	cfg, found := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stdout})
	if !found {
		logging.Debug().Msg("no .env file found")
	}
	return cfg
}

func loadEncoder(path string) (*targeting.Encoder, error) {
	if path == "" {
		return targeting.NewEncoder(nil), nil
	}
	dir, err := regions.Load(path)
	if err != nil {
		return nil, err
	}
	logging.Info().
		Add(logging.Str("file", path)).
		Add(logging.Int("districts", dir.Districts())).
		Msg("administrative areas loaded")
	return targeting.NewEncoder(dir), nil
}

func serveCmd() *cobra.Command {
	var memory bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, setup(), memory)
		},
	}
	cmd.Flags().BoolVar(&memory, "memory", false, "Keep all data in memory instead of MongoDB")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, memory bool) error {
	var stores repository.Stores
	if memory {
		logging.Warn().Msg("using in-memory stores; data is lost on exit")
		stores = repository.NewMemoryStores()
	} else {
		client, db, err := config.ConnectDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		logging.Info().Add(logging.Str("database", cfg.MongoDatabase)).Msg("MongoDB connection established")
		stores = repository.NewMongoStores(db)
	}
	stores.Leaders = repository.NewCachedLeaderStore(stores.Leaders, cfg.LeaderCacheTTL)

	if cfg.AdminEmail != "" {
		created, err := repository.EnsureAdmin(ctx, stores.Users, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			logging.Info().Add(logging.Str("email", cfg.AdminEmail)).Msg("admin account created")
		}
	}

	var rdb *redis.Client
	if cfg.RedisAddress != "" {
		client, err := config.ConnectRedis(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		rdb = client
	} else {
		logging.Warn().Msg("REDIS_ADDRESS not set; issue rate limit disabled")
	}

	var publisher notify.Publisher = notify.Nop{}
	if cfg.NATSURL != "" {
		p, err := notify.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		publisher = p
	}
	defer publisher.Close()

	encoder, err := loadEncoder(cfg.RegionsFile)
	if err != nil {
		return err
	}
	engine, err := workflow.NewEngine()
	if err != nil {
		return err
	}

	h := controllers.NewHandler(stores, workflow.NewService(stores.Issues, engine), encoder, publisher, cfg)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	routes.Setup(r, h, cfg, rdb)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Add(logging.Str("port", cfg.Port)).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create MongoDB indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := setup()
			client, db, err := config.ConnectDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(context.Background()) }()

			if err := repository.EnsureIndexes(cmd.Context(), db); err != nil {
				return err
			}
			logging.Info().Add(logging.Str("database", cfg.MongoDatabase)).Msg("indexes ensured")
			return nil
		},
	}
}

func audienceCmd() *cobra.Command {
	var (
		leader      models.Leader
		level       string
		focus       targeting.Restriction
		focusLevel  string
		regionsFile string
	)

	cmd := &cobra.Command{
		Use:   "audience",
		Short: "Print the audience tags for a leader and an optional regional focus",
		Example: `  citizenconnect audience --level district --district Gasabo
  citizenconnect audience --level district --district Gasabo --focus-level cell --focus-sector Remera --focus-cell Rukiri`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := setup()
			if regionsFile == "" {
				regionsFile = cfg.RegionsFile
			}
			encoder, err := loadEncoder(regionsFile)
			if err != nil {
				return err
			}

			leader.Level = models.Level(level)
			if focusLevel != "" {
				focus.Enabled = true
				focus.Level = models.Level(focusLevel)
				if focus.District == "" {
					focus.District = leader.Location.District
				}
			}

			tags, err := encoder.Audience(&leader, focus)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, tag := range tags {
				fmt.Fprintln(out, tag)
			}
			c := targeting.Classify(tags)
			fmt.Fprintf(out, "district-wide=%t sector-wide=%t cell-specific=%t\n", c.DistrictWide, c.SectorWide, c.CellSpecific)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&level, "level", "district", "Leader level (district, sector, cell)")
	f.StringVar(&leader.Location.District, "district", "", "Leader district")
	f.StringVar(&leader.Location.Sector, "sector", "", "Leader sector")
	f.StringVar(&leader.Location.Cell, "cell", "", "Leader cell")
	f.StringVar(&focusLevel, "focus-level", "", "Regional focus level (sector or cell); empty for none")
	f.StringVar(&focus.District, "focus-district", "", "Regional focus district (defaults to the leader's)")
	f.StringVar(&focus.Sector, "focus-sector", "", "Regional focus sector")
	f.StringVar(&focus.Cell, "focus-cell", "", "Regional focus cell")
	f.StringVar(&regionsFile, "regions", "", "Administrative areas YAML file (defaults to REGIONS_FILE)")
	return cmd
}
