package cli

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"techkwiz-quiz-service/internal/app"
	"techkwiz-quiz-service/internal/config"
	"techkwiz-quiz-service/internal/questionbank"
	"techkwiz-quiz-service/internal/questions"
	"techkwiz-quiz-service/internal/reward"
	transport "techkwiz-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	bank, err := questionbank.Load()
	if err != nil {
		return err
	}
	service := newQuizService(cfg, bank, store, logger)
	router := transport.NewRouter(logger, service, store.checks)
	srv := transport.NewServer(net.JoinHostPort("", finalPort), logger, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting quiz service", "port", finalPort, "driver", cfg.Storage.Driver)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func newQuizService(cfg config.Config, bank *questionbank.Bank, store *storage, logger *slog.Logger) *app.QuizService {
	var rewards reward.Config
	rewards.Coins.Correct = cfg.Rewards.Correct
	rewards.Coins.Bonus = cfg.Rewards.Bonus
	rewards.Streak.Value = cfg.Rewards.StreakValue
	rewards.Streak.Window = cfg.Rewards.StreakWindow
	calc := reward.NewCalculator(rewards, bank)

	resolver := questions.NewResolver(store.kv, bank, logger, config.TTLDuration(cfg.Quiz.CacheTTL, 5*time.Minute))

	return app.NewQuizService(app.Dependencies{
		Sessions:   store.sessions,
		Questions:  resolver,
		Catalog:    bank,
		Users:      app.NewUserStore(store.kv, logger, cfg.Users.StartingCoins),
		Progress:   app.NewProgressStore(store.kv),
		Calculator: calc,
		Scheduler:  app.RealScheduler{},
		Logger:     logger,
	}, app.Options{
		HomepageCategory: cfg.Quiz.HomepageCategory,
		HomepageCount:    cfg.Quiz.HomepageCount,
		CategoryCount:    cfg.Quiz.CategoryCount,
		DefaultEntryFee:  cfg.Quiz.DefaultEntryFee,
		Progression: app.ProgressionOptions{
			QuestionTimeout: config.TTLDuration(cfg.Quiz.QuestionTimeout, 30*time.Second),
			RevealDelay:     config.TTLDuration(cfg.Quiz.RevealDelay, time.Second),
			AutoAdvance:     cfg.Quiz.AutoAdvanceEnabled(),
		},
	})
}
