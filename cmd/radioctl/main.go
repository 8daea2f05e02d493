package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/radio-schedule-api/internal/models"
	"github.com/noah-isme/radio-schedule-api/internal/repository"
	"github.com/noah-isme/radio-schedule-api/internal/service"
	"github.com/noah-isme/radio-schedule-api/pkg/cache"
	"github.com/noah-isme/radio-schedule-api/pkg/config"
	"github.com/noah-isme/radio-schedule-api/pkg/database"
	"github.com/noah-isme/radio-schedule-api/pkg/logger"
	"github.com/noah-isme/radio-schedule-api/pkg/notify"
)

const dateLayout = "2006-01-02"

var rootCmd = &cobra.Command{
	Use:           "radioctl",
	Short:         "Radio schedule administration",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(fillCmd())
	rootCmd.AddCommand(overviewCmd())
	rootCmd.AddCommand(studiosCmd())
	rootCmd.AddCommand(userCreateCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type env struct {
	cfg    *config.Config
	db     *sqlx.DB
	cache  *service.CacheService
	logger *zap.Logger
}

func withEnv(ctx context.Context, fn func(context.Context, *env) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	cacheSvc, closeCache := scheduleCache(cfg, logr)
	defer closeCache()

	return fn(ctx, &env{cfg: cfg, db: db, cache: cacheSvc, logger: logr})
}

// scheduleCache connects to the API's Redis cache so CLI mutations invalidate the views it serves.
func scheduleCache(cfg *config.Config, logr *zap.Logger) (*service.CacheService, func()) {
	if !cfg.Scheduler.CacheEnabled {
		return nil, func() {}
	}
	client, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, cached schedule views expire on their own", zap.Error(err))
		return nil, func() {}
	}
	cacheRepo := repository.NewCacheRepository(client, logr)
	closeFn := func() {
		if err := cacheRepo.Close(); err != nil {
			logr.Debug("close redis", zap.Error(err))
		}
	}
	return service.NewCacheService(cacheRepo, nil, cfg.Scheduler.CacheTTL, logr, true), closeFn
}

func (e *env) scheduleService() *service.ScheduleService {
	repo := repository.NewContentRepository(e.db)
	return service.NewScheduleService(repo, repo, e.cache, service.NewMetricsService(), notify.NopPublisher{}, validator.New(), e.logger, service.ScheduleConfig{
		Location:         e.cfg.Station.Location(),
		MusicTitle:       e.cfg.Scheduler.MusicTitle,
		MusicGenre:       e.cfg.Scheduler.MusicGenre,
		StrictReschedule: e.cfg.Scheduler.StrictReschedule,
	})
}

func startDate(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return models.DayOf(time.Now(), loc), nil
	}
	date, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("--start must be formatted as YYYY-MM-DD: %w", err)
	}
	return date, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, e *env) error {
				if err := database.Migrate(ctx, e.db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

func fillCmd() *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill every gap of a week with music",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, e *env) error {
				svc := e.scheduleService()
				date, err := startDate(start, svc.Location())
				if err != nil {
					return err
				}
				added, err := svc.FillWithMusic(ctx, date)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %d music block(s) from %s\n", added, date.Format(dateLayout))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day of the week (YYYY-MM-DD, default today)")
	return cmd
}

func overviewCmd() *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Print the weekly schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, e *env) error {
				svc := e.scheduleService()
				date, err := startDate(start, svc.Location())
				if err != nil {
					return err
				}
				overview, err := svc.Overview(ctx, date)
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"Date", "Weekday", "Slot"})
				for _, day := range overview.Days {
					if len(day.Lines) == 0 {
						tw.AppendRow(table.Row{day.Date, day.Weekday, "-"})
					}
					for _, line := range day.Lines {
						tw.AppendRow(table.Row{day.Date, day.Weekday, line})
					}
					tw.AppendSeparator()
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day of the week (YYYY-MM-DD, default today)")
	return cmd
}

func studiosCmd() *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "studios",
		Short: "Show studio allocation for live sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, e *env) error {
				svc := e.scheduleService()
				date, err := startDate(start, svc.Location())
				if err != nil {
					return err
				}
				usage, err := svc.StudioSummary(ctx, date)
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Start", "Title", "Hosts", "Guests", "Studio"})
				for _, u := range usage {
					tw.AppendRow(table.Row{u.EventID, u.StartTime.In(svc.Location()).Format("Mon 02 Jan 15:04"), u.Title, u.HostCount, u.GuestCount, u.Summary})
				}
				tw.AppendFooter(table.Row{"", "", "", "", "Total", len(usage)})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day of the week (YYYY-MM-DD, default today)")
	return cmd
}

func userCreateCmd() *cobra.Command {
	var req service.CreateUserRequest
	var role string
	cmd := &cobra.Command{
		Use:   "user-create",
		Short: "Create an API user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, e *env) error {
				auth := service.NewAuthService(repository.NewUserRepository(e.db), validator.New(), e.logger, service.AuthConfig{
					AccessTokenSecret: e.cfg.JWT.Secret,
					AccessTokenExpiry: e.cfg.JWT.Expiration,
					Issuer:            e.cfg.JWT.Issuer,
				})
				req.Role = models.UserRole(role)
				user, err := auth.CreateUser(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", user.Role, user.Email, user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "login email")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "ADMIN or CONTRIBUTOR")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
