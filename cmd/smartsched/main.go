package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	naturaldate "github.com/tj/go-naturaldate"

	"github.com/waynehead99/SmartSchedular/internal/ai"
	"github.com/waynehead99/SmartSchedular/internal/calendar"
	"github.com/waynehead99/SmartSchedular/internal/config"
	"github.com/waynehead99/SmartSchedular/internal/logging"
	"github.com/waynehead99/SmartSchedular/internal/notify"
	"github.com/waynehead99/SmartSchedular/internal/schedule"
	"github.com/waynehead99/SmartSchedular/internal/server"
	"github.com/waynehead99/SmartSchedular/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "smartsched",
	Short: "Task scheduling assistant",
	Long:  "smartsched proposes conflict-free calendar slots for your backlog, ranked by priority, and books them on approval.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Print scheduling suggestions",
	RunE:  runSuggest,
}

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Book a suggested slot",
	RunE:  runApprove,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's committed intervals",
	RunE:  runStatus,
}

var importCmd = &cobra.Command{
	Use:   "import SOURCE",
	Short: "Import busy intervals from an iCalendar URL or file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	suggestCmd.Flags().Int("task", 0, "Suggest slots for one task id only")
	suggestCmd.Flags().String("from", "", "Scheduling start, in natural language (\"tomorrow\", \"next monday 9am\")")
	suggestCmd.Flags().Int("horizon", 0, "Scan horizon in days (default from config)")
	suggestCmd.Flags().Bool("json", false, "Print raw JSON")

	approveCmd.Flags().Int("task", 0, "Task id (required)")
	approveCmd.Flags().String("start", "", "Suggested start, RFC 3339 (required)")
	approveCmd.Flags().Int("minutes", 0, "Duration in minutes (required)")
	approveCmd.MarkFlagRequired("task")
	approveCmd.MarkFlagRequired("start")
	approveCmd.MarkFlagRequired("minutes")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*store.DB, error) {
	path := cfg.Store.Path
	if path == "" {
		p, err := store.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func newNarrator(cfg *config.Config) ai.Provider {
	if !cfg.AI.Enabled || cfg.AI.APIKey == "" {
		return nil
	}
	return ai.NewOpenAI(cfg.AI.APIKey, cfg.AI.Model, time.Duration(cfg.AI.Timeout)*time.Second)
}

func buildEngine(cfg *config.Config, db *store.DB, log zerolog.Logger, clock func() time.Time) (*schedule.Engine, *schedule.Committer, error) {
	cal, err := cfg.Schedule.BusinessCalendar()
	if err != nil {
		return nil, nil, err
	}

	opts := []schedule.EngineOption{schedule.WithLogger(log)}
	if n := newNarrator(cfg); n != nil {
		opts = append(opts, schedule.WithNarrator(n))
	}
	if clock != nil {
		opts = append(opts, schedule.WithClock(clock))
	}
	engine := schedule.NewEngine(cal, db, db, opts...)
	committer := schedule.NewCommitter(cal, db, db, db, schedule.WithCommitLogger(log))
	return engine, committer, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging.Level)

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	engine, committer, err := buildEngine(cfg, db, log, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutting down")
		cancel()
	}()

	srv := server.New(cfg.Server, engine, committer, db, log)
	return srv.Run(ctx)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	taskID, _ := cmd.Flags().GetInt("task")
	fromStr, _ := cmd.Flags().GetString("from")
	horizon, _ := cmd.Flags().GetInt("horizon")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging.Level)

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var clock func() time.Time
	if fromStr != "" {
		from, err := naturaldate.Parse(fromStr, time.Now(), naturaldate.WithDirection(naturaldate.Future))
		if err != nil {
			return fmt.Errorf("parsing --from %q: %w", fromStr, err)
		}
		clock = func() time.Time { return from }
	}

	engine, _, err := buildEngine(cfg, db, log, clock)
	if err != nil {
		return err
	}

	result, err := engine.Suggest(context.Background(), schedule.SuggestRequest{
		TaskID:      taskID,
		HorizonDays: horizon,
	})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if len(result.Suggestions) == 0 {
		fmt.Println("No suggestions.")
	} else {
		fmt.Printf("Suggestions (%d):\n\n", len(result.Suggestions))
		for _, s := range result.Suggestions {
			fmt.Printf("  task %-4d %s  %3dmin  %s\n      %s\n",
				s.TaskID,
				s.Start.Local().Format("Mon 2006-01-02 15:04"),
				s.Minutes,
				s.TaskTitle,
				s.Reason,
			)
		}
	}

	for _, n := range result.Notes {
		fmt.Printf("\n  skipped %q: %s (%s)\n", n.TaskTitle, n.Detail, n.Condition)
	}
	return nil
}

func runApprove(cmd *cobra.Command, args []string) error {
	taskID, _ := cmd.Flags().GetInt("task")
	startStr, _ := cmd.Flags().GetString("start")
	minutes, _ := cmd.Flags().GetInt("minutes")

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return fmt.Errorf("parsing --start: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging.Level)

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	_, committer, err := buildEngine(cfg, db, log, nil)
	if err != nil {
		return err
	}

	booked, err := committer.Approve(context.Background(), schedule.ApproveRequest{
		TaskID:  taskID,
		Start:   start,
		Minutes: minutes,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Booked: %s — %s–%s (interval %d)\n",
		booked.Title,
		booked.Start.Local().Format("Mon 2006-01-02 15:04"),
		booked.End.Local().Format("15:04"),
		booked.ID,
	)

	if cfg.Notifications.Enabled {
		detail := fmt.Sprintf("%s booked for %s", booked.Title, booked.Start.Local().Format("Mon 15:04"))
		if err := notify.Booked("slot approved", detail); err != nil {
			log.Warn().Err(err).Msg("desktop notification failed")
		}
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	intervals, err := db.IntervalsBetween(context.Background(), startOfDay, startOfDay.Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("fetching today's intervals: %w", err)
	}

	if len(intervals) == 0 {
		fmt.Println("Nothing booked today.")
		return nil
	}

	fmt.Println("Today's calendar:")
	fmt.Println()
	totalMinutes := 0
	for _, iv := range intervals {
		mins := int(iv.End.Sub(iv.Start).Minutes())
		fmt.Printf("  %s–%s  %3dmin  %s\n",
			iv.Start.Local().Format("15:04"),
			iv.End.Local().Format("15:04"),
			mins,
			iv.Title,
		)
		totalMinutes += mins
	}
	fmt.Printf("\nTotal: %dh %dmin (%d intervals)\n", totalMinutes/60, totalMinutes%60, len(intervals))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	source := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cal, err := cfg.Schedule.BusinessCalendar()
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	now := time.Now()
	horizon := now.Add(time.Duration(cal.HorizonDays) * 24 * time.Hour)

	intervals, err := calendar.Import(ctx, source, now, horizon)
	if err != nil {
		return fmt.Errorf("importing calendar: %w", err)
	}

	for _, iv := range intervals {
		if _, err := db.CreateInterval(ctx, iv, store.SourceImport); err != nil {
			return fmt.Errorf("saving %q: %w", iv.Title, err)
		}
	}

	fmt.Printf("Imported %d events from %s\n", len(intervals), source)
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		data := fmt.Sprintf(`[server]
addr = "%s"

[schedule]
work_start = "%s"
work_end = "%s"
work_days = [1, 2, 3, 4, 5]
buffer_minutes = %d
horizon_days = %d
step_minutes = %d
slots_per_task = %d

[ai]
enabled = %t
model = "%s"

[notifications]
enabled = %t

[logging]
level = "%s"
`,
			cfg.Server.Addr,
			cfg.Schedule.WorkStart,
			cfg.Schedule.WorkEnd,
			cfg.Schedule.BufferMinutes,
			cfg.Schedule.HorizonDays,
			cfg.Schedule.StepMinutes,
			cfg.Schedule.SlotsPerTask,
			cfg.AI.Enabled,
			cfg.AI.Model,
			cfg.Notifications.Enabled,
			cfg.Logging.Level,
		)
		if err := os.WriteFile(configPath, []byte(data), 0644); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	proc := os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	process, err := os.StartProcess(editor, []string{editor, configPath}, &proc)
	if err != nil {
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
		return nil
	}
	_, err = process.Wait()
	return err
}
