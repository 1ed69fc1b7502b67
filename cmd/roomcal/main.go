package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"roomcal/internal/config"
	appLog "roomcal/internal/log"
	"roomcal/internal/store"
	"roomcal/internal/web"
)

// flagConfig holds CLI flag values. Defaults come from the environment
// (optionally via .env) so containers can skip flags entirely.
type flagConfig struct {
	configPath string
	listen     string
	logLevel   string
	once       bool
	exportPath string
}

func main() {
	if err := godotenv.Load(); err != nil {
		appLog.Debug("no .env file loaded", "err", err)
	}

	flags := parseFlags()
	if flags.logLevel != "" {
		appLog.SetLevel(appLog.ParseLevel(flags.logLevel))
	}

	appLog.Info("roomcal starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI flags override the config file.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"calendar_dir", conf.CalendarDir,
		"calendar_count", len(conf.Calendars),
		"horizon_months", conf.RecurrenceHorizonMonths,
		"once", flags.once,
	)

	p, err := newPipeline(conf)
	if err != nil {
		appLog.Error("failed to build parser", err)
		os.Exit(1)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once {
		if err := runOnce(ctx, p, os.Stdout, flags.exportPath); err != nil {
			appLog.Error("load failed", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, conf, p); err != nil {
		appLog.Error("server stopped", err)
		os.Exit(1)
	}
	appLog.Info("roomcal exiting")
}

// serve loads the calendars, schedules periodic reloads and runs the API
// until ctx is canceled. A failed initial load is logged; the API answers 503
// until a later reload succeeds.
func serve(ctx context.Context, conf *config.Config, p *pipeline) error {
	srv := web.NewServer(conf, func(ctx context.Context) (*store.Store, error) {
		return p.Load(ctx)
	})

	reload := func() {
		st, err := p.Load(ctx)
		if err != nil {
			appLog.Error("calendar reload failed", err)
			return
		}
		srv.SetStore(st)
	}
	reload()

	c := cron.New(cron.WithLocation(conf.Location()))
	if _, err := c.AddFunc(conf.RefreshCron, reload); err != nil {
		return err
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	return srv.ListenAndServe(ctx)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", envOr("ROOMCAL_CONFIG", "config.yaml"), "Path to config file")
	flag.StringVar(&cfg.listen, "listen", os.Getenv("ROOMCAL_LISTEN"), "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", os.Getenv("ROOMCAL_LOG_LEVEL"), "Log level: debug, info, warn, error (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load and parse the calendars once, print a summary and exit")
	flag.StringVar(&cfg.exportPath, "export", "", "With -once, also write the normalized events to this .ics file")

	flag.Parse()

	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSONIndent(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
