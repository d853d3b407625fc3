package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/automaxprocs/maxprocs"

	"monthcal/internal/config"
	"monthcal/internal/dataservice"
	"monthcal/internal/ics"
	appLog "monthcal/internal/log"
	"monthcal/internal/metrics"
	"monthcal/internal/scheduler"
	"monthcal/internal/snapshot"
	"monthcal/internal/source"
	"monthcal/internal/view"
	"monthcal/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	envFile    string
	listen     string
	once       bool
	snapshot   string
}

func main() {
	flags := parseFlags()

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		appLog.Debug(fmt.Sprintf(format, args...))
	})); err != nil {
		appLog.Error("failed to set GOMAXPROCS", err)
	}

	conf, err := loadConfig(flags)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.SetFormat(conf.LogFormat)

	appLog.Info("monthcal starting",
		"version", version,
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"data_service", conf.DataServiceURL != "",
		"ics", conf.ICSURL != "",
		"refresh", conf.RefreshCron,
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("monthcal failed", err)
		os.Exit(1)
	}
	appLog.Info("monthcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/monthcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.envFile, "env", ".env", "Optional KEY=VALUE file loaded before MONTHCAL_* overrides")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load the current month once and exit")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Write a PNG of the calendar page to this path after each refresh")

	flag.Parse()

	return cfg
}

// loadConfig layers the config file, the .env file, MONTHCAL_* variables and
// flags, in that order.
func loadConfig(flags flagConfig) (*config.Config, error) {
	if err := config.LoadDotEnv(flags.envFile); err != nil {
		return nil, err
	}
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if err := conf.ApplyEnv(); err != nil {
		return nil, err
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	conf.Normalize()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

type app struct {
	conf     *config.Config
	session  *view.Session
	server   *web.Server
	snapshot string

	// captureMu keeps scheduled captures from overlapping.
	captureMu sync.Mutex
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	loc, err := conf.Location()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := web.Options{
		Config:      conf,
		Gatherer:    reg,
		PreviewPath: flags.snapshot,
	}

	var fetcher source.Fetcher
	switch {
	case conf.DataServiceURL != "":
		tokens := &dataservice.TokenHolder{}
		client := dataservice.New(conf.DataServiceURL, tokens, loc)
		fetcher = client
		opts.Signer = client
		opts.Tokens = tokens
	case conf.ICSURL != "":
		fetcher = ics.NewFeed(conf.ICSURL, loc)
	default:
		appLog.Info("no event source configured; calendar holds local events only")
	}

	session := view.NewSession(view.Deps{
		Fetcher:    fetcher,
		Location:   loc,
		IDLength:   conf.IDLength,
		FetchLimit: conf.FetchLimit,
		Metrics:    metrics.New(reg),
	})
	opts.Session = session

	a := &app{
		conf:     conf,
		session:  session,
		server:   web.NewServer(opts),
		snapshot: flags.snapshot,
	}

	if flags.once {
		return a.runOnce(ctx)
	}
	return a.serve(ctx, loc)
}

// refresh loads the visible month. A missing sign-in is not fatal: the UI
// asks for credentials.
func (a *app) refresh(ctx context.Context) error {
	err := a.session.Refresh(ctx)
	if errors.Is(err, source.ErrUnauthorized) {
		appLog.Info("data service needs sign-in; POST /api/signin")
		return nil
	}
	return err
}

func (a *app) runOnce(ctx context.Context) error {
	if err := a.refresh(ctx); err != nil {
		return err
	}
	st := a.session.State()
	remote, local := st.Store.Counts()
	appLog.Info("month loaded",
		"month", st.Selected.Month,
		"year", st.Selected.Year,
		"status", string(st.Store.Status()),
		"remote_events", remote,
		"local_events", local,
	)
	if a.snapshot == "" {
		return nil
	}

	ln, err := net.Listen("tcp", a.conf.Listen)
	if err != nil {
		return err
	}
	srvCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- a.server.Serve(srvCtx, ln) }()

	captureErr := a.capture(ctx, ln.Addr().String())
	stop()
	if err := <-done; err != nil {
		appLog.Error("HTTP server stopped with error", err)
	}
	return captureErr
}

func (a *app) serve(ctx context.Context, loc *time.Location) error {
	ln, err := net.Listen("tcp", a.conf.Listen)
	if err != nil {
		return err
	}
	addr := ln.Addr().String()

	if err := a.refresh(ctx); err != nil {
		appLog.Error("initial refresh failed", err)
	}

	sched := scheduler.New(loc)
	if a.conf.RefreshCron != "" {
		job := func(ctx context.Context) error {
			if err := a.refresh(ctx); err != nil {
				return err
			}
			if a.snapshot == "" {
				return nil
			}
			return a.capture(ctx, addr)
		}
		if err := sched.Add("refresh", a.conf.RefreshCron, job); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	wg.Go(func() { sched.Run(ctx) })
	if a.snapshot != "" {
		wg.Go(func() {
			if err := a.capture(ctx, addr); err != nil {
				appLog.Error("initial snapshot failed", err)
			}
		})
	}

	err = a.server.Serve(ctx, ln)
	wg.Wait()
	return err
}

func (a *app) capture(ctx context.Context, addr string) error {
	a.captureMu.Lock()
	defer a.captureMu.Unlock()

	opts := snapshot.Options{
		URL:        "http://" + dialable(addr) + "/calendar",
		OutputPath: a.snapshot,
	}
	if auth := a.conf.BasicAuth; auth != nil {
		opts.Username = auth.Username
		opts.Password = auth.Password
	}
	return snapshot.CapturePNG(ctx, opts)
}

// dialable turns a listen address into one a local browser can reach.
func dialable(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
