package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"calhook/internal/config"
	"calhook/internal/digest"
	"calhook/internal/ics"
	appLog "calhook/internal/log"
	"calhook/internal/model"
	"calhook/internal/webhook"
)

type flagConfig struct {
	configPath string
	debug      bool
	mode       string
}

func main() {
	flags := parseFlags()

	appLog.Setup(flags.debug)
	appLog.Info("calhook starting", "version", "0.1.0", "mode", flags.mode)

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("invalid display timezone", err, "timezone", conf.Timezone)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"calendar_count", len(conf.Calendars),
		"poll_minutes", conf.PollMinutes,
		"digest_weekday", conf.DigestWeekday,
		"week_hour", conf.WeekHour,
		"day_hour", conf.DayHour,
		"timezone", conf.Timezone,
	)

	a := newApp(conf, loc)

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

	switch flags.mode {
	case "run":
		if err := a.runScheduled(ctx, cancel); err != nil {
			os.Exit(1)
		}
	case "print":
		if err := a.runOnce(ctx, false); err != nil {
			appLog.Error("cycle failed", err)
			os.Exit(1)
		}
	case "send":
		if err := a.runOnce(ctx, true); err != nil {
			appLog.Error("cycle failed", err)
			os.Exit(1)
		}
	}

	appLog.Info("calhook exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/calhook/config.yaml", "Path to config file")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	flag.Parse()

	cfg.mode = flag.Arg(0)
	switch cfg.mode {
	case "":
		cfg.mode = "run"
	case "run", "print", "send":
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [flags] [run|print|send]\n", os.Args[0])
		os.Exit(2)
	}

	return cfg
}

type app struct {
	conf     *config.Config
	fetcher  *ics.Fetcher
	sender   *webhook.Sender
	composer digest.Composer
	loc      *time.Location
}

func newApp(conf *config.Config, loc *time.Location) *app {
	return &app{
		conf:    conf,
		fetcher: ics.NewFetcher(conf.CacheDir),
		sender:  webhook.NewSender(conf.WebhookURL, conf.WebhookErrorURL),
		composer: digest.Composer{
			Weekday:  conf.Weekday(),
			WeekHour: conf.WeekHour,
			DayHour:  conf.DayHour,
			Interval: conf.Interval(),
			Location: loc,
		},
		loc: loc,
	}
}

// runScheduled drives poll cycles on the configured interval until ctx is
// canceled. A scheduler-level fault is reported via the error webhook and
// terminates the process, since no further cycles would run.
func (a *app) runScheduled(ctx context.Context, cancel context.CancelFunc) error {
	c := cron.New()

	// Guards against a slow feed fetch overlapping the next tick.
	var running atomic.Bool

	_, err := c.AddFunc(fmt.Sprintf("@every %dm", a.conf.PollMinutes), func() {
		if !running.CompareAndSwap(false, true) {
			appLog.Info("previous cycle still running, skipping tick")
			return
		}
		defer running.Store(false)

		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("scheduler fault: %v", r)
				appLog.Error("cycle panicked, shutting down", err)
				if serr := a.sender.SendError(ctx, digest.FatalMessage(err)); serr != nil {
					appLog.Error("fatal notification failed", serr)
				}
				cancel()
			}
		}()

		a.checkForChanges(ctx)
	})
	if err != nil {
		appLog.Error("failed to schedule poll cycle", err)
		if serr := a.sender.SendError(ctx, digest.FatalMessage(err)); serr != nil {
			appLog.Error("fatal notification failed", serr)
		}
		return err
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// checkForChanges runs one poll cycle. All recoverable errors stay inside
// the cycle: they are logged and reported best-effort via the error webhook,
// and the next cycle starts from a fresh snapshot.
func (a *app) checkForChanges(ctx context.Context) {
	appLog.Info("checking for changes")

	now := time.Now().UTC()
	events, err := a.fetchEvents(ctx, now)
	if err != nil {
		appLog.Error("poll cycle failed", err)
		if serr := a.sender.SendError(ctx, digest.ErrorMessage(err)); serr != nil {
			appLog.Error("error notification failed", serr)
		}
		return
	}

	for _, msg := range a.composer.Compose(events, now, false, false) {
		if err := a.sender.Send(ctx, msg); err != nil {
			appLog.Error("webhook delivery failed", err)
		}
	}

	appLog.Info("checking for changes done", "event_count", len(events))
}

// runOnce forces the weekly and daily digests for manual testing, printing
// the messages or actually sending them.
func (a *app) runOnce(ctx context.Context, publish bool) error {
	now := time.Now().UTC()
	events, err := a.fetchEvents(ctx, now)
	if err != nil {
		return err
	}

	messages := a.composer.Compose(events, now, true, false)
	messages = append(messages, a.composer.Compose(events, now, false, true)...)

	for _, msg := range messages {
		if publish {
			if err := a.sender.Send(ctx, msg); err != nil {
				return err
			}
			continue
		}
		fmt.Println(msg.Text)
	}
	return nil
}

// fetchEvents pulls all configured feeds and expands them into occurrences
// for a broad window around now (one year back, three years forward).
func (a *app) fetchEvents(ctx context.Context, now time.Time) ([]model.Event, error) {
	sources := make([]ics.Source, 0, len(a.conf.Calendars))
	for i, url := range a.conf.Calendars {
		sources = append(sources, ics.Source{
			ID:  fmt.Sprintf("cal%d", i+1),
			URL: url,
		})
	}

	results, errs := a.fetcher.FetchAll(ctx, sources)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	parsed := make([]ics.ParsedEvent, 0)
	for _, res := range results {
		evs, err := ics.ParseICS(res.Source, res.Body, a.loc)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, evs...)
	}

	return ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		RangeStart: now.AddDate(-1, 0, 0),
		RangeEnd:   now.AddDate(3, 0, 0),
	})
}
