package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nuha.dev/gpslogger/internal/config"
	"nuha.dev/gpslogger/internal/device"
	"nuha.dev/gpslogger/internal/device/simplejson"
	"nuha.dev/gpslogger/internal/events"
	"nuha.dev/gpslogger/internal/geo"
	"nuha.dev/gpslogger/internal/replay"
	"nuha.dev/gpslogger/internal/sink/logsink"
	"nuha.dev/gpslogger/internal/sublist"
	"nuha.dev/gpslogger/internal/table"
	"nuha.dev/gpslogger/internal/ticker"
	"nuha.dev/gpslogger/internal/tracking"
	"nuha.dev/gpslogger/internal/web"
	"nuha.dev/gpslogger/internal/web/monitoring"
	"nuha.dev/gpslogger/internal/web/webstream"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "gpslogger",
		Short: "GPS session logger - distance and elapsed time from a location feed",
		Long: `Logs a GPS tracking session from a local location feed: each record carries
the wall clock, elapsed seconds, position and incremental/cumulative distance.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(distanceCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	conf, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log.DefaultLogger.Level = log.ParseLevel(conf.Log.Level)
	return conf, nil
}

func runCmd() *cobra.Command {
	var (
		devicePath string
		tick       time.Duration
		listen     string
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Track a session from a device feed until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("device") {
				conf.Device.Path = devicePath
			}
			if cmd.Flags().Changed("tick") {
				conf.Tracking.TickPeriod = tick
			}
			if cmd.Flags().Changed("listen") {
				conf.Control.Enabled = true
				conf.Control.ListenAddr = listen
			}
			return run(conf, jsonOut)
		},
	}

	cmd.Flags().StringVarP(&devicePath, "device", "d", "-", "device path, - for stdin")
	cmd.Flags().DurationVarP(&tick, "tick", "t", 3*time.Second, "logging cadence, 0 logs every sample")
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:3333", "enable the control api on this address")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "write records as json lines instead of a table")
	return cmd
}

func run(conf *config.Config, jsonOut bool) error {
	logger := log.DefaultLogger
	logger.Context = log.NewContext(nil).Str("module", "main").Value()

	c, err := device.Open(conf.Device.Path, 1)
	if err != nil {
		return err
	}
	proto, err := device.Detect(c)
	if err != nil {
		c.Close()
		return err
	}
	logger.Info().Str("protocol", proto).EmbedObject(c).Msg("device opened")
	feed := simplejson.NewFeed(c, log.DefaultLogger, &conf.Device.Source)
	feed.Run()
	defer feed.Close()

	tk := ticker.NewTicker()
	tab := table.NewTable()
	series := table.NewSeries()
	sl := sublist.NewSublist()

	var out tracking.LogSink
	if jsonOut {
		out = logsink.NewSink(os.Stdout)
	} else {
		out = table.NewPrinter(os.Stdout)
	}

	bus, err := events.NewBus()
	if err != nil {
		return err
	}
	bus.ForwardStatus(sl)

	session := tracking.NewSession(&tracking.Param{
		Source:   feed,
		Ticks:    tk,
		Clock:    tracking.SystemClock(),
		Log:      table.Tee{tab, out},
		Series:   table.SeriesTee{series, sl},
		Notifier: bus,
	}, &tracking.Config{TickPeriod: conf.Tracking.TickPeriod})

	var api *web.Api
	if conf.Control.Enabled {
		mon := monitoring.NewMonApi()
		mon.Register("session", func() interface{} { return session.Snapshot() })
		mon.Register("ticker", func() interface{} { return map[string]int{"armed": tk.Armed()} })
		mon.Register("stream", func() interface{} { return map[string]int{"subscribers": sl.Len()} })
		mon.Register("feed", func() interface{} {
			res := map[string]interface{}{}
			if _, at, ok := feed.Last(); ok {
				res["last_fix_age_seconds"] = time.Since(at).Seconds()
			}
			if lm, ok := feed.Login(); ok {
				res["device_type"] = lm.DeviceType
			}
			return res
		})
		wsLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		api = web.NewApi(&web.ApiParam{
			Session: session,
			Stream:  webstream.NewWebstream(sl, wsLogger),
			Monitor: mon.GetHandler(),
		}, &web.ApiConfig{ListenAddr: conf.Control.ListenAddr})
		go func() {
			if err := api.Run(); err != nil {
				logger.Error().Err(err).Msg("control api stopped")
			}
		}()
	}

	if conf.Tracking.Autostart {
		if err := session.Start(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case <-ctx.Done():
		logger.Info().Msg("interrupted")
	case <-feed.Done():
		logger.Warn().Err(feed.Err()).Msg("device feed ended")
	}

	snap := session.Snapshot()
	session.Stop()
	if api != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := api.Shutdown(sctx); err != nil {
			logger.Warn().Err(err).Msg("control api shutdown")
		}
	}
	fmt.Fprintf(os.Stderr, "records: %d  elapsed: %ds  distance: %.2f m\n", snap.Records, snap.ElapsedSeconds, snap.CumulativeDistance)
	return nil
}

func replayCmd() *cobra.Command {
	var (
		tick    time.Duration
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "replay <capture.jsonl>",
		Short: "Replay a recorded capture with simulated time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("tick") {
				conf.Tracking.TickPeriod = tick
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			samples, err := replay.ReadCapture(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			tab := table.NewTable()
			var sink tracking.LogSink = tab
			if jsonOut {
				sink = logsink.NewSink(out)
			}
			snap, err := replay.Replay(samples, &replay.Param{Log: sink}, &tracking.Config{TickPeriod: conf.Tracking.TickPeriod})
			if err != nil {
				return err
			}
			if !jsonOut {
				if err := tab.Render(out); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "records: %d  elapsed: %ds  distance: %.2f m\n", snap.Records, snap.ElapsedSeconds, snap.CumulativeDistance)
			return nil
		},
	}

	cmd.Flags().DurationVarP(&tick, "tick", "t", 3*time.Second, "logging cadence, 0 logs every sample")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "write records as json lines instead of a table")
	return cmd
}

func distanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "distance <lat1> <lon1> <lat2> <lon2>",
		Short: "Print great-circle and planar distance between two points",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v [4]float64
			for i, a := range args {
				f, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("argument %d: %w", i+1, err)
				}
				v[i] = f
			}
			for _, lat := range []float64{v[0], v[2]} {
				if lat < -90 || lat > 90 {
					return fmt.Errorf("latitude %v out of range", lat)
				}
			}
			for _, lon := range []float64{v[1], v[3]} {
				if lon < -180 || lon > 180 {
					return fmt.Errorf("longitude %v out of range", lon)
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "great-circle: %.3f m\n", geo.GreatCircleDistance(v[0], v[1], v[2], v[3]))
			fmt.Fprintf(out, "planar:       %.3f m\n", geo.PlanarApproxDistance(v[0], v[1], v[2], v[3]))
			return nil
		},
	}
}
