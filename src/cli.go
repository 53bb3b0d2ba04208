package soti

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

// Flags every tool has.
type commonFlags struct {
	config    *string
	logLevel  *string
	logFormat *string
	version   *bool
	help      *bool
}

func addCommonFlags(fs *pflag.FlagSet) *commonFlags {
	return &commonFlags{
		config:    fs.StringP("config", "c", "", "Configuration file name.  Default is to look for soti.yaml in the usual places."),
		logLevel:  fs.String("log-level", "", "debug, info, warn or error."),
		logFormat: fs.String("log-format", "", "text, json or logfmt."),
		version:   fs.BoolP("version", "v", false, "Display version and exit."),
		help:      fs.BoolP("help", "h", false, "Display help text."),
	}
}

func newFlagSet(tool string, stderr io.Writer, description string) *pflag.FlagSet {
	var fs = pflag.NewFlagSet(tool, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(stderr, "%s - %s\n\n", tool, description)
		fmt.Fprintf(stderr, "Usage: %s [options]\n\n", tool)
		fs.PrintDefaults()
	}

	return fs
}

// loadConfig reads the configuration file and applies the logging flags.
// Tool specific overrides are applied by the caller, followed by
// Validate.
func (cf *commonFlags) loadConfig(fs *pflag.FlagSet) (*Config, string, error) {
	var cfg, from, err = LoadConfig(*cf.config)
	if err != nil {
		return nil, "", err
	}

	if fs.Changed("log-level") {
		cfg.LogLevel = *cf.logLevel
	}
	if fs.Changed("log-format") {
		cfg.LogFormat = *cf.logFormat
	}

	return cfg, from, nil
}

// signalContext is done on the first interrupt or terminate.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// startOutputs attaches the optional outputs shared by both receive tools
// to sink: the HTTP server (metrics and live feed) and the MQTT publisher.
// A problem with one of them is logged and the tool goes on without it.
func startOutputs(ctx context.Context, cfg *Config, sink *MultiSink, metrics *Metrics, logger *log.Logger) (cleanup func()) {
	cleanup = func() {}

	if cfg.HTTP.Listen != "" {
		var feed = NewLiveFeed(logger, metrics)
		sink.Add(feed)

		go func() {
			if err := RunHTTP(ctx, cfg.HTTP.Listen, NewHTTPHandler(metrics, feed), logger); err != nil {
				logger.Error("HTTP server stopped", "err", err)
			}
		}()
	}

	if cfg.MQTT.Broker != "" {
		var mq, err = NewMQTTSink(cfg.MQTT, logger)
		if err != nil {
			logger.Error("MQTT disabled", "err", err)
		} else {
			sink.Add(mq)
			cleanup = mq.Close
		}
	}

	return cleanup
}
