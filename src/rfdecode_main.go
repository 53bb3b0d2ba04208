package soti

/*------------------------------------------------------------------
 *
 * Purpose:   	Main program for "soti-rfdecode", which turns the
 *		demodulated bit stream from the SDR flow graph into
 *		AX.25 frames.
 *
 * Description:	UDP -> queue -> HDLC deframer -> AX.25 decoder, then
 *		each frame is logged and, optionally, passed on:
 *
 *			KISS TCP	for packet radio applications,
 *					optionally announced with DNS-SD.
 *			HTTP		/metrics and the /ws live feed.
 *			MQTT		<topic_prefix>/frame, .../drop
 *
 * Examples:	soti-rfdecode
 *		soti-rfdecode -l 0.0.0.0:2000 --check-fcs -k 8001 --announce
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"io"
	"os"
)

func RFDecodeMain() {
	os.Exit(runRFDecode(os.Args[1:], os.Stdout, os.Stderr))
}

func runRFDecode(args []string, stdout io.Writer, stderr io.Writer) int {
	var fs = newFlagSet("soti-rfdecode", stderr, "decode AX.25 frames from a UDP bit stream")
	var common = addCommonFlags(fs)

	var listen = fs.StringP("listen", "l", "", "UDP address to receive the bit stream on.")
	var datagramSize = fs.Int("datagram-size", 0, "Largest datagram expected.")
	var checkFCS = fs.Bool("check-fcs", false, "Discard frames with a bad frame check sequence.")
	var minLen = fs.Int("min-len", 0, "Shortest frame accepted, in bytes.")
	var maxLen = fs.Int("max-len", 0, "Longest frame accepted, in bytes.  0 for no limit.")
	var kissPort = fs.IntP("kiss-port", "k", 0, "Serve decoded frames as a KISS TNC on this TCP port.")
	var announce = fs.Bool("announce", false, "Announce the KISS port with DNS-SD.")
	var httpListen = fs.String("http", "", "Address for /metrics and /ws, e.g. :8080.")
	var mqttBroker = fs.String("mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883.")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *common.help {
		fs.Usage()
		return 0
	}

	if *common.version {
		printVersion(stdout, "soti-rfdecode", false)
		return 0
	}

	var cfg, from, err = common.loadConfig(fs)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if fs.Changed("listen") {
		cfg.RF.Listen = *listen
	}
	if fs.Changed("datagram-size") {
		cfg.RF.DatagramSize = *datagramSize
	}
	if fs.Changed("check-fcs") {
		cfg.RF.CheckFCS = *checkFCS
	}
	if fs.Changed("min-len") {
		cfg.RF.MinFrameLen = *minLen
	}
	if fs.Changed("max-len") {
		cfg.RF.MaxFrameLen = *maxLen
	}
	if fs.Changed("kiss-port") {
		cfg.KISS.Port = *kissPort
	}
	if fs.Changed("announce") {
		cfg.KISS.Announce = *announce
	}
	if fs.Changed("http") {
		cfg.HTTP.Listen = *httpListen
	}
	if fs.Changed("mqtt-broker") {
		cfg.MQTT.Broker = *mqttBroker
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	var logger, _ = NewLogger(stderr, cfg.LogLevel, cfg.LogFormat, "")
	if from != "" {
		logger.Info("Configuration", "file", from)
	}

	var ctx, stop = signalContext()
	defer stop()

	var src, srcErr = ListenUDP(ctx, cfg.RF.Listen, cfg.RF.PollInterval)
	if srcErr != nil {
		logger.Error("Could not open RF input", "err", srcErr)
		return 1
	}
	defer src.Close()

	logger.Info("Listening for the bit stream", "addr", src.Addr(), "check_fcs", cfg.RF.CheckFCS)

	var metrics = NewMetrics()
	var queue = NewChunkQueue()
	metrics.ObserveQueue("rf", queue)

	var sink = NewMultiSink()

	if cfg.KISS.Port != 0 {
		var kiss, kerr = ListenKISS(ctx, cfg.KISS.Port, logger, metrics)
		if kerr != nil {
			logger.Error("KISS TCP disabled", "err", kerr)
		} else {
			sink.Add(kiss)
			go kiss.Serve(ctx)

			if cfg.KISS.Announce {
				if err := DNSSDAnnounce(ctx, cfg.KISS.Name, kiss.Port(), logger); err != nil {
					logger.Error("DNS-SD", "err", err)
				}
			}
		}
	}

	var cleanup = startOutputs(ctx, cfg, sink, metrics, logger)
	defer cleanup()

	var decoder = NewRFDecoder(cfg.RF, sink, logger, metrics)
	decoder.Source = src.Addr().String()

	var readCtx, cancel = context.WithCancel(ctx)
	defer cancel()

	var readErr = make(chan error, 1)
	go func() {
		readErr <- RunReader(readCtx, src, queue, cfg.RF.DatagramSize, "udp", metrics)
		cancel()
	}()

	decoder.Run(readCtx, queue)

	if err := <-readErr; err != nil {
		logger.Error("RF input failed", "err", err)
		return 1
	}

	return 0
}
