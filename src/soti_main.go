package soti

/*------------------------------------------------------------------
 *
 * Purpose:   	Main program for "soti", the ground station console
 *		for the satellite's bus.
 *
 * Description:	Opens the device (serial port, virtual port or none),
 *		then runs three things side by side:
 *
 *			device reader -> queue -> message decoder
 *			console -> queue -> device writer
 *
 *		Everything sent and received is logged and kept for the
 *		session log, which is saved on the way out.
 *
 * Examples:	soti -d /dev/ttyUSB0
 *		soti -d virtual			(then point a simulator at /tmp/soti-bus)
 *		soti -d none --http :8080
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Small reads keep latency down; messages are only 11 bytes.
const deviceReadSize = 64

func SotiMain() {
	os.Exit(runSoti(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func runSoti(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	var fs = newFlagSet("soti", stderr, "talk to the satellite over its bus")
	var common = addCommonFlags(fs)

	var device = fs.StringP("device", "d", "", "Serial port, \"virtual\" for a pseudo terminal, or \"none\".")
	var baud = fs.IntP("baud", "b", 0, "Serial port speed.")
	var sender = fs.String("sender", "", "Default sender node.")
	var priority = fs.IntP("priority", "p", 0, "Default message priority.")
	var noSession = fs.Bool("no-session", false, "Don't save a session log.")
	var sessionDir = fs.String("session-dir", "", "Directory for session logs.")
	var compress = fs.BoolP("compress", "z", false, "zstd compress the session log.")
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
		printVersion(stdout, "soti", false)
		return 0
	}

	var cfg, from, err = common.loadConfig(fs)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if fs.Changed("device") {
		cfg.Serial.Device = *device
	}
	if fs.Changed("baud") {
		cfg.Serial.Baud = *baud
	}
	if fs.Changed("sender") {
		var n, nerr = ParseNodeID(*sender)
		if nerr != nil {
			fmt.Fprintln(stderr, nerr)
			return 1
		}
		cfg.Console.Sender = n
	}
	if fs.Changed("priority") {
		cfg.Console.Priority = *priority
	}
	if *noSession {
		cfg.Session.Enabled = false
	}
	if fs.Changed("session-dir") {
		cfg.Session.Dir = *sessionDir
	}
	if fs.Changed("compress") {
		cfg.Session.Compress = *compress
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

	var dev, devErr = OpenDevice(cfg.Serial)
	if devErr != nil {
		logger.Error("Could not open device", "device", cfg.Serial.Device, "err", devErr)
		return 1
	}

	fmt.Fprintf(stdout, "Device: %s\n", dev.Name())

	var metrics = NewMetrics()
	var inbox = NewChunkQueue()
	var outbox = NewChunkQueue()
	metrics.ObserveQueue("device-in", inbox)
	metrics.ObserveQueue("device-out", outbox)

	var session = NewSessionLog(dev.Name())
	var sink = NewMultiSink(session)
	var cleanup = startOutputs(ctx, cfg, sink, metrics, logger)
	defer cleanup()

	var decoder = NewMessageDecoder(sink, logger, metrics)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := RunReader(ctx, dev, inbox, deviceReadSize, "serial", metrics); err != nil {
			logger.Error("Device read failed, no more messages will be received", "err", err)
		}
	}()
	go func() {
		defer wg.Done()
		decoder.Run(ctx, inbox)
	}()
	go func() {
		defer wg.Done()
		if err := RunWriter(ctx, dev, outbox, logger); err != nil {
			logger.Error("Device write failed, no more messages can be sent", "err", err)
		}
	}()

	var console = NewConsole(stdout, cfg.Console, outbox, sink, session, logger, metrics)
	fmt.Fprint(stdout, "\nWelcome to the SOTI console.  Type help for the commands.\n\n")

	if err := console.Run(ctx, stdin); err != nil {
		logger.Error("Console input", "err", err)
	}

	stop()
	dev.Close()
	wg.Wait()

	if cfg.Session.Enabled {
		if _, err := session.Save(cfg.Session, logger); err != nil {
			logger.Error("Could not save session log", "err", err)
			return 1
		}
	}

	return 0
}
