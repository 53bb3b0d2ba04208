package soti

/*------------------------------------------------------------------
 *
 * Purpose:   	Read configuration information from a file.
 *
 * Description:	Everything has a sensible default, so no file is needed
 *		at all.  When one exists it is YAML with a section per
 *		component.  Command line flags are applied afterwards and
 *		win over the file.
 *
 *---------------------------------------------------------------*/

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Serial  SerialConfig  `yaml:"serial"`
	RF      RFConfig      `yaml:"rf"`
	Session SessionConfig `yaml:"session"`
	Console ConsoleConfig `yaml:"console"`
	KISS    KISSConfig    `yaml:"kiss"`
	HTTP    HTTPConfig    `yaml:"http"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
}

type SerialConfig struct {
	// Path of the serial port, "virtual" for a pseudo terminal, or
	// "none" to run without a satellite attached.
	Device      string        `yaml:"device"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type RFConfig struct {
	Listen       string        `yaml:"listen"`
	DatagramSize int           `yaml:"datagram_size"`
	MinFrameLen  int           `yaml:"min_frame_len"`
	MaxFrameLen  int           `yaml:"max_frame_len"`
	CheckFCS     bool          `yaml:"check_fcs"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type SessionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`

	// strftime pattern for the file name, ".log" is appended.
	FileFormat string `yaml:"file_format"`
	Compress   bool   `yaml:"compress"`
}

type ConsoleConfig struct {
	Priority int    `yaml:"default_priority"`
	Sender   NodeID `yaml:"sender"`
	Prompt   string `yaml:"prompt"`
}

type KISSConfig struct {
	Port     int    `yaml:"port"` // 0 disables
	Announce bool   `yaml:"announce"`
	Name     string `yaml:"service_name"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen"` // empty disables
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"` // empty disables
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Serial: SerialConfig{
			Device:      "virtual",
			Baud:        115200,
			ReadTimeout: 100 * time.Millisecond,
		},
		RF: RFConfig{
			Listen:       "127.0.0.1:2000",
			DatagramSize: 1024,
			MinFrameLen:  AX25MinFrameLen,
			MaxFrameLen:  DefaultMaxFrameLen,
			PollInterval: 250 * time.Millisecond,
		},
		Session: SessionConfig{
			Enabled:    true,
			Dir:        filepath.Join("save-data", "sessions"),
			FileFormat: "%Y-%m-%d_%H%M%S",
		},
		Console: ConsoleConfig{
			Priority: 4,
			Sender:   NodeCDH,
			Prompt:   "soti> ",
		},
		KISS: KISSConfig{
			Name: "SOTI ground station",
		},
		MQTT: MQTTConfig{
			ClientID:    "soti",
			TopicPrefix: "soti",
		},
	}
}

// Tried in order when no file is named on the command line.
var configSearchLocations = []string{
	"soti.yaml", // Current working directory
	filepath.Join(os.Getenv("HOME"), ".config", "soti", "soti.yaml"),
	"/usr/local/etc/soti/soti.yaml",
	"/etc/soti/soti.yaml",
}

/*------------------------------------------------------------------
 *
 * Name:	LoadConfig
 *
 * Purpose:	Defaults overlaid with the configuration file.
 *
 * Inputs:	path	- File to read.  Empty means try each of
 *			  configSearchLocations and use defaults if none
 *			  exist.  A named file that is missing is an error.
 *
 * Returns:	The config and the file it came from ("" if none).
 *
 *------------------------------------------------------------------*/

func LoadConfig(path string) (*Config, string, error) {
	var cfg = DefaultConfig()

	var candidates = configSearchLocations
	if path != "" {
		candidates = []string{path}
	}

	for _, location := range candidates {
		var data, err = os.ReadFile(location)
		if err != nil {
			if path == "" && errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, "", fmt.Errorf("failed to read config file: %w", err)
		}

		if err := cfg.decode(data); err != nil {
			return nil, "", fmt.Errorf("failed to parse config file %s: %w", location, err)
		}

		if err := cfg.Validate(); err != nil {
			return nil, "", fmt.Errorf("%s: %w", location, err)
		}

		return cfg, location, nil
	}

	return cfg, "", cfg.Validate()
}

func (c *Config) decode(data []byte) error {
	var dec = yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var err = dec.Decode(c)
	if errors.Is(err, io.EOF) {
		// Empty file
		return nil
	}

	return err
}

func (c *Config) Validate() error {
	if _, err := NewLogger(io.Discard, c.LogLevel, c.LogFormat, ""); err != nil {
		return err
	}
	if c.Serial.Device == "" {
		return fmt.Errorf("serial.device is required")
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive")
	}
	if c.RF.Listen == "" {
		return fmt.Errorf("rf.listen is required")
	}
	if c.RF.DatagramSize < 1 || c.RF.DatagramSize > 65507 {
		return fmt.Errorf("rf.datagram_size must be 1 to 65507")
	}
	if c.RF.MinFrameLen < 0 {
		return fmt.Errorf("rf.min_frame_len must not be negative")
	}
	if c.RF.MaxFrameLen != 0 && c.RF.MaxFrameLen < c.RF.MinFrameLen {
		return fmt.Errorf("rf.max_frame_len must be 0 (no limit) or at least rf.min_frame_len")
	}
	if c.RF.PollInterval <= 0 {
		return fmt.Errorf("rf.poll_interval must be positive")
	}
	if c.Session.Enabled && c.Session.FileFormat == "" {
		return fmt.Errorf("session.file_format is required")
	}
	if c.Console.Priority < 0 || c.Console.Priority > MAX_PRIORITY {
		return fmt.Errorf("console.default_priority must be 0 to %d", MAX_PRIORITY)
	}
	if !c.Console.Sender.Valid() {
		return fmt.Errorf("console.sender must be one of CDH, PWR, ADCS, PLD")
	}
	if c.KISS.Port < 0 || c.KISS.Port > 65535 {
		return fmt.Errorf("kiss.port must be 0 to 65535")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	return nil
}
