package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	serial "github.com/luhtfiimanal/go-serial-framer"
)

type options struct {
	configPath string

	device        string
	baud          int
	delimiter     string
	delimiterByte int
	poll          time.Duration

	send     []byte
	logLevel string

	flags *pflag.FlagSet
}

func parseFlags(args []string) (*options, error) {
	var opts options
	var send string

	flagSet := pflag.NewFlagSet("serialframe", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "TOML file describing the ports to open")
	flagSet.StringVarP(&opts.device, "device", "d", "", "serial device to open (ignored with --config)")
	flagSet.IntVarP(&opts.baud, "baud", "b", serial.DefaultBaudRate, "baud rate")
	flagSet.StringVar(&opts.delimiter, "delimiter", `\n`, `delimiter byte, raw or escaped (e.g. "\n", "\x03"); empty disables framing`)
	flagSet.IntVar(&opts.delimiterByte, "delimiter-byte", -1, "delimiter as a numeric byte value, overrides --delimiter")
	flagSet.DurationVar(&opts.poll, "poll", serial.DefaultPollInterval, "minimum interval between transport polls")
	flagSet.StringVar(&send, "send", "", "escaped bytes to write to each port after opening")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config, else info)")
	flagSet.SetOutput(os.Stderr)
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: serialframe [--config FILE | --device DEV] [flags]\n\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if flagSet.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}

	if send != "" {
		s, err := strconv.Unquote(`"` + send + `"`)
		if err != nil {
			return nil, fmt.Errorf("parse --send: %w", err)
		}
		opts.send = []byte(s)
	}
	opts.flags = flagSet

	return &opts, nil
}

// resolvePorts builds the port list from --config, or from the single-device
// flags when no config file is given. Flags explicitly set on the command line
// override the values of every configured port.
func resolvePorts(opts *options) ([]serial.Config, error) {
	var ports []serial.Config

	if opts.configPath != "" {
		fc, err := serial.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		if opts.logLevel == "" {
			opts.logLevel = fc.LogLevel
		}
		ports = fc.Ports
	} else {
		if opts.device == "" {
			return nil, fmt.Errorf("one of --config or --device is required")
		}
		ports = []serial.Config{serial.DefaultConfig(opts.device)}
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("no ports configured in %s", opts.configPath)
	}

	fromFile := opts.configPath != ""
	for i := range ports {
		if !fromFile || opts.flags.Changed("baud") {
			ports[i].BaudRate = opts.baud
		}
		if !fromFile || opts.flags.Changed("poll") {
			ports[i].PollInterval = opts.poll
		}
		if !fromFile || opts.flags.Changed("delimiter") || opts.flags.Changed("delimiter-byte") {
			if err := applyDelimiter(&ports[i], opts); err != nil {
				return nil, err
			}
		}
		if err := ports[i].Validate(); err != nil {
			return nil, err
		}
	}

	return ports, nil
}

func applyDelimiter(cfg *serial.Config, opts *options) error {
	if opts.delimiterByte >= 0 {
		if opts.delimiterByte > 0xff {
			return fmt.Errorf("%w: --delimiter-byte %d", serial.ErrInvalidDelimiter, opts.delimiterByte)
		}
		cfg.Delimiter = byte(opts.delimiterByte)
		cfg.HasDelimiter = true
		return nil
	}
	if opts.delimiter == "" {
		cfg.Delimiter = 0
		cfg.HasDelimiter = false
		return nil
	}
	b, err := serial.ParseDelimiter(opts.delimiter)
	if err != nil {
		return err
	}
	cfg.Delimiter = b
	cfg.HasDelimiter = true
	return nil
}
