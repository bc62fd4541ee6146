package serial

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultBaudRate is used when a Config leaves BaudRate unset.
const DefaultBaudRate = 115200

// Config holds configuration parameters for opening a framed serial port.
type Config struct {
	Device   string
	BaudRate int

	// Delimiter is only used when HasDelimiter is set.
	Delimiter    byte
	HasDelimiter bool

	InitialCapacity int
	GrowthIncrement int
	PollInterval    time.Duration
}

// DefaultConfig returns a Config for device framing on '\n' at 115200 baud.
func DefaultConfig(device string) Config {
	return Config{
		Device:          device,
		BaudRate:        DefaultBaudRate,
		Delimiter:       '\n',
		HasDelimiter:    true,
		InitialCapacity: DefaultInitialCapacity,
		GrowthIncrement: DefaultGrowthIncrement,
		PollInterval:    DefaultPollInterval,
	}
}

// Validate reports the first invalid field of c.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Device) == "" {
		return fmt.Errorf("%w: empty device", ErrInvalidConfig)
	}
	if _, ok := baudToUnix(c.BaudRate); !ok {
		return fmt.Errorf("%w: %d", ErrUnsupportedBaud, c.BaudRate)
	}
	if c.InitialCapacity < 0 {
		return fmt.Errorf("%w: initial capacity %d", ErrInvalidConfig, c.InitialCapacity)
	}
	if c.GrowthIncrement < 0 {
		return fmt.Errorf("%w: growth increment %d", ErrInvalidConfig, c.GrowthIncrement)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("%w: poll interval %v", ErrInvalidConfig, c.PollInterval)
	}
	return nil
}

// Options converts c into FramedQueue options. Zero sizes and intervals keep
// the FramedQueue defaults.
func (c Config) Options() ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var opts []Option
	if c.HasDelimiter {
		opts = append(opts, WithDelimiter(c.Delimiter))
	}
	if c.InitialCapacity > 0 {
		opts = append(opts, WithInitialCapacity(c.InitialCapacity))
	}
	if c.GrowthIncrement > 0 {
		opts = append(opts, WithGrowthIncrement(c.GrowthIncrement))
	}
	if c.PollInterval > 0 {
		opts = append(opts, WithPollInterval(c.PollInterval))
	}

	return opts, nil
}

// ParseDelimiter parses a single delimiter byte. s is either one raw byte or a
// Go escape sequence such as `\n`, `\r` or `\x03`.
func ParseDelimiter(s string) (byte, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	u, err := strconv.Unquote(`"` + s + `"`)
	if err != nil || len(u) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDelimiter, s)
	}
	return u[0], nil
}

// FileConfig is the decoded form of a TOML configuration file.
type FileConfig struct {
	LogLevel string
	Ports    []Config
}

type filePort struct {
	Device          string  `toml:"device"`
	BaudRate        *int    `toml:"baud_rate"`
	Delimiter       *string `toml:"delimiter"`
	DelimiterByte   *int    `toml:"delimiter_byte"`
	InitialCapacity *int    `toml:"initial_capacity"`
	GrowthIncrement *int    `toml:"growth_increment"`
	PollInterval    *string `toml:"poll_interval"`
	PollIntervalMS  *int64  `toml:"poll_interval_ms"`
}

type fileConfig struct {
	LogLevel string     `toml:"log_level"`
	Ports    []filePort `toml:"port"`
}

// LoadConfig reads a TOML file describing one or more ports. Keys left out of
// a [[port]] table keep the DefaultConfig values; an empty delimiter string
// disables framing.
func LoadConfig(path string) (*FileConfig, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, undecoded[0].String())
	}

	out := &FileConfig{LogLevel: "info"}
	if meta.IsDefined("log_level") {
		out.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	for i, fp := range raw.Ports {
		cfg, err := fp.toConfig()
		if err != nil {
			return nil, fmt.Errorf("port %d: %w", i, err)
		}
		out.Ports = append(out.Ports, cfg)
	}

	return out, nil
}

func (fp filePort) toConfig() (Config, error) {
	cfg := DefaultConfig(strings.TrimSpace(fp.Device))

	if fp.BaudRate != nil {
		cfg.BaudRate = *fp.BaudRate
	}

	if fp.Delimiter != nil && fp.DelimiterByte != nil {
		return Config{}, fmt.Errorf("%w: delimiter and delimiter_byte are exclusive", ErrInvalidConfig)
	}
	if fp.Delimiter != nil {
		if *fp.Delimiter == "" {
			cfg.Delimiter = 0
			cfg.HasDelimiter = false
		} else {
			b, err := ParseDelimiter(*fp.Delimiter)
			if err != nil {
				return Config{}, err
			}
			cfg.Delimiter = b
		}
	}
	if fp.DelimiterByte != nil {
		v := *fp.DelimiterByte
		if v < 0 || v > 0xff {
			return Config{}, fmt.Errorf("%w: delimiter_byte %d", ErrInvalidDelimiter, v)
		}
		cfg.Delimiter = byte(v)
	}

	if fp.InitialCapacity != nil {
		cfg.InitialCapacity = *fp.InitialCapacity
	}
	if fp.GrowthIncrement != nil {
		cfg.GrowthIncrement = *fp.GrowthIncrement
	}

	if fp.PollInterval != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*fp.PollInterval))
		if err != nil {
			return Config{}, fmt.Errorf("parse poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}
	if fp.PollIntervalMS != nil {
		cfg.PollInterval = time.Duration(*fp.PollIntervalMS) * time.Millisecond
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
