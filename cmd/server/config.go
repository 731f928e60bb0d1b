package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/sakif/whiteboard/internal/server"
)

// options is everything main needs from the command line.
type options struct {
	Server server.Config
	Level  slog.Level
	// Discover, when positive, lists servers found on the LAN for this long
	// and exits instead of serving.
	Discover time.Duration
}

// loadConfig layers environment variables over server.DefaultConfig, then
// command-line flags over both. getenv is os.Getenv outside tests.
//
// ENVIRONMENT:
//
//	PORT             listen port (default 5000)
//	LOG_LEVEL        debug | info | warn | error
//	CORS_ORIGINS     comma-separated browser origins
//	EMPTY_ROOM_TTL   e.g. 24h
//	STALE_ROOM_AGE   e.g. 48h
//	SWEEP_INTERVAL   e.g. 1h
//	SEND_BUFFER      frames queued per connection
//	MDNS_ENABLED     true to advertise on the LAN
//	MDNS_INSTANCE    mDNS instance name (default hostname)
func loadConfig(args []string, getenv func(string) string) (options, error) {
	cfg := server.DefaultConfig()
	levelName := "info"
	var discover time.Duration

	if err := applyEnv(&cfg, &levelName, getenv); err != nil {
		return options{}, err
	}

	flags := pflag.NewFlagSet("whiteboard", pflag.ContinueOnError)
	flags.IntVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP listen port")
	flags.StringVar(&levelName, "log-level", levelName, "log level: debug, info, warn, error")
	flags.StringSliceVar(&cfg.CORSOrigins, "cors-origin", cfg.CORSOrigins, "allowed browser origin (repeatable)")
	flags.DurationVar(&cfg.EmptyRoomTTL, "empty-room-ttl", cfg.EmptyRoomTTL, "delete a room this long after its last user leaves")
	flags.DurationVar(&cfg.StaleRoomAge, "stale-room-age", cfg.StaleRoomAge, "sweep empty rooms idle longer than this")
	flags.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "how often the stale room sweep runs")
	flags.IntVar(&cfg.SendBuffer, "send-buffer", cfg.SendBuffer, "outbound frames queued per connection")
	flags.BoolVar(&cfg.MDNSEnabled, "mdns", cfg.MDNSEnabled, "advertise the server over mDNS")
	flags.StringVar(&cfg.MDNSInstance, "mdns-instance", cfg.MDNSInstance, "mDNS instance name")
	flags.DurationVar(&discover, "discover", 0, "list whiteboard servers on the LAN for this long, then exit")

	if err := flags.Parse(args); err != nil {
		return options{}, err
	}

	level, err := parseLevel(levelName)
	if err != nil {
		return options{}, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return options{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.SweepInterval <= 0 {
		return options{}, fmt.Errorf("sweep interval must be positive, got %s", cfg.SweepInterval)
	}
	return options{Server: cfg, Level: level, Discover: discover}, nil
}

func applyEnv(cfg *server.Config, levelName *string, getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v) // Atoi = ASCII to Integer
		if err != nil {
			return fmt.Errorf("invalid PORT value %q", v)
		}
		cfg.Port = port
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		*levelName = v
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSOrigins = origins
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"EMPTY_ROOM_TTL", &cfg.EmptyRoomTTL},
		{"STALE_ROOM_AGE", &cfg.StaleRoomAge},
		{"SWEEP_INTERVAL", &cfg.SweepInterval},
	}
	for _, d := range durations {
		if v := getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s value %q: %w", d.key, v, err)
			}
			*d.dst = parsed
		}
	}

	if v := getenv("SEND_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SEND_BUFFER value %q", v)
		}
		cfg.SendBuffer = n
	}
	if v := getenv("MDNS_ENABLED"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MDNS_ENABLED value %q", v)
		}
		cfg.MDNSEnabled = on
	}
	if v := getenv("MDNS_INSTANCE"); v != "" {
		cfg.MDNSInstance = v
	}
	return nil
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}
