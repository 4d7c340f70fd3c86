package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jpalmerr/pulsecheck"
	"github.com/jpalmerr/pulsecheck/internal/notify"
	"github.com/jpalmerr/pulsecheck/internal/store"
)

// Build converts a parsed configuration into monitor options, opening the
// configured store and notifier.
//
// The returned options hand ownership of the store and notifier to the
// Monitor; release them with Monitor.Close. If Build fails, anything it
// opened is closed before returning.
func Build(ctx context.Context, cfg *Config, logger *slog.Logger) ([]pulsecheck.Option, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	notifier, err := OpenNotifier(cfg.Notifier, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return []pulsecheck.Option{
		pulsecheck.WithPort(cfg.Port),
		pulsecheck.WithSecret(cfg.SecretKey),
		pulsecheck.WithIDLengths(cfg.TokenLength, cfg.CheckLength),
		pulsecheck.WithMaxChecks(cfg.MaxChecks),
		pulsecheck.WithTokenTTL(cfg.TokenTTL.Duration()),
		pulsecheck.WithPollingInterval(cfg.PollInterval.Duration()),
		pulsecheck.WithLoginRateLimit(cfg.RateLimit.LoginPerMinute),
		pulsecheck.WithLogger(logger),
		pulsecheck.WithStore(st),
		pulsecheck.WithNotifier(notifier),
	}, nil
}

// OpenStore opens the record store selected by sc. File-backed stores get
// their parent directory created.
func OpenStore(ctx context.Context, sc StoreConfig) (pulsecheck.RecordStore, error) {
	switch sc.Driver {
	case "", StoreMemory:
		return store.NewMemoryStore(), nil
	case StoreBolt, StoreSQLite:
		if err := ensureDir(sc.Path); err != nil {
			return nil, err
		}
		if sc.Driver == StoreBolt {
			return store.NewBoltStore(sc.Path)
		}
		return store.NewSQLiteStore(ctx, sc.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

// OpenNotifier builds the alert gateway selected by nc.
func OpenNotifier(nc NotifierConfig, logger *slog.Logger) (pulsecheck.Notifier, error) {
	switch nc.Driver {
	case "", NotifierLog:
		return notify.NewLog(logger), nil
	case NotifierTwilio:
		return notify.NewTwilio(notify.TwilioConfig{
			AccountSID:    nc.Twilio.AccountSID,
			AuthToken:     nc.Twilio.AuthToken,
			FromPhone:     nc.Twilio.FromPhone,
			CountryPrefix: nc.Twilio.CountryPrefix,
			BaseURL:       nc.Twilio.BaseURL,
			Timeout:       nc.Twilio.Timeout.Duration(),
		})
	case NotifierNATS:
		return notify.DialNATS(nc.NATS.URL, nc.NATS.Subject)
	default:
		return nil, fmt.Errorf("unknown notifier driver %q", nc.Driver)
	}
}

func ensureDir(path string) error {
	if path == "" {
		return errors.New("store path is required")
	}
	if path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}
