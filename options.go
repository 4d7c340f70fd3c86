package pulsecheck

import (
	"errors"
	"log/slog"
	"time"
)

// monitorConfig holds mutable state during Monitor construction.
type monitorConfig struct {
	store           RecordStore
	notifier        Notifier
	secret          string
	bcryptCost      int
	port            int
	pollingInterval time.Duration
	tokenTTL        time.Duration
	tokenLength     int
	checkLength     int
	maxChecks       int
	loginPerMinute  int
	logger          *slog.Logger
	resultCallbacks []func(Result)
}

// Option is a function that configures a [Monitor] instance during construction.
//
// Options return an error if validation fails.
type Option func(*monitorConfig) error

// WithStore sets the record store. Defaults to an in-memory store.
//
// The Monitor does not close the store until [Monitor.Close] is called.
func WithStore(s RecordStore) Option {
	return func(cfg *monitorConfig) error {
		if s == nil {
			return errors.New("store cannot be nil")
		}
		cfg.store = s
		return nil
	}
}

// WithNotifier sets the alert gateway. Defaults to a notifier that only
// logs the message.
func WithNotifier(n Notifier) Option {
	return func(cfg *monitorConfig) error {
		if n == nil {
			return errors.New("notifier cannot be nil")
		}
		cfg.notifier = n
		return nil
	}
}

// WithSecret sets the key used to pepper password hashes. Required.
func WithSecret(secret string) Option {
	return func(cfg *monitorConfig) error {
		if secret == "" {
			return errors.New("secret cannot be empty")
		}
		cfg.secret = secret
		return nil
	}
}

// WithBcryptCost sets the bcrypt cost for password hashes. Zero selects
// the bcrypt default.
func WithBcryptCost(cost int) Option {
	return func(cfg *monitorConfig) error {
		cfg.bcryptCost = cost
		return nil
	}
}

// WithPort sets the HTTP port for the JSON API.
//
// Defaults to 3000 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *monitorConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithPollingInterval sets how often every check is probed.
//
// Each cycle probes all checks concurrently. Defaults to 15 seconds.
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithTokenTTL sets how long an issued or extended token stays valid.
// Defaults to one hour.
func WithTokenTTL(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return errors.New("token ttl must be positive")
		}
		cfg.tokenTTL = d
		return nil
	}
}

// WithIDLengths sets the length of token ids and check ids. The two must
// differ so that ids of one kind are never accepted as the other.
func WithIDLengths(token, check int) Option {
	return func(cfg *monitorConfig) error {
		if token < 8 || check < 8 {
			return errors.New("id lengths must be at least 8")
		}
		if token == check {
			return errors.New("token and check id lengths must differ")
		}
		cfg.tokenLength = token
		cfg.checkLength = check
		return nil
	}
}

// WithMaxChecks sets how many checks a single user may own. Defaults to 5.
func WithMaxChecks(n int) Option {
	return func(cfg *monitorConfig) error {
		if n <= 0 {
			return errors.New("max checks must be positive")
		}
		cfg.maxChecks = n
		return nil
	}
}

// WithLoginRateLimit limits login attempts per client IP per minute.
// Zero disables the limit, which is the default.
func WithLoginRateLimit(perMinute int) Option {
	return func(cfg *monitorConfig) error {
		if perMinute < 0 {
			return errors.New("login rate limit cannot be negative")
		}
		cfg.loginPerMinute = perMinute
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Monitor instance.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *monitorConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithResultCallback registers a function to be called after every probe
// has been processed.
//
// Multiple callbacks may be registered; they execute in registration order.
// Probes run concurrently, so callbacks may be invoked from several
// goroutines at once and must be safe for that. Panics within callbacks are
// recovered and logged.
//
// Example:
//
//	m, err := pulsecheck.New(
//	    pulsecheck.WithSecret(secret),
//	    pulsecheck.WithResultCallback(func(r pulsecheck.Result) {
//	        if r.State != r.Previous {
//	            log.Printf("%s is now %s", r.URL, r.State)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithResultCallback(cb func(Result)) Option {
	return func(cfg *monitorConfig) error {
		if cb == nil {
			return nil
		}
		cfg.resultCallbacks = append(cfg.resultCallbacks, cb)
		return nil
	}
}
