// Package pulsecheck provides a self-contained uptime monitor for HTTP and
// HTTPS endpoints.
//
// Users register through a JSON API, log in for a short-lived bearer token
// and register up to five checks. A background worker probes every check
// on a fixed interval, derives an up or down state from the response status
// code and sends an SMS to the owner when the state changes.
//
// # Quick Start
//
//	m, _ := pulsecheck.New(pulsecheck.WithSecret(os.Getenv("PULSECHECK_SECRET")))
//	defer m.Close()
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	m.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// Monitor uses the functional options pattern for configuration:
//
//	m, err := pulsecheck.New(
//	    pulsecheck.WithSecret(secret),
//	    pulsecheck.WithStore(boltStore),
//	    pulsecheck.WithNotifier(twilio),
//	    pulsecheck.WithPollingInterval(30 * time.Second),
//	    pulsecheck.WithPort(8080),
//	)
//
// The config package builds these options from a YAML file, opening the
// configured store and notifier.
//
// # Architecture
//
// Monitor consists of several internal packages (under internal/):
//
//   - internal/store: JSON record store with memory, bbolt and SQLite backends
//   - internal/auth: password hashing and the token authority
//   - internal/users: account registration and profile management
//   - internal/registry: check registration with per-user limits
//   - internal/poller: probe client, outcome pipeline and scheduler
//   - internal/notify: Twilio, NATS and log alert gateways
//   - internal/server: the JSON API over net/http
//
// The internal packages are not part of the public API and may change
// without notice.
package pulsecheck
