package examine

import (
	"time"

	"go.uber.org/zap"
)

// Built-in service names.
const (
	ServiceLocal  = "local"
	ServiceRemote = "remote"
)

// Factory builds a Service from the generic config below.
type Factory func(Config) Service

// Config carries the knobs used by services.
type Config struct {
	// Remote
	URL         string
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	Logger *zap.Logger
}

var registry = map[string]Factory{}

// Register registers a service name with its factory.
func Register(name string, f Factory) { registry[name] = f }

// New creates the named Service if registered.
func New(name string, cfg Config) (Service, bool) {
	if f, ok := registry[name]; ok {
		return f(cfg), true
	}
	return nil, false
}

func init() {
	Register(ServiceLocal, func(Config) Service { return NewLocal() })
	Register(ServiceRemote, func(c Config) Service {
		return NewRemote(c.URL, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay, c.Logger)
	})
}
