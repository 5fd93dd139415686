package internal

// Option is a functional option for configuring the application.
type Option func(*application)

// Mode selects the transport the application serves.
type Mode int

// Serving modes.
const (
	ModeHTTP Mode = iota
	ModeMCP
)

type application struct {
	config  *Config
	mode    Mode
	version string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode selects HTTP or MCP stdio serving.
func WithMode(m Mode) Option {
	return func(a *application) {
		a.mode = m
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}
