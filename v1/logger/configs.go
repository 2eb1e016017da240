package logger

// Log levels accepted by Config.Level.
const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Config defines the configuration for the logger.
type Config struct {
	// Level is the minimum log level to emit.
	// One of: "debug", "info", "warning", "error".
	// Default: "info"
	Level string `yaml:"level" envconfig:"ZAP_LOGGER_LEVEL"`

	// ServiceName is added as a constant "service" field to every log entry
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
}
