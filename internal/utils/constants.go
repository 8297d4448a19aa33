package utils

// EmptyString represents a reusable empty string constant.
const EmptyString = ""

// ErrorLogFormat defines the formatting string for error log messages.
const ErrorLogFormat = "Error: %v"

const (
	// LoggerInitializationFailedMessageFormat reports a logger construction failure.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes the fatal log line of a failed run.
	ApplicationExecutionFailedMessage = "amalgam failed"
	// GlobalConfigDirectoryName is the directory under the user's home holding the global configuration.
	GlobalConfigDirectoryName = ".amalgam"
	// ConfigFileName is the name of the global configuration file.
	ConfigFileName = "config.yaml"
	// LocalConfigFileName is the name of the configuration file looked up in the working directory.
	LocalConfigFileName = ".amalgam.yaml"
	// EnvironmentPrefix prefixes environment variables that override configuration keys.
	EnvironmentPrefix = "AMALGAM"
	// StandardStreamPath selects standard output as the merge destination.
	StandardStreamPath = "-"
)
