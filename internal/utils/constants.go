package utils

const (
	// EmptyString represents a reusable empty string constant.
	EmptyString = ""
	// ConfigFileName is the name of the configuration file in both local and global locations.
	ConfigFileName = "config.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home that holds global configuration.
	GlobalConfigDirectoryName = ".mktree"
	// DefaultStructureFileName is read when no structure file is given.
	DefaultStructureFileName = "structure.txt"
	// IgnoreFileName lists exclusion patterns picked up from the working directory.
	IgnoreFileName = ".mktreeignore"
	// StandardInputPath selects standard input as the structure source.
	StandardInputPath = "-"

	// LoggerInitializationFailedMessageFormat reports a logger construction failure.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes fatal errors returned by the CLI.
	ApplicationExecutionFailedMessage = "mktree failed"
)
