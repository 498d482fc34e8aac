package config

const (
	defaultConfigPath         = "~/.config/lawfeed/config.toml"
	defaultIncomingDir        = "~/.local/share/lawfeed/incoming"
	defaultArchiveDir         = "~/.local/share/lawfeed/archive"
	defaultDataDir            = "~/.local/share/lawfeed"
	defaultLogDir             = "~/.local/share/lawfeed/logs"
	defaultEncoding           = "windows-1252"
	defaultPageSize           = 100
	defaultCollatePoll        = 30
	defaultDispatchPoll       = 10
	defaultErrorRetryInterval = 30
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 60

	// UnhandledMarkProcessed marks fragments without a handler as processed.
	UnhandledMarkProcessed = "mark_processed"
	// UnhandledLeavePending keeps fragments without a handler pending.
	UnhandledLeavePending = "leave_pending"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			IncomingDir: defaultIncomingDir,
			ArchiveDir:  defaultArchiveDir,
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
		},
		Feed: Feed{
			DefaultEncoding: defaultEncoding,
			FilePatterns:    []string{"SOBI.D*", "*.TXT", "*.XML"},
		},
		Collate: Collate{
			PageSize:     defaultPageSize,
			PollInterval: defaultCollatePoll,
		},
		Dispatch: Dispatch{
			PageSize:        defaultPageSize,
			PollInterval:    defaultDispatchPoll,
			UnhandledPolicy: UnhandledMarkProcessed,
		},
		Workflow: Workflow{
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
