package config

const (
	defaultConfigPath        = "~/.config/vidbatch/config.toml"
	defaultInputDir          = "~/Videos"
	defaultOutputDir         = "~/Videos-converted"
	defaultWorkDir           = "~/.cache/vidbatch/work"
	defaultStateDir          = "~/.local/share/vidbatch"
	defaultLogDir            = "~/.local/share/vidbatch/logs"
	defaultAPIBind           = "127.0.0.1:7490"
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultResolution        = 720
	defaultFPS               = 30
	defaultProbeWorkers      = 4
	defaultProbeTimeout      = 30
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
	defaultLogTailSize       = 30
	defaultHistoryEnabled    = true
	minFPS                   = 5
	maxFPS                   = 60
	maxResolution            = 4320
	maxProbeWorkers          = 64
	ffmpegBinaryEnvVariable  = "VIDBATCH_FFMPEG"
	ffprobeBinaryEnvVariable = "VIDBATCH_FFPROBE"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Encoder: Encoder{
			FFmpegBinary:      defaultFFmpegBinary,
			FFprobeBinary:     defaultFFprobeBinary,
			DefaultResolution: defaultResolution,
			DefaultFPS:        defaultFPS,
		},
		Probe: Probe{
			Workers:        defaultProbeWorkers,
			TimeoutSeconds: defaultProbeTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
			TailSize:      defaultLogTailSize,
		},
		History: History{
			Enabled: defaultHistoryEnabled,
		},
	}
}
