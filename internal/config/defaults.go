package config

const (
	defaultStagingDir         = "~/.local/share/echoai/jobs"
	defaultLibraryDir         = "~/.local/share/echoai/videos"
	defaultLogDir             = "~/.local/share/echoai/logs"
	defaultAssetsDir          = "~/.local/share/echoai/assets"
	defaultAPIBind            = "127.0.0.1:8437"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultScriptBaseURL      = "https://openrouter.ai/api/v1/chat/completions"
	defaultScriptModel        = "anthropic/claude-3.5-haiku"
	defaultScriptTimeout      = 60
	defaultVoiceTimeout       = 60
	defaultVoiceQuota         = 65
	defaultEdgeBinary         = "edge-tts"
	defaultEdgeVoice          = "en-US-GuyNeural"
	defaultImagesTimeout      = 30
	defaultImagesMaxPerJob    = 12
	defaultToleranceSeconds   = 0.2
	defaultTransitionSeconds  = 0.5
	defaultMinImageSeconds    = 1.5
	defaultFFmpegBinary       = "ffmpeg"
	defaultRenderTimeout      = 600
	defaultRenderCRF          = 23
	defaultRenderPreset       = "medium"
	defaultAudioBitrate       = "128k"
	defaultWorkers            = 2
	defaultQueuePollInterval  = 2
	defaultErrorRetryInterval = 5
	defaultNotifyTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			AssetsDir:  defaultAssetsDir,
			APIBind:    defaultAPIBind,
		},
		Script: Script{
			Providers:      []string{"openrouter", "pollinations"},
			BaseURL:        defaultScriptBaseURL,
			Model:          defaultScriptModel,
			TimeoutSeconds: defaultScriptTimeout,
		},
		Voice: Voice{
			Providers:      []string{"elevenlabs", "edge"},
			MonthlyQuota:   defaultVoiceQuota,
			EdgeBinary:     defaultEdgeBinary,
			EdgeVoice:      defaultEdgeVoice,
			TimeoutSeconds: defaultVoiceTimeout,
		},
		Images: Images{
			Providers:      []string{"pexels", "unsplash"},
			TimeoutSeconds: defaultImagesTimeout,
			MaxPerJob:      defaultImagesMaxPerJob,
		},
		Timing: Timing{
			ToleranceSeconds:       defaultToleranceSeconds,
			TransitionSeconds:      defaultTransitionSeconds,
			DefaultMinImageSeconds: defaultMinImageSeconds,
			MinImageSeconds: map[string]float64{
				"viral_facts":  1.5,
				"story_time":   2.5,
				"motivational": 2.0,
				"educational":  2.0,
			},
		},
		Render: Render{
			FFmpegBinary:   defaultFFmpegBinary,
			TimeoutSeconds: defaultRenderTimeout,
			CRF:            defaultRenderCRF,
			Preset:         defaultRenderPreset,
			AudioBitrate:   defaultAudioBitrate,
		},
		Workflow: Workflow{
			Workers:            defaultWorkers,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completion:     true,
			Errors:         true,
		},
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}
