package config

const (
	defaultDataDir            = "~/.local/share/flowquest"
	defaultSegmentDir         = "~/.local/share/flowquest/segments"
	defaultLogDir             = "~/.local/share/flowquest/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultRenderWorkers      = 4
	defaultRenderFPS          = 30
	defaultRenderWidth        = 1280
	defaultRenderHeight       = 720
	defaultRenderQuality      = "preview"
	defaultRenderStyle        = "default"
	defaultShotTimeoutSeconds = 3
	defaultEncodeRetries      = 3
	defaultEncodeBackoffMS    = 50
	defaultCacheCapacity      = 256
	defaultCacheTTLSeconds    = 3600
	defaultPlannerVersion     = "planner/safe-1.0"
	defaultRendererVersion    = "renderer/1.0"
	defaultExporterVersion    = "exporter/1.0"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			SegmentDir: defaultSegmentDir,
			LogDir:     defaultLogDir,
		},
		Render: Render{
			Workers:            defaultRenderWorkers,
			FPS:                defaultRenderFPS,
			Width:              defaultRenderWidth,
			Height:             defaultRenderHeight,
			Quality:            defaultRenderQuality,
			Style:              defaultRenderStyle,
			ShotTimeoutSeconds: defaultShotTimeoutSeconds,
			EncodeRetries:      defaultEncodeRetries,
			EncodeBackoffMS:    defaultEncodeBackoffMS,
		},
		Cache: Cache{
			Capacity:   defaultCacheCapacity,
			TTLSeconds: defaultCacheTTLSeconds,
		},
		Versions: Versions{
			Planner:  defaultPlannerVersion,
			Renderer: defaultRendererVersion,
			Exporter: defaultExporterVersion,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
