package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Endpoints: EndpointsConfig{
			Fingerprint:   "https://api.audd.io/",
			Transcription: "https://api.assemblyai.com",
			Lyrics:        "https://api.genius.com",
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Recognition: RecognitionConfig{
			Language:            "auto",
			ChunkIntervalMS:     8000,
			MinCredentialLength: 10,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "earworm",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		History: HistoryConfig{
			Backend:  "sqlite",
			RedisKey: "earworm:history",
			Limit:    20,
		},
		Debug: DebugConfig{},
	}
}
