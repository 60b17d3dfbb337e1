package config

const (
	defaultDataDir           = "~/.local/share/bookforge"
	defaultLogDir            = "~/.local/share/bookforge/logs"
	defaultAPIBind           = "127.0.0.1:7319"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultGeneratorBaseURL  = "https://openrouter.ai/api/v1/chat/completions"
	defaultGeneratorModel    = "google/gemini-2.5-pro"
	defaultGeneratorTitle    = "Bookforge"
	defaultGeneratorTimeout  = 120
	defaultEmbedProvider     = "local"
	defaultEmbedModel        = "text-embedding-3-small"
	defaultEmbedDimensions   = 256
	defaultEmbedTimeout      = 30
	defaultScrapeUserAgent   = "Bookforge/dev"
	defaultScrapeTimeout     = 30
	defaultScrapeMaxBody     = 4 << 20
	defaultIndexQueueSize    = 128
	defaultIndexRetryMax     = 5
	defaultIndexRetryDelay   = 2
	defaultIndexBootstrapBat = 200
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Generator: Generator{
			BaseURL:        defaultGeneratorBaseURL,
			Model:          defaultGeneratorModel,
			Title:          defaultGeneratorTitle,
			TimeoutSeconds: defaultGeneratorTimeout,
		},
		Embeddings: Embeddings{
			Provider:       defaultEmbedProvider,
			Model:          defaultEmbedModel,
			Dimensions:     defaultEmbedDimensions,
			TimeoutSeconds: defaultEmbedTimeout,
		},
		Scrape: Scrape{
			UserAgent:      defaultScrapeUserAgent,
			TimeoutSeconds: defaultScrapeTimeout,
			MaxBodyBytes:   defaultScrapeMaxBody,
			SaveSnapshots:  true,
		},
		Index: Index{
			QueueSize:         defaultIndexQueueSize,
			RetryMaxAttempts:  defaultIndexRetryMax,
			RetryDelaySeconds: defaultIndexRetryDelay,
			BootstrapBatch:    defaultIndexBootstrapBat,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
