package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGenerator()
	c.normalizeEmbeddings()
	c.normalizeScrape()
	c.normalizeIndex()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeGenerator() {
	if c.Generator.APIKey == "" {
		if value, ok := os.LookupEnv("BOOKFORGE_GENERATOR_API_KEY"); ok {
			c.Generator.APIKey = value
		}
	}
	c.Generator.APIKey = strings.TrimSpace(c.Generator.APIKey)
	c.Generator.BaseURL = strings.TrimSpace(c.Generator.BaseURL)
	if c.Generator.BaseURL == "" {
		c.Generator.BaseURL = defaultGeneratorBaseURL
	}
	c.Generator.Model = strings.TrimSpace(c.Generator.Model)
	if c.Generator.Model == "" {
		c.Generator.Model = defaultGeneratorModel
	}
	if c.Generator.TimeoutSeconds <= 0 {
		c.Generator.TimeoutSeconds = defaultGeneratorTimeout
	}
}

func (c *Config) normalizeEmbeddings() {
	if c.Embeddings.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Embeddings.APIKey = value
		}
	}
	c.Embeddings.APIKey = strings.TrimSpace(c.Embeddings.APIKey)
	c.Embeddings.Provider = strings.ToLower(strings.TrimSpace(c.Embeddings.Provider))
	if c.Embeddings.Provider == "" {
		c.Embeddings.Provider = defaultEmbedProvider
	}
	c.Embeddings.Model = strings.TrimSpace(c.Embeddings.Model)
	if c.Embeddings.Model == "" {
		c.Embeddings.Model = defaultEmbedModel
	}
	if c.Embeddings.Dimensions <= 0 {
		c.Embeddings.Dimensions = defaultEmbedDimensions
	}
	if c.Embeddings.TimeoutSeconds <= 0 {
		c.Embeddings.TimeoutSeconds = defaultEmbedTimeout
	}
}

func (c *Config) normalizeScrape() {
	c.Scrape.UserAgent = strings.TrimSpace(c.Scrape.UserAgent)
	if c.Scrape.UserAgent == "" {
		c.Scrape.UserAgent = defaultScrapeUserAgent
	}
	if c.Scrape.TimeoutSeconds <= 0 {
		c.Scrape.TimeoutSeconds = defaultScrapeTimeout
	}
	if c.Scrape.MaxBodyBytes <= 0 {
		c.Scrape.MaxBodyBytes = defaultScrapeMaxBody
	}
}

func (c *Config) normalizeIndex() {
	if c.Index.QueueSize <= 0 {
		c.Index.QueueSize = defaultIndexQueueSize
	}
	if c.Index.RetryMaxAttempts <= 0 {
		c.Index.RetryMaxAttempts = defaultIndexRetryMax
	}
	if c.Index.RetryDelaySeconds <= 0 {
		c.Index.RetryDelaySeconds = defaultIndexRetryDelay
	}
	if c.Index.BootstrapBatch <= 0 {
		c.Index.BootstrapBatch = defaultIndexBootstrapBat
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
