package extract

import (
	"fmt"

	"recbox/config"
)

// CreateProvider picks the configured extraction provider.
func CreateProvider(cfg *config.Config) (Provider, error) {
	switch cfg.ExtractProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai extraction provider")
		}
		return NewOpenAIProvider(cfg.OpenAIKey), nil
	case "remote", "":
		if cfg.ExtractURL == "" {
			return nil, fmt.Errorf("EXTRACT_URL is required for the remote extraction provider")
		}
		return NewRemoteProvider(cfg.ExtractURL, cfg.ExtractKey), nil
	default:
		return nil, fmt.Errorf("unknown extraction provider: %s", cfg.ExtractProvider)
	}
}
