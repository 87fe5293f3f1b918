package blob

import "github.com/phrazzld/audiobrief/internal/config"

func configFor(provider string) config.BlobConfig {
	return config.BlobConfig{
		Provider: provider,
		BaseURL:  DefaultVercelBaseURL,
		Token:    "token",
	}
}
