package ocr

import (
	"github.com/frahmantamala/invoice-management/internal"
	"google.golang.org/api/option"
)

// credentialOptions prefers inline JSON credentials over a credentials file and
// falls back to application default credentials when neither is configured.
func credentialOptions(cfg internal.ExtractionConfig) []option.ClientOption {
	switch {
	case cfg.CredentialsJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))}
	case cfg.CredentialsFile != "":
		return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}
	default:
		return nil
	}
}
