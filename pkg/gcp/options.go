// Package gcp builds the credential options shared by every Google client.
package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/angelmondragon/univend-backend/pkg/config"
)

// ClientOptions prefers inline JSON credentials over a credentials file and
// falls back to application default credentials when neither is set.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(cfg.ApplicationCredentials))
	}
	return opts
}
