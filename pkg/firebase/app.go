// Package firebase wires the Firebase Admin SDK into the identity verifier and
// the push notification sender.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebasesdk "firebase.google.com/go/v4"

	"github.com/angelmondragon/univend-backend/pkg/config"
	"github.com/angelmondragon/univend-backend/pkg/gcp"
)

var errProjectIDRequired = errors.New("firebase project id is required")

// NewApp initialises the Admin SDK. The Firebase project defaults to the GCP
// project when it is not set on its own.
func NewApp(ctx context.Context, gcpCfg config.GCPConfig, cfg config.FirebaseConfig) (*firebasesdk.App, error) {
	projectID := projectID(gcpCfg, cfg)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	app, err := firebasesdk.NewApp(ctx, &firebasesdk.Config{ProjectID: projectID}, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	return app, nil
}

func projectID(gcpCfg config.GCPConfig, cfg config.FirebaseConfig) string {
	if id := strings.TrimSpace(cfg.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(gcpCfg.ProjectID)
}
