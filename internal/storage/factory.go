// Package storage builds the configured object store for finished
// artifacts.
package storage

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"slidecast/internal/adapters/storage/gdrive"
	"slidecast/internal/adapters/storage/localfs"
)

// NewProvider returns the store named by STORAGE_PROVIDER. localRoot
// is the workspace root the localfs adapter writes under.
func NewProvider(localRoot string) (Store, error) {
	provider := os.Getenv("STORAGE_PROVIDER")
	switch provider {
	case "", "localfs":
		return localfs.New(localRoot), nil
	case "gdrive":
		return newGDrive(context.Background())
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", provider)
	}
}

// newGDrive builds a Drive-backed store from the GDRIVE_* credentials
// minted by cmd/gdrive-auth.
func newGDrive(ctx context.Context) (Store, error) {
	var missing []string
	get := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	conf := &oauth2.Config{
		ClientID:     get("GDRIVE_CLIENT_ID"),
		ClientSecret: get("GDRIVE_CLIENT_SECRET"),
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}
	token := &oauth2.Token{RefreshToken: get("GDRIVE_REFRESH_TOKEN")}
	if len(missing) > 0 {
		return nil, fmt.Errorf("gdrive provider needs %v", missing)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(conf.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("gdrive service: %w", err)
	}
	return gdrive.NewClient(srv, os.Getenv("GDRIVE_FOLDER_ID")), nil
}
