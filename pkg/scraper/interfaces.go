package scraper

import (
	"context"

	"itcharchive/pkg/metadata"
)

// ItchClient defines the platform operations a run needs
type ItchClient interface {
	ListProjects(ctx context.Context, creator string) ([]string, error)
	FetchProject(ctx context.Context, projectURL string) (*metadata.Project, error)
	FetchAsset(ctx context.Context, assetURL string) ([]byte, error)
}
