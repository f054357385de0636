package assets

import (
	"fmt"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/korjavin/echobridge/internal/infrastructure/config"
)

// FromConfig builds the configured Store together with its URL resolver.
func FromConfig(cfg *config.Config) (Store, URLResolver, error) {
	switch cfg.Assets.Backend {
	case "local", "":
		local, err := NewLocal(cfg.Assets.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("init local assets: %w", err)
		}
		return local, NewPublicURLResolver(cfg.Server.PublicBaseURL), nil
	case "s3":
		s3cfg := cfg.Assets.S3
		client := NewS3Client(S3Options{
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			UsePathStyle:    s3cfg.UsePathStyle,
		})
		staging := filepath.Join(cfg.Transcode.TempDir, "echobridge-staging")
		store, err := NewS3(client, s3.NewPresignClient(client), s3cfg.Bucket, s3cfg.Prefix, staging, s3cfg.PresignTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("init s3 assets: %w", err)
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unsupported assets backend: %s", cfg.Assets.Backend)
	}
}
