package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicURL(t *testing.T) {
	cases := []struct {
		name, base, key, want string
	}{
		{"plain host", "https://cdn.example.com", "participants/kite-1.png", "https://cdn.example.com/participants/kite-1.png"},
		{"trailing slash", "https://cdn.example.com/", "judges/a.jpg", "https://cdn.example.com/judges/a.jpg"},
		{"leading slash in key", "https://cdn.example.com/media", "/judges/a.jpg", "https://cdn.example.com/media/judges/a.jpg"},
		{"empty key", "https://cdn.example.com", "", ""},
		{"empty base", "", "judges/a.jpg", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PublicURL(tc.base, tc.key)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewCloudflareR2Uploader_RequiresConfig(t *testing.T) {
	_, err := NewCloudflareR2Uploader(context.Background(), CloudflareR2UploaderConfig{BucketName: "media"}, nil)
	assert.ErrorIs(t, err, ErrR2ConfigIncomplete)

	cfg := CloudflareR2UploaderConfig{
		AccountID:       "acc",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		BucketName:      "media",
		PublicBaseURL:   "https://cdn.example.com",
	}
	assert.True(t, cfg.Enabled())
	assert.Equal(t, "https://acc.r2.cloudflarestorage.com", cfg.endpoint())
}
