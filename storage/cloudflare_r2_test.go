package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPublicURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		key  string
		want string
	}{
		{"host only", "https://cdn.example.com", "results/a/b.json", "https://cdn.example.com/results/a/b.json"},
		{"base with trailing slash", "https://cdn.example.com/archive/", "/results/a.json", "https://cdn.example.com/archive/results/a.json"},
		{"base without trailing slash", "https://cdn.example.com/archive", "results/a.json", "https://cdn.example.com/archive/results/a.json"},
		{"empty key", "https://cdn.example.com", "", ""},
		{"empty base", "", "results/a.json", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, joinPublicURL(tt.base, tt.key))
		})
	}
}

func TestNewR2Store(t *testing.T) {
	_, err := NewR2Store(context.Background(), R2Config{AccountID: "acc"})
	assert.Error(t, err)

	store, err := NewR2Store(context.Background(), R2Config{
		AccountID:       "acc",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		BucketName:      "results",
		PublicBaseURL:   "https://cdn.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/results/x.json", store.PublicURL("results/x.json"))
}
