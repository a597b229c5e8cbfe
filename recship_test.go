package recship_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	recship "github.com/bft-labs/recship"
	"github.com/bft-labs/recship/internal/domain"
)

func TestRun_InvalidConfig(t *testing.T) {
	cfg := recship.DefaultConfig()
	err := recship.Run(context.Background(), cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestDefaultConfig(t *testing.T) {
	cfg := recship.DefaultConfig()
	assert.Equal(t, "about:blank", cfg.StartURL)
	assert.Equal(t, "ws://localhost:3004", cfg.Channel.URL)
	assert.Empty(t, cfg.StateDir)
}
