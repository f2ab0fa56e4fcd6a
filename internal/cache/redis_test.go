package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/user/crypto-analyser/pkg/config"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "crypto-analyser:catalog:100", CatalogKey(100))
	assert.Equal(t, "crypto-analyser:profile:vitalikbuterin", ProfileKey("@VitalikButerin"))
	assert.Equal(t, ProfileKey("Satoshi"), ProfileKey("satoshi"))
}

func TestNewClientUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewClient(ctx, config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
