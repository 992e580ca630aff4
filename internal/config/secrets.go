package config

import (
	"context"
	"fmt"
)

// SecretSource looks up a named secret. found is false when the secret
// does not exist; err is reserved for failures of the source itself.
type SecretSource interface {
	GetSecret(ctx context.Context, name string) (value string, found bool, err error)
}

// secretBindings maps vault secret names to the config fields they fill.
var secretBindings = []struct {
	name  string
	field func(*Config) *string
}{
	{"AZURE-COSMOS-CONNECTION-STRING", func(c *Config) *string { return &c.Cosmos.ConnectionString }},
	{"AZURE-COSMOS-ENDPOINT", func(c *Config) *string { return &c.Cosmos.Endpoint }},
	{"AZURE-COSMOS-DATABASE-NAME", func(c *Config) *string { return &c.Cosmos.DatabaseName }},
	{"MONGO-URI", func(c *Config) *string { return &c.Mongo.URI }},
	{"PG-DSN", func(c *Config) *string { return &c.PG.DSN }},
	{"REDIS-URL", func(c *Config) *string { return &c.Redis.URL }},
	{"APPLICATIONINSIGHTS-CONNECTION-STRING", func(c *Config) *string { return &c.Telemetry.AppInsightsConnectionString }},
}

// ApplySecrets overwrites the mapped fields of cfg with the secrets found
// in src. Missing secrets leave the field untouched.
func ApplySecrets(ctx context.Context, cfg *Config, src SecretSource) (applied []string, err error) {
	for _, b := range secretBindings {
		v, found, err := src.GetSecret(ctx, b.name)
		if err != nil {
			return applied, fmt.Errorf("secret %s: %w", b.name, err)
		}
		if !found {
			continue
		}
		*b.field(cfg) = v
		applied = append(applied, b.name)
	}
	return applied, nil
}
