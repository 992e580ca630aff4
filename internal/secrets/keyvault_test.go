package secrets

import (
	"context"
	"net/http"
	"testing"

	"todoapi/internal/config"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	azfake "github.com/Azure/azure-sdk-for-go/sdk/azcore/fake"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeVault(t *testing.T, secrets map[string]string, forbidden ...string) *KeyVault {
	t.Helper()
	srv := fake.Server{
		GetSecret: func(_ context.Context, name, _ string, _ *azsecrets.GetSecretOptions) (resp azfake.Responder[azsecrets.GetSecretResponse], errResp azfake.ErrorResponder) {
			for _, f := range forbidden {
				if f == name {
					errResp.SetResponseError(http.StatusForbidden, "Forbidden")
					return
				}
			}
			v, ok := secrets[name]
			if !ok {
				errResp.SetResponseError(http.StatusNotFound, "SecretNotFound")
				return
			}
			resp.SetResponse(http.StatusOK, azsecrets.GetSecretResponse{
				Secret: azsecrets.Secret{Value: to.Ptr(v)},
			}, nil)
			return
		},
	}
	kv, err := NewKeyVault("https://todo.vault.azure.net/", &azfake.TokenCredential{}, &azsecrets.ClientOptions{
		ClientOptions: azcore.ClientOptions{Transport: fake.NewServerTransport(&srv)},
	})
	require.NoError(t, err)
	return kv
}

func TestKeyVault_GetSecret(t *testing.T) {
	kv := newFakeVault(t, map[string]string{"PG-DSN": "postgres://todo@db/todo"})
	ctx := context.Background()

	v, found, err := kv.GetSecret(ctx, "PG-DSN")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "postgres://todo@db/todo", v)

	_, found, err = kv.GetSecret(ctx, "REDIS-URL")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestKeyVault_SourceErrorAborts(t *testing.T) {
	kv := newFakeVault(t, nil, "AZURE-COSMOS-CONNECTION-STRING")

	_, _, err := kv.GetSecret(context.Background(), "AZURE-COSMOS-CONNECTION-STRING")
	require.Error(t, err)

	var cfg config.Config
	_, err = config.ApplySecrets(context.Background(), &cfg, kv)
	assert.Error(t, err)
}

func TestKeyVault_BindsConfig(t *testing.T) {
	kv := newFakeVault(t, map[string]string{
		"AZURE-COSMOS-CONNECTION-STRING": "AccountEndpoint=https://todo.documents.azure.com:443/;AccountKey=a2V5;",
		"REDIS-URL":                      "redis://cache:6379/1",
	})
	cfg := config.Config{Cosmos: config.CosmosConfig{DatabaseName: "Todo"}}

	applied, err := config.ApplySecrets(context.Background(), &cfg, kv)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"AZURE-COSMOS-CONNECTION-STRING", "REDIS-URL"}, applied)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.Equal(t, "Todo", cfg.Cosmos.DatabaseName)
	assert.Empty(t, cfg.PG.DSN)
}
