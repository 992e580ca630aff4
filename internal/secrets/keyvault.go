package secrets

import (
	"context"
	"fmt"
	"net/http"

	"todoapi/internal/utils"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// KeyVault reads the latest version of secrets from an Azure Key Vault.
type KeyVault struct {
	client *azsecrets.Client
}

// NewKeyVault returns a KeyVault for vaultURL. opts may be nil.
func NewKeyVault(vaultURL string, cred azcore.TokenCredential, opts *azsecrets.ClientOptions) (*KeyVault, error) {
	client, err := azsecrets.NewClient(vaultURL, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("key vault client: %w", err)
	}
	return &KeyVault{client: client}, nil
}

// GetSecret returns found=false when the vault has no secret called name.
func (k *KeyVault) GetSecret(ctx context.Context, name string) (string, bool, error) {
	resp, err := k.client.GetSecret(ctx, name, "", nil)
	if utils.IsHTTPStatus(err, http.StatusNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if resp.Value == nil {
		return "", false, nil
	}
	return *resp.Value, true, nil
}
