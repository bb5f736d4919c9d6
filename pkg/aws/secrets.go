package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsClient reads Secrets Manager values once per process.
type SecretsClient struct {
	client *secretsmanager.Client
	values sync.Map // secret id -> string
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return &SecretsClient{client: secretsmanager.NewFromConfig(cfg)}
}

func (s *SecretsClient) GetSecret(ctx context.Context, id string) (string, error) {
	if v, ok := s.values.Load(id); ok {
		return v.(string), nil
	}

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(id)})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", id, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s is binary", id)
	}
	v, _ := s.values.LoadOrStore(id, *out.SecretString)
	return v.(string), nil
}

// Override decodes a JSON object secret and copies each non-empty key into
// the matching target. Keys without a target are ignored.
func (s *SecretsClient) Override(ctx context.Context, id string, targets map[string]*string) error {
	raw, err := s.GetSecret(ctx, id)
	if err != nil {
		return err
	}
	var fields map[string]string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return fmt.Errorf("secret %s is not a JSON object: %w", id, err)
	}
	for key, dst := range targets {
		if v := fields[key]; v != "" {
			*dst = v
		}
	}
	return nil
}
