// Package secrets reads JSON secrets from AWS Secrets Manager and keeps them
// for the lifetime of the process.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// ErrEmptySecret is returned when a secret has no SecretString.
var ErrEmptySecret = errors.New("secrets: secret has no string value")

type secretsAPI interface {
	GetSecretValue(context.Context, *secretsmanager.GetSecretValueInput, ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Store caches secret strings by name. Failed lookups are not cached.
type Store struct {
	client secretsAPI

	mu     sync.Mutex
	values map[string]string
}

func NewStore(client secretsAPI) *Store {
	if client == nil {
		panic("secrets: secrets manager client cannot be nil")
	}
	return &Store{client: client, values: make(map[string]string)}
}

// String returns the secret string for name.
func (s *Store) String(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[name]; ok {
		return v, nil
	}
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("secrets: get %s: %w", name, err)
	}
	value := aws.ToString(out.SecretString)
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, name)
	}
	s.values[name] = value
	return value, nil
}

// JSON decodes the secret named name into dst.
func (s *Store) JSON(ctx context.Context, name string, dst any) error {
	value, err := s.String(ctx, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return fmt.Errorf("secrets: decode %s: %w", name, err)
	}
	return nil
}
