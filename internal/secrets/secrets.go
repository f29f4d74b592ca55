// Package secrets resolves credentials that are stored outside the environment.
// A config value of the form "awssm:<name>" is replaced at startup by the
// current value of that AWS Secrets Manager secret.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const ReferencePrefix = "awssm:"

type SecretStore interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// IsReference reports whether value names a stored secret.
func IsReference(value string) bool {
	return strings.HasPrefix(value, ReferencePrefix)
}

// Resolve returns value unchanged unless it is a reference. A reference of the
// form "awssm:<name>#<field>" selects one field of a JSON secret.
func Resolve(ctx context.Context, store SecretStore, value string) (string, error) {
	ref, ok := strings.CutPrefix(value, ReferencePrefix)
	if !ok {
		return value, nil
	}
	if store == nil {
		return "", fmt.Errorf("secret %q referenced but no secret store configured", ref)
	}

	name, field, hasField := strings.Cut(ref, "#")
	secret, err := store.GetSecret(ctx, name)
	if err != nil {
		return "", err
	}
	if !hasField {
		return secret, nil
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(secret), &fields); err != nil {
		return "", fmt.Errorf("secret %s is not a JSON object: %w", name, err)
	}
	v, ok := fields[field]
	if !ok {
		return "", fmt.Errorf("secret %s has no field %q", name, field)
	}
	return v, nil
}

// ResolveAll resolves every pointed-to value in place.
func ResolveAll(ctx context.Context, store SecretStore, values ...*string) error {
	for _, v := range values {
		resolved, err := Resolve(ctx, store, *v)
		if err != nil {
			return err
		}
		*v = resolved
	}
	return nil
}

type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type AWSSecretsManager struct {
	client secretsAPI
	cache  map[string]*cachedSecret
	mu     sync.RWMutex
	ttl    time.Duration
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

func NewAWSSecretsManager(ctx context.Context, region string) (*AWSSecretsManager, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewAWSSecretsManagerWithConfig(cfg), nil
}

func NewAWSSecretsManagerWithConfig(cfg aws.Config) *AWSSecretsManager {
	return &AWSSecretsManager{
		client: secretsmanager.NewFromConfig(cfg),
		cache:  make(map[string]*cachedSecret),
		ttl:    5 * time.Minute,
	}
}

func (s *AWSSecretsManager) GetSecret(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	if cached, ok := s.cache[name]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		return cached.value, nil
	}
	s.mu.RUnlock()

	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", name, err)
	}

	value := aws.ToString(result.SecretString)

	s.mu.Lock()
	s.cache[name] = &cachedSecret{
		value:     value,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Unlock()

	return value, nil
}

type InMemorySecretStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

func NewInMemorySecretStore() *InMemorySecretStore {
	return &InMemorySecretStore{
		secrets: make(map[string]string),
	}
}

func (s *InMemorySecretStore) GetSecret(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.secrets[name]
	if !ok {
		return "", fmt.Errorf("secret %s not found", name)
	}
	return value, nil
}

func (s *InMemorySecretStore) SetSecret(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[name] = value
}
