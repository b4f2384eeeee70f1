package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type mockSecrets struct {
	calls  int
	values map[string]string
	err    error
}

func (m *mockSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.values[aws.ToString(in.SecretId)]
	if !ok {
		return &secretsmanager.GetSecretValueOutput{}, nil
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func TestStoreCachesSuccessfulLookups(t *testing.T) {
	api := &mockSecrets{values: map[string]string{"pelvis/wa/meta-owner": `{"access_token":"tok","phone_number_id":"123"}`}}
	store := NewStore(api)

	var creds struct {
		AccessToken   string `json:"access_token"`
		PhoneNumberID string `json:"phone_number_id"`
	}
	for i := 0; i < 3; i++ {
		if err := store.JSON(context.Background(), "pelvis/wa/meta-owner", &creds); err != nil {
			t.Fatalf("JSON returned error: %v", err)
		}
	}
	if creds.AccessToken != "tok" || creds.PhoneNumberID != "123" {
		t.Fatalf("unexpected creds %+v", creds)
	}
	if api.calls != 1 {
		t.Fatalf("expected one Secrets Manager call, got %d", api.calls)
	}
}

func TestStoreDoesNotCacheFailures(t *testing.T) {
	api := &mockSecrets{err: errors.New("throttled")}
	store := NewStore(api)

	if _, err := store.String(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	api.err = nil
	api.values = map[string]string{"x": "value"}
	got, err := store.String(context.Background(), "x")
	if err != nil || got != "value" {
		t.Fatalf("expected recovery after failure, got %q %v", got, err)
	}
}

func TestStoreEmptySecret(t *testing.T) {
	store := NewStore(&mockSecrets{})
	if _, err := store.String(context.Background(), "missing"); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
}
