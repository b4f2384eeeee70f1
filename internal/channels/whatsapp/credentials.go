package whatsapp

import (
	"context"
	"errors"
	"sync"
)

// Credentials authenticate Graph API sends for one business phone number.
type Credentials struct {
	AccessToken   string `json:"access_token"`
	PhoneNumberID string `json:"phone_number_id"`
}

func (c Credentials) valid() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

// CredentialsProvider resolves the credentials used for each send.
type CredentialsProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials returns fixed credentials, typically from the environment.
type StaticCredentials Credentials

func (s StaticCredentials) Credentials(context.Context) (Credentials, error) {
	c := Credentials(s)
	if !c.valid() {
		return Credentials{}, errors.New("whatsapp: access token and phone number id are required")
	}
	return c, nil
}

type secretReader interface {
	JSON(ctx context.Context, name string, dst any) error
}

// SecretCredentials loads credentials from a JSON secret on first use and
// keeps them for the process lifetime.
type SecretCredentials struct {
	reader secretReader
	name   string

	mu     sync.Mutex
	loaded *Credentials
}

func NewSecretCredentials(reader secretReader, name string) *SecretCredentials {
	if reader == nil {
		panic("whatsapp: secret reader cannot be nil")
	}
	return &SecretCredentials{reader: reader, name: name}
}

func (s *SecretCredentials) Credentials(ctx context.Context) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded != nil {
		return *s.loaded, nil
	}
	var c Credentials
	if err := s.reader.JSON(ctx, s.name, &c); err != nil {
		return Credentials{}, err
	}
	if !c.valid() {
		return Credentials{}, errors.New("whatsapp: secret " + s.name + " is missing access_token or phone_number_id")
	}
	s.loaded = &c
	return c, nil
}
