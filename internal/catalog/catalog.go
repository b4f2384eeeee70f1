// Package catalog answers service questions from the clinic's YAML catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/wolfman30/clinic-booking-assistant/internal/intent"
	"gopkg.in/yaml.v3"
)

// Service is one catalog entry.
type Service struct {
	Name        string `yaml:"nombre"`
	Duration    string `yaml:"duracion"`
	Description string `yaml:"descripcion"`
}

// Contact is the clinic footer.
type Contact struct {
	Address  string `yaml:"direccion"`
	WhatsApp string `yaml:"whatsapp"`
	Hours    string `yaml:"horario"`
}

// Catalog is the parsed services file.
type Catalog struct {
	Services []Service `yaml:"servicios"`
	Contact  Contact   `yaml:"contacto"`
}

const (
	fallbackCount = 3
	minWordLen    = 5
)

// Parse decodes catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if len(c.Services) == 0 {
		return nil, errors.New("catalog: no servicios defined")
	}
	return &c, nil
}

// LoadFile reads the catalog from a local path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// LoadS3 reads the catalog from an S3 object.
func LoadS3(ctx context.Context, client s3API, bucket, key string) (*Catalog, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog: read s3://%s/%s: %w", bucket, key, err)
	}
	return Parse(data)
}

// Match returns the services relevant to the question: a service matches when
// a word of its name appears in the question or a question word of at least
// minWordLen letters appears in its description. With no match the first three
// services are returned.
func (c *Catalog) Match(question string) []Service {
	q := intent.Normalize(question)
	words := strings.Fields(strings.NewReplacer("?", " ", ",", " ", ".", " ").Replace(q))

	var hits []Service
	for _, svc := range c.Services {
		if serviceMatches(svc, q, words) {
			hits = append(hits, svc)
		}
	}
	if len(hits) > 0 {
		return hits
	}
	if len(c.Services) < fallbackCount {
		return c.Services
	}
	return c.Services[:fallbackCount]
}

func serviceMatches(svc Service, question string, words []string) bool {
	for _, w := range strings.Fields(intent.Normalize(svc.Name)) {
		if len(w) >= minWordLen && strings.Contains(question, w) {
			return true
		}
	}
	desc := intent.Normalize(svc.Description)
	for _, w := range words {
		if len(w) >= minWordLen && strings.Contains(desc, w) {
			return true
		}
	}
	return false
}

// Answer renders the reply text for a service question.
func (c *Catalog) Answer(question string) string {
	var b strings.Builder
	b.WriteString("Servicios recomendados:\n")
	for i, svc := range c.Match(question) {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s (%s): %s", svc.Name, svc.Duration, svc.Description)
	}
	fmt.Fprintf(&b, "\n\nDirección: %s\nWhatsApp: %s\nHorario: %s", c.Contact.Address, c.Contact.WhatsApp, c.Contact.Hours)
	return b.String()
}
