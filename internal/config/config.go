package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	Stage    string
	LogLevel string

	// UseMemoryBackends swaps DynamoDB and EventBridge Scheduler for in-process
	// implementations. Only honored by the local API server.
	UseMemoryBackends bool

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	OutboundTimeout     time.Duration

	// Appointment record store
	AppointmentsTable string
	PatientIndexName  string

	// Reminder triggers
	SchedulerRoleARN        string
	ReminderDispatcherARN   string
	SchedulerGroup          string
	TriggerPrefix           string
	FastMode                bool
	ReminderSchedulerName   string
	ScheduleRequestQueueURL string

	// WhatsApp Cloud API
	WhatsAppVerifyToken   string
	WhatsAppAppSecret     string
	WhatsAppSecretName    string
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	GraphAPIBase          string

	// Owner and patient templates
	OwnerPhone               string
	OwnerTemplate            string
	TemplateLanguage         string
	FirstReminderTemplate    string
	SecondReminderTemplate   string
	OwnerEmail               string
	EmailProvider            string
	SESFromEmail             string
	SendGridAPIKey           string
	SendGridFromEmail        string
	SenderName               string
	ClinicName               string
	ClinicTimezone           string
	ConfirmationAckMessage   string
	NoPendingMessage         string
	AutoReplyMessage         string
	ServicesCatalogPath      string
	ServicesCatalogBucket    string
	ServicesCatalogKey       string
	BedrockModelID           string
	GoogleCalendarID         string
	GoogleCalendarSecretName string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	DedupeTTL     time.Duration

	AdminJWTSecret string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		Stage:             getEnv("STAGE", "dev"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		UseMemoryBackends: getEnvAsBool("USE_MEMORY_BACKENDS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		OutboundTimeout:     getEnvAsDuration("OUTBOUND_TIMEOUT", 10*time.Second),

		AppointmentsTable: getEnv("DDB_TABLE", "pelvis-therapy-state-dev"),
		PatientIndexName:  getEnv("DDB_PATIENT_INDEX", "gsi1"),

		SchedulerRoleARN:        getEnv("SCHEDULER_ROLE_ARN", ""),
		ReminderDispatcherARN:   getEnv("REMINDER_DISPATCHER_ARN", ""),
		SchedulerGroup:          getEnv("REMINDER_GROUP", "default"),
		TriggerPrefix:           getEnv("TRIGGER_PREFIX", "pt"),
		FastMode:                getEnvAsBool("FAST_MODE", false),
		ReminderSchedulerName:   getEnv("REMINDER_SCHEDULER_NAME", ""),
		ScheduleRequestQueueURL: getEnv("SCHEDULE_REQUEST_QUEUE_URL", ""),

		WhatsAppVerifyToken:   getEnv("VERIFY_TOKEN", "PT_VERIFY_DEV"),
		WhatsAppAppSecret:     getEnv("META_APP_SECRET", ""),
		WhatsAppSecretName:    getEnv("META_WA_SECRET_NAME", "pelvis/wa/meta-owner"),
		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		GraphAPIBase:          getEnv("GRAPH_API_BASE", "https://graph.facebook.com/v20.0"),

		OwnerPhone:               getEnv("OWNER_WA_E164", ""),
		OwnerTemplate:            getEnv("OWNER_WA_TEMPLATE", "owner_alert_v2"),
		TemplateLanguage:         getEnv("OWNER_WA_LANG", "es_EC"),
		FirstReminderTemplate:    getEnv("PATIENT_REMINDER_TEMPLATE", "appointment_reminder"),
		SecondReminderTemplate:   getEnv("PATIENT_SECOND_REMINDER_TEMPLATE", "appointment_reminder_followup"),
		OwnerEmail:               getEnv("OWNER_EMAIL", ""),
		EmailProvider:            strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "none"))),
		SESFromEmail:             getEnv("SES_FROM_EMAIL", ""),
		SendGridAPIKey:           getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:        getEnv("SENDGRID_FROM_EMAIL", ""),
		SenderName:               getEnv("EMAIL_SENDER_NAME", "Pelvis Therapy"),
		ClinicName:               getEnv("CLINIC_NAME", "Pelvis Therapy"),
		ClinicTimezone:           getEnv("TZ", "America/Guayaquil"),
		ConfirmationAckMessage:   getEnv("CONFIRMATION_ACK_MESSAGE", "¡Gracias! Tu cita ha sido confirmada ✅"),
		NoPendingMessage:         getEnv("NO_PENDING_MESSAGE", "Gracias. No encontré una cita pendiente. Si deseas agendar, cuéntame tu disponibilidad."),
		AutoReplyMessage:         getEnv("AUTO_REPLY_MESSAGE", "¡Hola! Soy el asistente de Pelvis Therapy. Puedo ayudarte a agendar/confirmar tu cita. Escribe 'SI' para confirmar."),
		ServicesCatalogPath:      getEnv("PT_CONTENT_PATH", "content/pelvis/services.yml"),
		ServicesCatalogBucket:    getEnv("S3_FAQ_BUCKET", ""),
		ServicesCatalogKey:       getEnv("S3_FAQ_KEY", "services.yml"),
		BedrockModelID:           getEnv("BEDROCK_MODEL_ID", ""),
		GoogleCalendarID:         getEnv("GCAL_CALENDAR_ID", ""),
		GoogleCalendarSecretName: getEnv("GCAL_SECRET_NAME", "pelvis/gcal/sa"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		DedupeTTL:     getEnvAsDuration("INBOUND_DEDUPE_TTL", 24*time.Hour),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
