package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Intent is the routing decision for general (non-confirmation) text.
type Intent string

const (
	// Info covers service and pricing questions.
	Info Intent = "info"
	// Appointments covers everything else.
	Appointments Intent = "appointments"
)

// Classifier decides where general text should go.
type Classifier interface {
	Classify(ctx context.Context, text string) (Intent, error)
}

var infoKeywords = []string{"precio", "servicio", "costo", "cuanto cuesta"}

// KeywordClassifier routes on a fixed keyword list.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, text string) (Intent, error) {
	return classifyKeywords(text), nil
}

func classifyKeywords(text string) Intent {
	normalized := Normalize(text)
	for _, kw := range infoKeywords {
		if strings.Contains(normalized, kw) {
			return Info
		}
	}
	return Appointments
}

// BedrockConverseAPI is the subset of the Bedrock client used for classification.
type BedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClassifier asks a Bedrock model for the intent and falls back to
// keywords when the model is unavailable or answers with anything else.
type BedrockClassifier struct {
	client  BedrockConverseAPI
	modelID string
	logger  *logging.Logger
}

func NewBedrockClassifier(client BedrockConverseAPI, modelID string, logger *logging.Logger) *BedrockClassifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &BedrockClassifier{client: client, modelID: modelID, logger: logger}
}

func (c *BedrockClassifier) Classify(ctx context.Context, text string) (Intent, error) {
	if c.client == nil || c.modelID == "" {
		return classifyKeywords(text), nil
	}
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: systemPrompt},
		},
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: fmt.Sprintf("Mensaje: %s", text)},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(8),
			Temperature: aws.Float32(0.0),
		},
	}
	resp, err := c.client.Converse(ctx, input)
	if err != nil {
		c.logger.Warn("intent: bedrock converse failed, using keywords", "error", err)
		return classifyKeywords(text), nil
	}
	switch Intent(Normalize(extractResponseText(resp))) {
	case Info:
		return Info, nil
	case Appointments:
		return Appointments, nil
	default:
		return classifyKeywords(text), nil
	}
}

func extractResponseText(resp *bedrockruntime.ConverseOutput) string {
	if resp == nil || resp.Output == nil {
		return ""
	}
	output, ok := resp.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || len(output.Value.Content) == 0 {
		return ""
	}
	textBlock, ok := output.Value.Content[0].(*brtypes.ContentBlockMemberText)
	if !ok {
		return ""
	}
	return textBlock.Value
}

const systemPrompt = `Eres el enrutador de un asistente de WhatsApp de una clínica de fisioterapia. ` +
	`Responde solo "info" si el paciente pregunta por servicios, precios o la clínica, ` +
	`o "appointments" si quiere agendar, cambiar o cancelar una cita o cualquier otra cosa.`
