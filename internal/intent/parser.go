// Package intent interprets patient scheduling messages with a Bedrock
// model. The parser answers a narrow question: which of the offered slots,
// if any, is the patient asking for. Everything it returns is advisory;
// the booking orchestrator re-verifies before writing anything.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/harborhealth/telecare-ai-platform/internal/booking"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

const systemPrompt = `You are a scheduling assistant for a telehealth clinic.
You are given a numbered list of open appointment slots and a patient message.
Decide which slot, if any, the patient is asking to book.

Respond with ONLY a JSON object, no prose, in exactly this shape:
{
  "matched_slot_index": <zero-based index into the slot list, or -1>,
  "requested_time": "<RFC3339 timestamp if the patient named a time not in the list, else null>",
  "visit_type": "<visit type if the patient named one, else empty string>",
  "confidence": <0.0 to 1.0>,
  "needs_human": <true if the message is not about booking, asks a medical question, or is too ambiguous>,
  "reason": "<one short sentence when needs_human is true, else empty string>"
}

Never invent slots. If the patient's request does not clearly match a listed
slot, set matched_slot_index to -1. Medical questions, billing disputes and
complaints always set needs_human to true.`

type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Parser implements booking.IntentParser on top of the Bedrock Converse API.
type Parser struct {
	api       converseAPI
	modelID   string
	maxTokens int32
	logger    *logging.Logger
}

func NewParser(api converseAPI, modelID string, logger *logging.Logger) *Parser {
	if api == nil {
		panic("intent: bedrock converse client required")
	}
	if strings.TrimSpace(modelID) == "" {
		panic("intent: model id required")
	}
	if logger == nil {
		panic("intent: logger required")
	}
	return &Parser{api: api, modelID: modelID, maxTokens: 512, logger: logger}
}

// WithMaxTokens caps the model's response length.
func (p *Parser) WithMaxTokens(n int32) *Parser {
	if n > 0 {
		p.maxTokens = n
	}
	return p
}

// intentWire is the JSON contract the model is asked to produce.
type intentWire struct {
	MatchedSlotIndex int     `json:"matched_slot_index"`
	RequestedTime    *string `json:"requested_time"`
	VisitType        string  `json:"visit_type"`
	Confidence       float64 `json:"confidence"`
	NeedsHuman       bool    `json:"needs_human"`
	Reason           string  `json:"reason"`
}

// ParseBookingIntent sends the candidate slots and patient message to the
// model and decodes its JSON verdict. Output the model mangles beyond repair
// degrades to a needs_human intent rather than an error, so one bad
// completion never fails the intake pipeline.
func (p *Parser) ParseBookingIntent(ctx context.Context, req booking.IntentRequest) (*booking.BookingIntent, error) {
	var prompt strings.Builder
	prompt.WriteString("Open slots:\n")
	if len(req.Candidates) == 0 {
		prompt.WriteString("(none)\n")
	}
	for i, label := range req.Candidates {
		fmt.Fprintf(&prompt, "%d. %s\n", i, label)
	}
	prompt.WriteString("\nPatient message:\n")
	prompt.WriteString(req.MessageText)

	out, err := p.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(p.modelID),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: systemPrompt},
		},
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: prompt.String()},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(p.maxTokens),
			Temperature: aws.Float32(0),
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, booking.ErrIntentTimeout
		}
		return nil, fmt.Errorf("intent: converse: %w", err)
	}

	text, err := extractOutputText(out)
	if err != nil {
		return nil, err
	}

	var wire intentWire
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &wire); err != nil {
		p.logger.Warn("model output was not valid intent JSON", "error", err, "output", text)
		return &booking.BookingIntent{
			MatchedSlotIndex: -1,
			NeedsHuman:       true,
			Reason:           "could not interpret the request",
		}, nil
	}

	intent := &booking.BookingIntent{
		MatchedSlotIndex: wire.MatchedSlotIndex,
		VisitType:        wire.VisitType,
		Confidence:       wire.Confidence,
		NeedsHuman:       wire.NeedsHuman,
		Reason:           wire.Reason,
	}
	if wire.RequestedTime != nil {
		ts, err := time.Parse(time.RFC3339, *wire.RequestedTime)
		if err == nil {
			intent.RequestedTime = &ts
		}
	}
	return intent, nil
}

func extractOutputText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", errors.New("intent: bedrock response is nil")
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("intent: bedrock response did not include a message output")
	}

	var builder strings.Builder
	for _, block := range msgOut.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok {
			builder.WriteString(textBlock.Value)
		}
	}
	text := builder.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("intent: bedrock response contained no text content")
	}
	return text, nil
}

// stripCodeFence unwraps ```json fenced blocks some models emit despite the
// no-prose instruction.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
