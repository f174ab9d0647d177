package recognition

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// maxImageSide bounds each image sent inline to keep the request under the
// service payload limit.
const maxImageSide = 512

// Gemini identifies faces with a multimodal Gemini model.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a recognizer. An empty apiKey is accepted: every
// Identify call then fails with ErrCredentialMissing so the terminal can
// tell the operator what to configure.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	g := &Gemini{model: model, timeout: timeout}
	if apiKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *Gemini) Name() string {
	return g.model
}

func (g *Gemini) Identify(ctx context.Context, target Image, gallery []Reference) (Outcome, error) {
	if g.client == nil {
		return Outcome{}, ErrCredentialMissing
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: buildIdentifyParts(target, gallery),
		},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   outcomeSchema,
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return Outcome{}, classifyGeminiError(err)
	}
	return decodeOutcome(result.Text())
}

var outcomeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"matched":      {Type: genai.TypeBoolean},
		"employeeId":   {Type: genai.TypeString},
		"employeeName": {Type: genai.TypeString},
		"confidence":   {Type: genai.TypeNumber},
	},
	Required: []string{"matched", "confidence"},
}

func buildIdentifyParts(target Image, gallery []Reference) []*genai.Part {
	parts := make([]*genai.Part, 0, 2*len(gallery)+3)
	parts = append(parts, &genai.Part{Text: buildIdentifyPrompt(gallery)})
	for i, ref := range gallery {
		img := PrepareImage(ref.Image, maxImageSide)
		parts = append(parts,
			&genai.Part{Text: fmt.Sprintf("Reference %d: employeeId=%q employeeName=%q", i+1, ref.EmployeeID, ref.Name)},
			&genai.Part{InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIMEType}},
		)
	}
	t := PrepareImage(target, maxImageSide)
	parts = append(parts,
		&genai.Part{Text: "Target image:"},
		&genai.Part{InlineData: &genai.Blob{Data: t.Data, MIMEType: t.MIMEType}},
	)
	return parts
}

func buildIdentifyPrompt(gallery []Reference) string {
	var b strings.Builder
	b.WriteString("You are the face matcher of an attendance terminal.\n")
	fmt.Fprintf(&b, "You will receive %d labeled reference photos followed by one target photo.\n", len(gallery))
	b.WriteString("Decide whether the person in the target photo is the same person as one of the references.\n")
	b.WriteString("Answer with JSON only: {\"matched\": bool, \"employeeId\": string, \"employeeName\": string, \"confidence\": number between 0 and 1}.\n")
	b.WriteString("When no reference shows the same person, or the target shows no clear face, set matched to false and leave employeeId and employeeName empty.\n")
	b.WriteString("Copy employeeId and employeeName exactly from the matching reference label.")
	return b.String()
}

// classifyGeminiError maps SDK and transport errors onto the package sentinels.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
			apiErr = *apiErrPtr
		} else {
			return fmt.Errorf("%w: gemini: %v", ErrTransport, err)
		}
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
		return fmt.Errorf("%w: gemini: %v", ErrQuotaExceeded, err)
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden ||
		apiErr.Status == "PERMISSION_DENIED" || apiErr.Status == "UNAUTHENTICATED" ||
		strings.Contains(strings.ToLower(apiErr.Message), "api key"):
		return fmt.Errorf("%w: gemini: %v", ErrCredentialMissing, err)
	default:
		return fmt.Errorf("%w: gemini: %v", ErrTransport, err)
	}
}
