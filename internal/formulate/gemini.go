package formulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/maruel/inkzone/internal/models"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// DefaultModel is used when GeminiOptions.Model is empty.
const DefaultModel = "gemini-2.5-flash"

const prompt = `Create a unique textile printing ink or dye definition based on this fashion mood or fabric inspiration: %q.
The brand "InkZone" creates high-end screen printing inks (Plastisol, Water-based, Discharge).
Focus on properties like opacity, hand feel, and vibrancy on cotton/poly blends.`

// GeminiOptions configures a Gemini client.
type GeminiOptions struct {
	APIKey string
	Model  string
	// Endpoint overrides the Generative Language API base URL.
	Endpoint string
	// RequestsPerMinute throttles outgoing calls; 0 means unlimited.
	RequestsPerMinute int
	Client            *http.Client
}

// Gemini generates formulations with the Gemini API, constraining the reply
// to the GeneratedInk schema.
type Gemini struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	config  *genai.GenerateContentConfig
}

// NewGemini returns a Gemini generator. It returns ErrNoAPIKey when
// opts.APIKey is empty.
func NewGemini(ctx context.Context, opts *GeminiOptions) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	hc := opts.Client
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	}
	if opts.Endpoint != "" {
		cfg.HTTPOptions.BaseURL = strings.TrimRight(opts.Endpoint, "/") + "/"
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	g := &Gemini{
		client:  client,
		model:   opts.Model,
		limiter: rate.NewLimiter(rate.Inf, 1),
		config: &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   toGenaiSchema(inkSchema()),
			Temperature:      genai.Ptr[float32](0.8),
		},
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if opts.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return g, nil
}

// inkSchema reflects the response schema inline, without references.
func inkSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true, ExpandedStruct: true}
	s := r.Reflect(&models.GeneratedInk{})
	s.Version = ""
	return s
}

// toGenaiSchema converts the subset of JSON Schema the reflector emits for
// plain structs.
func toGenaiSchema(s *jsonschema.Schema) *genai.Schema {
	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
	}
	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "string":
		out.Type = genai.TypeString
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	}
	if v, err := s.Minimum.Float64(); err == nil {
		out.Minimum = &v
	}
	if v, err := s.Maximum.Float64(); err == nil {
		out.Maximum = &v
	}
	if s.Items != nil {
		out.Items = toGenaiSchema(s.Items)
	}
	if s.Properties != nil {
		out.Properties = make(map[string]*genai.Schema, s.Properties.Len())
		for p := s.Properties.Oldest(); p != nil; p = p.Next() {
			out.Properties[p.Key] = toGenaiSchema(p.Value)
			out.PropertyOrdering = append(out.PropertyOrdering, p.Key)
		}
	}
	return out
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, mood string) (*models.GeneratedInk, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(fmt.Sprintf(prompt, mood)), g.config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return nil, errors.New("no response from model")
	}
	ink := &models.GeneratedInk{}
	if err := json.Unmarshal([]byte(text), ink); err != nil {
		return nil, fmt.Errorf("failed to decode formulation: %w", err)
	}
	return ink, nil
}
