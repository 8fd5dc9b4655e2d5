// Package estimate asks Gemini for a calorie estimate of a described or
// photographed food item. Failures are mapped to a small typed set so
// the caller can offer a manual fallback.
package estimate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"google.golang.org/genai"
)

const model = "gemini-2.0-flash"

// maxCalories is the largest estimate considered plausible for a single
// logged item.
const maxCalories = 10000

var (
	ErrInvalidKey        = errors.New("estimate: api key rejected")
	ErrRateLimited       = errors.New("estimate: rate limited")
	ErrNoNetwork         = errors.New("estimate: no network")
	ErrTimeout           = errors.New("estimate: request timed out")
	ErrMalformedResponse = errors.New("estimate: malformed response")
	ErrValueOutOfRange   = errors.New("estimate: value out of range")
)

// Estimator is the remote estimation collaborator.
type Estimator interface {
	Estimate(ctx context.Context, description string, image []byte) (int, error)
}

// Gemini implements Estimator against the Gemini API.
type Gemini struct {
	client *genai.Client
}

func New(ctx context.Context, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client}, nil
}

const prompt = `Estimate the total calories of the following food item.
Respond with your single best estimate as an integer number of kilocalories.`

// Estimate returns the calorie estimate for a description and/or image.
// At least one of the two must be provided.
func (g *Gemini) Estimate(ctx context.Context, description string, image []byte) (int, error) {
	parts := []*genai.Part{{Text: prompt}}
	if strings.TrimSpace(description) != "" {
		parts = append(parts, &genai.Part{Text: "Food: " + description})
	}
	if len(image) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: image},
		})
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"calories": {
					Type:        genai.TypeInteger,
					Description: "Estimated kilocalories.",
				},
			},
			Required: []string{"calories"},
		},
	}

	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return 0, classify(err)
	}

	text := resp.Text()
	if text == "" {
		return 0, ErrMalformedResponse
	}

	var out struct {
		Calories int `json:"calories"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out.Calories <= 0 {
		return 0, ErrMalformedResponse
	}
	if out.Calories > maxCalories {
		return 0, ErrValueOutOfRange
	}
	return out.Calories, nil
}

// classify maps transport and API errors to the package's typed set.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 400, 401, 403:
			return ErrInvalidKey
		case 429:
			return ErrRateLimited
		}
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return ErrNoNetwork
	}
	return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
}
