package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"guild-battle-tracker/internal/config"
	"guild-battle-tracker/internal/constants"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// VisionClient runs text detection through the Google Cloud Vision API.
type VisionClient struct {
	apiKey  string
	baseURL string
	http    *httpClient
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageContent `json:"image"`
	Features []feature    `json:"features"`
}

type imageContent struct {
	Content string `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

type annotateResponse struct {
	Responses []struct {
		FullTextAnnotation *struct {
			Text string `json:"text"`
		} `json:"fullTextAnnotation"`
		TextAnnotations []struct {
			Description string `json:"description"`
		} `json:"textAnnotations"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

func NewVisionClient(cfg *config.Config, logger zerolog.Logger) *VisionClient {
	return &VisionClient{
		apiKey:  cfg.VisionAPIKey,
		baseURL: strings.TrimRight(cfg.VisionBaseURL, "/"),
		http:    newHTTPClient("vision", constants.TranscriptionTimeout, logger),
	}
}

// RecognizeText returns the text detected in image. An image without text
// yields "" and no error.
func (c *VisionClient) RecognizeText(ctx context.Context, image []byte) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("vision: %w", ErrNotConfigured)
	}

	body := annotateRequest{Requests: []imageRequest{{
		Image:    imageContent{Content: base64.StdEncoding.EncodeToString(image)},
		Features: []feature{{Type: "TEXT_DETECTION"}},
	}}}
	endpoint := fmt.Sprintf("%s/v1/images:annotate?key=%s", c.baseURL, url.QueryEscape(c.apiKey))

	resp, err := doRequest[annotateResponse](ctx, c.http, request{method: fasthttp.MethodPost, url: endpoint, body: body})
	if err != nil {
		return "", err
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}

	r := resp.Responses[0]
	if r.Error != nil {
		return "", fmt.Errorf("vision annotate error %d: %s", r.Error.Code, r.Error.Message)
	}
	if r.FullTextAnnotation != nil {
		return r.FullTextAnnotation.Text, nil
	}
	if len(r.TextAnnotations) > 0 {
		return r.TextAnnotations[0].Description, nil
	}
	return "", nil
}
