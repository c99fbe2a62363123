package api

import (
	"context"
	"fmt"
	"guild-battle-tracker/internal/analysis"
	"guild-battle-tracker/internal/config"
	"guild-battle-tracker/internal/constants"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// SheetsClient reads cell ranges through the Google Sheets values API.
type SheetsClient struct {
	apiKey  string
	baseURL string
	http    *httpClient
}

type valueRangeResponse struct {
	Range          string  `json:"range"`
	MajorDimension string  `json:"majorDimension"`
	Values         [][]any `json:"values"`
}

func NewSheetsClient(cfg *config.Config, logger zerolog.Logger) *SheetsClient {
	return &SheetsClient{
		apiKey:  cfg.SheetsAPIKey,
		baseURL: strings.TrimRight(cfg.SheetsBaseURL, "/"),
		http:    newHTTPClient("sheets", constants.ExternalAPITimeout, logger),
	}
}

// FetchGrid returns the cells of rng as text, row by row. Trailing empty
// cells are omitted by the API, so rows can be ragged.
func (c *SheetsClient) FetchGrid(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("sheets: %w", ErrNotConfigured)
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("valueRenderOption", "FORMATTED_VALUE")
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?%s",
		c.baseURL, url.PathEscape(spreadsheetID), url.PathEscape(rng), q.Encode())

	resp, err := doRequest[valueRangeResponse](ctx, c.http, request{method: fasthttp.MethodGet, url: endpoint})
	if err != nil {
		return nil, err
	}

	grid := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		grid[i] = make([]string, len(row))
		for j, v := range row {
			grid[i][j] = analysis.CellText(v)
		}
	}
	return grid, nil
}
