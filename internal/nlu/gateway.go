package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Confidence assigned to local classification.
const (
	// LocalConfidence is used when the remote service is disabled.
	LocalConfidence = 0.6
	// FallbackConfidence is used when the remote service failed.
	FallbackConfidence = 0.5
)

// Config configures the gateway.
type Config struct {
	Enabled bool
	URL     string
	Token   string
	Timeout time.Duration
}

// Gateway analyzes text through the remote service with a local fallback.
type Gateway struct {
	cfg        Config
	httpClient *http.Client
	rules      []Rule
	logger     *slog.Logger
}

// NewGateway creates a gateway using DefaultRules.
func NewGateway(cfg Config, logger *slog.Logger) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Gateway{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		rules:      DefaultRules,
		logger:     logger,
	}
}

// Enabled reports whether the remote service is used.
func (g *Gateway) Enabled() bool {
	return g.cfg.Enabled
}

// Analyze never fails: remote errors degrade to local classification.
func (g *Gateway) Analyze(ctx context.Context, text, senderID string) Result {
	if !g.cfg.Enabled {
		return g.Local(text, LocalConfidence)
	}

	res, err := g.Parse(ctx, text, senderID)
	if err != nil {
		g.logger.Warn("NLU parse failed, using local rules", "user_id", senderID, "error", err)
		return g.Local(text, FallbackConfidence)
	}
	return res
}

// Local classifies text with the rule list and entity detectors.
func (g *Gateway) Local(text string, confidence float64) Result {
	intent := DetectIntent(text, g.rules)
	score := IntentScore{Name: string(intent), Confidence: confidence}
	return Result{
		Text:     text,
		Intent:   score,
		Entities: ExtractEntities(text),
		Intents:  []IntentScore{score},
	}
}

type parseRequest struct {
	Text      string `json:"text"`
	MessageID string `json:"message_id"`
}

type parseResponse struct {
	Text   string `json:"text"`
	Intent *struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"intent"`
	Entities []struct {
		Entity           string   `json:"entity"`
		Value            any      `json:"value"`
		Start            int      `json:"start"`
		End              int      `json:"end"`
		Confidence       *float64 `json:"confidence"`
		ConfidenceEntity *float64 `json:"confidence_entity"`
	} `json:"entities"`
	IntentRanking []IntentScore `json:"intent_ranking"`
}

// Parse calls the remote /model/parse endpoint.
func (g *Gateway) Parse(ctx context.Context, text, senderID string) (Result, error) {
	body, err := json.Marshal(parseRequest{
		Text:      text,
		MessageID: senderID + "_" + uuid.NewString(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL+"/model/parse", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	g.authorize(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("nlu returned %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed parseResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Result{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return normalize(text, parsed), nil
}

// Status probes the service health endpoint.
func (g *Gateway) Status(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.URL+"/status", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	g.authorize(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nlu status returned %d", resp.StatusCode)
	}
	return nil
}

func (g *Gateway) authorize(req *http.Request) {
	if g.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	}
}

func normalize(text string, p parseResponse) Result {
	res := Result{
		Text:     text,
		Intent:   IntentScore{Name: "unknown"},
		Entities: Entities{},
		Intents:  p.IntentRanking,
	}
	if p.Text != "" {
		res.Text = p.Text
	}
	if p.Intent != nil {
		if p.Intent.Name != "" {
			res.Intent.Name = p.Intent.Name
		}
		res.Intent.Confidence = p.Intent.Confidence
	}
	if res.Intents == nil {
		res.Intents = []IntentScore{}
	}

	for _, e := range p.Entities {
		conf := 1.0
		switch {
		case e.ConfidenceEntity != nil:
			conf = *e.ConfidenceEntity
		case e.Confidence != nil:
			conf = *e.Confidence
		}
		res.Entities[e.Entity] = append(res.Entities[e.Entity], Entity{
			Value:      stringify(e.Value),
			Confidence: conf,
			Start:      e.Start,
			End:        e.End,
		})
	}
	return res
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
