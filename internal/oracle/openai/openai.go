package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"coin-trading-bot/internal/interfaces"
	"coin-trading-bot/internal/store"
	"coin-trading-bot/internal/trace"
	"coin-trading-bot/internal/types"
)

// Oracle asks an OpenAI chat model for a trading decision. The model sees
// the market context and account state as JSON and must answer with compact
// JSON matching the configured schema; anything unparseable degrades to hold.
type Oracle struct {
	cfg *store.Config
}

var _ interfaces.Oracle = (*Oracle)(nil)

func New(cfg *store.Config) *Oracle {
	return &Oracle{cfg: cfg}
}

// wireDecision is the JSON shape the model is asked to produce.
type wireDecision struct {
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	RiskLevel  string  `json:"risk_level"`
	Rationale  string  `json:"rationale"`
	Expected   struct {
		Min decimal.Decimal `json:"min"`
		Max decimal.Decimal `json:"max"`
	} `json:"expected_price_range"`
}

func (o *Oracle) Decide(ctx context.Context, market types.MarketContext, acct types.AccountSnapshot) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return types.Decision{}, errors.New("OPENAI_API_KEY missing")
	}

	state := map[string]any{"market": market, "account": acct}
	sb, _ := json.Marshal(state)
	prompt := fmt.Sprintf("You will receive state as JSON. Respond ONLY with compact JSON matching the schema.\nSchema:%s\nState:%s", o.cfg.LLM.Schema, string(sb))

	body := map[string]any{
		"model":       o.cfg.LLM.Model,
		"messages":    []map[string]string{{"role": "system", "content": o.cfg.LLM.System}, {"role": "user", "content": prompt}},
		"temperature": o.cfg.LLM.Temperature,
		"max_tokens":  o.cfg.LLM.MaxTokens,
	}
	bb, _ := json.Marshal(body)

	req, _ := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/chat/completions", bytes.NewReader(bb))
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return types.Decision{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return types.Decision{}, fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return types.Decision{}, err
	}

	if len(r.Choices) == 0 {
		return types.Decision{}, errors.New("no choices")
	}

	return ParseDecision(r.Choices[0].Message.Content), nil
}

// ParseDecision sanitizes raw model output into a Decision. Malformed JSON
// or an unrecognized action degrades to hold rather than failing the cycle.
func ParseDecision(raw string) types.Decision {
	out := strings.TrimSpace(raw)
	// Models occasionally wrap the JSON in a code fence despite instructions.
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	out = strings.TrimSpace(out)

	var w wireDecision
	if err := json.Unmarshal([]byte(out), &w); err != nil {
		return types.HoldDecision("invalid_json")
	}

	action := types.Action(strings.ToLower(strings.TrimSpace(w.Decision)))
	switch action {
	case types.ActionBuy, types.ActionSell, types.ActionHold:
	default:
		return types.HoldDecision("unrecognized_action")
	}

	if w.Confidence < 0 || w.Confidence > 1 {
		w.Confidence = 0.0
	}

	risk := types.RiskTier(strings.ToLower(strings.TrimSpace(w.RiskLevel)))
	switch risk {
	case types.RiskLow, types.RiskMedium, types.RiskHigh:
	default:
		risk = types.RiskMedium
	}

	d := types.Decision{
		Action:     action,
		Confidence: w.Confidence,
		RiskTier:   risk,
		Rationale:  w.Rationale,
		Expected:   types.PriceRange{Min: w.Expected.Min, Max: w.Expected.Max},
	}
	if w.Expected.Min.GreaterThan(w.Expected.Max) {
		d.Expected = types.PriceRange{}
	}
	return d
}
