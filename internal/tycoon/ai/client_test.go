package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "user", req.Messages[1].Role)
		}

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
}

func testConfig(url string) Config {
	return Config{
		Enabled: true,
		BaseURL: url + "/v1",
		APIKey:  "secret",
		Model:   "test-model",
		Timeout: time.Second,
	}
}

func TestGenerateMarketEvent(t *testing.T) {
	reply := "Sure!\n```json\n{\"name\": \"Cloud Price War\", \"description\": \"Hosting gets cheap\", \"effect_type\": \"cost\", \"effect_value\": -0.2}\n```"
	srv := chatServer(t, http.StatusOK, reply)
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zaptest.NewLogger(t))
	raw, err := c.Generate(context.Background(), KindMarketEvent, map[string]interface{}{"day": 12})
	require.NoError(t, err)

	p, err := DecodeMarketEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "Cloud Price War", p.Name)

	effects, err := p.Effects()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"upkeep_multiplier": 0.2}, effects, "cost is always an upkeep increase")
}

func TestGenerateDisabled(t *testing.T) {
	disabled := testConfig("http://127.0.0.1:1")
	disabled.Enabled = false
	noKey := testConfig("http://127.0.0.1:1")
	noKey.APIKey = ""

	for _, cfg := range []Config{disabled, noKey} {
		_, err := NewClient(cfg, zaptest.NewLogger(t)).Generate(context.Background(), KindMarketEvent, nil)
		assert.ErrorIs(t, err, ErrDisabled)
	}
}

func TestGenerateUnknownKind(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "{}")
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL), zaptest.NewLogger(t)).Generate(context.Background(), Kind("poem"), nil)
	assert.ErrorContains(t, err, "unknown generation kind")
}

func TestGenerateHTTPError(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, "")
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL), zaptest.NewLogger(t)).Generate(context.Background(), KindMarketEvent, nil)
	assert.ErrorContains(t, err, "429")
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	start := time.Now()
	_, err := NewClient(cfg, zaptest.NewLogger(t)).Generate(context.Background(), KindMarketEvent, nil)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGenerateRejectsProse(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "I cannot help with that.")
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL), zaptest.NewLogger(t)).Generate(context.Background(), KindMarketEvent, nil)
	assert.ErrorContains(t, err, "no json object")
}

func TestMarketEventEffects(t *testing.T) {
	tests := []struct {
		effectType string
		value      float64
		want       map[string]float64
		wantErr    bool
	}{
		{"revenue", 0.3, map[string]float64{"global_revenue_multiplier": 0.3}, false},
		{"bonus", -0.1, map[string]float64{"global_revenue_multiplier": -0.1}, false},
		{"Progress", 0.2, map[string]float64{"project_progress_multiplier": 0.2}, false},
		{"cost", 0.15, map[string]float64{"upkeep_multiplier": 0.15}, false},
		{"weather", 0.1, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.effectType, func(t *testing.T) {
			p := &MarketEventProposal{Name: "x", EffectType: tt.effectType, EffectValue: tt.value}
			got, err := p.Effects()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeMarketEventValidation(t *testing.T) {
	_, err := DecodeMarketEvent(json.RawMessage(`{"name": "", "effect_type": "revenue"}`))
	assert.Error(t, err)

	_, err = DecodeMarketEvent(json.RawMessage(`{"name": "x", "effect_type": "weather"}`))
	assert.Error(t, err)
}

func TestDecodeProject(t *testing.T) {
	p, err := DecodeProject(json.RawMessage(`{"title": " Inventory API ", "description": "REST", "difficulty": 14, "reward": 800}`))
	require.NoError(t, err)
	assert.Equal(t, "Inventory API", p.Title)
	assert.Equal(t, 10, p.Difficulty)

	_, err = DecodeProject(json.RawMessage(`{"title": "x", "reward": -5}`))
	assert.Error(t, err)
}

func TestDecodeEmployeeName(t *testing.T) {
	name, err := DecodeEmployeeName(json.RawMessage(`{"name": "Ada Byte"}`))
	require.NoError(t, err)
	assert.Equal(t, "Ada Byte", name)

	_, err = DecodeEmployeeName(json.RawMessage(`{"name": ""}`))
	assert.Error(t, err)
}
