package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charliechat-core/server/internal/agent/model"
	errx "github.com/charliechat-core/server/internal/core/error"
	logx "github.com/charliechat-core/server/pkg/logger"
)

// ErrUnavailable signals that retrieval is not configured or could not run.
// Callers continue with an empty knowledge block.
var ErrUnavailable = errors.New("knowledge retrieval unavailable")

// MaxPassages bounds how many ranked results are ever considered.
const MaxPassages = 5

const maxResponseBytes = 1 << 20

type retrieveRequest struct {
	KnowledgeBaseID string `json:"knowledgeBaseId"`
	Query           string `json:"query"`
	NumberOfResults int    `json:"numberOfResults"`
}

type retrieveResponse struct {
	Results []struct {
		Content struct {
			Text string `json:"text"`
		} `json:"content"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// HTTPRetriever queries a semantic search service for ranked passages.
type HTTPRetriever struct {
	baseID   string
	endpoint string
	client   *http.Client
}

func NewHTTPRetriever(cfg model.KnowledgeConfig) *HTTPRetriever {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPRetriever{
		baseID:   cfg.BaseID,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

var _ model.Retriever = (*HTTPRetriever)(nil)

func (r *HTTPRetriever) Retrieve(ctx context.Context, query string, k int) ([]model.Passage, error) {
	k = clampK(k)
	body, err := json.Marshal(retrieveRequest{KnowledgeBaseID: r.baseID, Query: query, NumberOfResults: k})
	if err != nil {
		return nil, fmt.Errorf("encode retrieve request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errx.WrapUpstream("knowledge", fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errx.WrapUpstream("knowledge", fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errx.WrapUpstream("knowledge", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode))
	}

	var out retrieveResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, errx.WrapUpstream("knowledge", fmt.Errorf("%w: decode: %v", ErrUnavailable, err))
	}

	passages := make([]model.Passage, 0, len(out.Results))
	for _, res := range out.Results {
		passages = append(passages, model.Passage{Text: res.Content.Text, Score: res.Score})
	}
	passages = TopPassages(passages, k)

	logx.Debug().Str("component", "knowledge").Str("kb", r.baseID).
		Int("requested", k).Int("returned", len(passages)).Msg("knowledge retrieved")
	return passages, nil
}

// Disabled is the retriever used when no knowledge base is configured.
type Disabled struct{}

func (Disabled) Retrieve(context.Context, string, int) ([]model.Passage, error) {
	return nil, ErrUnavailable
}

// New returns an HTTP retriever, or Disabled when cfg is incomplete.
func New(cfg model.KnowledgeConfig) model.Retriever {
	if !cfg.Enabled() {
		logx.Info().Str("component", "knowledge").Msg("knowledge base not configured; retrieval disabled")
		return Disabled{}
	}
	return NewHTTPRetriever(cfg)
}

// TopPassages keeps at most k (and never more than MaxPassages) non-blank
// passages in rank order.
func TopPassages(passages []model.Passage, k int) []model.Passage {
	k = clampK(k)
	out := make([]model.Passage, 0, k)
	for _, p := range passages {
		if len(out) == k {
			break
		}
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Texts flattens passages into their text, preserving order.
func Texts(passages []model.Passage) []string {
	out := make([]string, 0, len(passages))
	for _, p := range passages {
		out = append(out, p.Text)
	}
	return out
}

func clampK(k int) int {
	if k <= 0 || k > MaxPassages {
		return MaxPassages
	}
	return k
}
