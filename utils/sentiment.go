package utils

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/cppla/postfeed/models"
)

const sentimentMemoSize = 2048

// SentimentClient calls an external text classification endpoint. Analyze never
// fails: any problem yields a nil result and a log line.
type SentimentClient struct {
	url     string
	token   string
	timeout time.Duration
	http    *http.Client
	memo    *expirable.LRU[string, models.Sentiment]
	cache   Cache
	ttl     time.Duration
}

// NewSentimentClient returns nil when url is empty; a nil client analyzes nothing.
func NewSentimentClient(url, token string, timeout time.Duration, cache Cache, ttl time.Duration) *SentimentClient {
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if cache == nil {
		cache = NopCache{}
	}
	return &SentimentClient{
		url:     url,
		token:   token,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		memo:    expirable.NewLRU[string, models.Sentiment](sentimentMemoSize, nil, ttl),
		cache:   cache,
		ttl:     ttl,
	}
}

type sentimentRequest struct {
	Text string `json:"text"`
}

type sentimentLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Analyze classifies text, consulting the in-process and Redis caches first.
func (c *SentimentClient) Analyze(ctx context.Context, text string) *models.Sentiment {
	if c == nil || text == "" {
		return nil
	}
	key := sentimentKey(text)
	if s, ok := c.memo.Get(key); ok {
		return &s
	}
	if b, ok := c.cache.GetBytes(ctx, key); ok {
		var s models.Sentiment
		if err := json.Unmarshal(b, &s); err == nil {
			c.memo.Add(key, s)
			return &s
		}
	}

	s, err := c.fetch(ctx, text)
	if err != nil {
		Sugar.Warnw("sentiment unavailable", "err", err)
		return nil
	}
	c.memo.Add(key, *s)
	c.cache.SetJSON(ctx, key, s, c.ttl)
	return s
}

func (c *SentimentClient) fetch(ctx context.Context, text string) (*models.Sentiment, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(sentimentRequest{Text: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("sentiment api status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	return parseSentiment(body)
}

// parseSentiment accepts a single {label, score} object, a list of them, or a
// list of lists (one per input), and returns the highest scoring label.
func parseSentiment(body []byte) (*models.Sentiment, error) {
	var single sentimentLabel
	if err := json.Unmarshal(body, &single); err == nil && single.Label != "" {
		return &models.Sentiment{Label: single.Label, Score: single.Score}, nil
	}
	var flat []sentimentLabel
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return best(flat)
	}
	var nested [][]sentimentLabel
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		return best(nested[0])
	}
	return nil, fmt.Errorf("unrecognized sentiment response")
}

func best(labels []sentimentLabel) (*models.Sentiment, error) {
	var top *sentimentLabel
	for i := range labels {
		if labels[i].Label == "" {
			continue
		}
		if top == nil || labels[i].Score > top.Score {
			top = &labels[i]
		}
	}
	if top == nil {
		return nil, fmt.Errorf("empty sentiment labels")
	}
	return &models.Sentiment{Label: top.Label, Score: top.Score}, nil
}

func sentimentKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "sentiment:" + hex.EncodeToString(sum[:])
}
