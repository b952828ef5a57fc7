package webhook

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/koson/govoltcore/pkg/config"
	"github.com/koson/govoltcore/pkg/models"
)

// Client posts baseline analysis results to the plotting service with
// optimized connection pooling.
type Client struct {
	url        string
	httpClient *http.Client
	config     *config.Config
	subtractor *Subtractor
	bufferPool sync.Pool // Pool for JSON marshaling buffers
}

// NewClient creates a new webhook client with optimized connection pooling
func NewClient(url string, cfg *config.Config) *Client {
	transport := &http.Transport{
		// Connection pooling settings
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: false,
		},

		ResponseHeaderTimeout: 30 * time.Second,

		// Payloads are small arrays; compression costs more than it saves
		DisableCompression: true,

		// Force HTTP/1.1 for better connection reuse
		ForceAttemptHTTP2: false,
	}

	client := &Client{
		url:        url,
		config:     cfg,
		subtractor: NewSubtractor(),
		httpClient: &http.Client{
			Timeout:   45 * time.Second,
			Transport: transport,
		},
		// Buffer pool for JSON marshaling to reduce GC pressure
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 4096))
			},
		},
	}

	return client
}

// Send posts one baseline result. Fallback-derived baselines may carry NaN
// values, which JSON cannot encode; the payload arrays are sanitized first
// and the fallback is flagged so the consumer can mark the result as lower
// confidence.
func (c *Client) Send(item models.WebhookItem) error {
	corrected := c.subtractor.CorrectedCurrent(item.Current, item.ForwardBaseline, item.ReverseBaseline)

	payload := models.WebhookResponse{
		ID:               item.RequestID,
		Time:             time.Now().Format(time.RFC3339Nano),
		Voltage:          item.Voltage,
		Current:          item.Current,
		ForwardBaseline:  sanitizeSlice(item.ForwardBaseline),
		ReverseBaseline:  sanitizeSlice(item.ReverseBaseline),
		CorrectedCurrent: sanitizeSlice(corrected),
		ForwardSegment:   item.ForwardSegment,
		ReverseSegment:   item.ReverseSegment,
		TurningPoint:     item.TurningPoint,
		FallbackUsed:     item.ForwardSegment == nil || item.ReverseSegment == nil,
	}

	// Get buffer from pool and marshal to JSON
	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	encoder := json.NewEncoder(buf)
	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("failed to marshal webhook data: %w", err)
	}

	if !c.config.Quiet {
		log.Printf("DEBUG: Webhook payload - ID: %s, samples: %d, fallback: %v",
			payload.ID, len(payload.Voltage), payload.FallbackUsed)
	}

	resp, err := c.httpClient.Post(c.url, "application/json", bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if !c.config.Quiet {
		log.Printf("Webhook sent - ID: %s, TurningPoint: %d, Status: %d",
			item.RequestID, item.TurningPoint, resp.StatusCode)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	return nil
}

// sanitizeSlice replaces NaN/Inf values with zero for JSON compatibility.
// The untouched input slice stays with the caller.
func sanitizeSlice(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = 0
			continue
		}
		out[i] = v
	}
	return out
}
