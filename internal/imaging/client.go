// Package imaging integrates the deployed chest X-ray classifier. The core
// engine only consumes {label: confidence} maps; this client is the boundary
// adapter that produces them from an image.
package imaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Prediction is the normalized classifier output for one image.
type Prediction struct {
	PredictedLabel string             `json:"predicted_label"`
	Confidence     float64            `json:"confidence"`
	Predictions    map[string]float64 `json:"all_predictions"`
	GradCAMURL     string             `json:"gradcam_url,omitempty"`
}

// Client calls the X-ray inference service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an imaging client from the CNN_SERVICE_URL environment
// variable.
func NewClient() (*Client, error) {
	baseURL := os.Getenv("CNN_SERVICE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("CNN_SERVICE_URL environment variable required")
	}
	return NewClientWithURL(baseURL), nil
}

// NewClientWithURL creates an imaging client for an explicit endpoint.
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type serviceResponse struct {
	Predictions map[string]float64 `json:"predictions"`
	GradCAMURL  string             `json:"gradcam_url"`
	Data        []struct {
		Predictions map[string]float64 `json:"predictions"`
		GradCAMURL  string             `json:"gradcam_url"`
	} `json:"data"`
}

// Predict uploads an image and returns the normalized prediction.
func (c *Client) Predict(ctx context.Context, imagePath string) (*Prediction, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to buffer image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	url := c.baseURL + "/predict"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference service returned %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var sr serviceResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("failed to parse inference response: %w", err)
	}

	predictions := sr.Predictions
	gradcam := sr.GradCAMURL
	// Gradio-style services wrap the payload in a data array.
	if len(predictions) == 0 && len(sr.Data) > 0 {
		predictions = sr.Data[0].Predictions
		gradcam = sr.Data[0].GradCAMURL
	}
	if len(predictions) == 0 {
		return nil, fmt.Errorf("inference response carried no predictions")
	}

	p := &Prediction{Predictions: predictions, GradCAMURL: gradcam}
	for label, confidence := range predictions {
		if confidence > p.Confidence {
			p.PredictedLabel = label
			p.Confidence = confidence
		}
	}
	return p, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
