package imaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chest.png")
	require.NoError(t, os.WriteFile(path, []byte("not a real png"), 0o644))
	return path
}

func TestPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "chest.png", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictions": {"Pneumonia": 0.82, "Effusion": 0.11}, "gradcam_url": "/gradcam/abc.png"}`))
	}))
	defer srv.Close()

	client := NewClientWithURL(srv.URL)
	pred, err := client.Predict(context.Background(), writeTempImage(t))
	require.NoError(t, err)

	assert.Equal(t, "Pneumonia", pred.PredictedLabel)
	assert.InDelta(t, 0.82, pred.Confidence, 1e-9)
	assert.Len(t, pred.Predictions, 2)
	assert.Equal(t, "/gradcam/abc.png", pred.GradCAMURL)
}

func TestPredict_GradioEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [{"predictions": {"Mass": 0.4}, "gradcam_url": "/g.png"}]}`))
	}))
	defer srv.Close()

	client := NewClientWithURL(srv.URL)
	pred, err := client.Predict(context.Background(), writeTempImage(t))
	require.NoError(t, err)

	assert.Equal(t, "Mass", pred.PredictedLabel)
	assert.Equal(t, "/g.png", pred.GradCAMURL)
}

func TestPredict_Errors(t *testing.T) {
	t.Run("missing image file", func(t *testing.T) {
		client := NewClientWithURL("http://localhost:1")
		_, err := client.Predict(context.Background(), "/nonexistent.png")
		assert.ErrorContains(t, err, "failed to open image")
	})

	t.Run("service error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := NewClientWithURL(srv.URL)
		_, err := client.Predict(context.Background(), writeTempImage(t))
		assert.ErrorContains(t, err, "503")
	})

	t.Run("empty predictions", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"predictions": {}}`))
		}))
		defer srv.Close()

		client := NewClientWithURL(srv.URL)
		_, err := client.Predict(context.Background(), writeTempImage(t))
		assert.ErrorContains(t, err, "no predictions")
	})
}

func TestNewClient_RequiresEnv(t *testing.T) {
	t.Setenv("CNN_SERVICE_URL", "")
	_, err := NewClient()
	assert.Error(t, err)

	t.Setenv("CNN_SERVICE_URL", "http://inference.local")
	client, err := NewClient()
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestDiseaseForLabel(t *testing.T) {
	tests := []struct {
		label string
		want  string
		ok    bool
	}{
		{"Pneumonia", "D005", true},
		{"Consolidation", "D005", true},
		{"Mass", "D008", true},
		{"Effusion", "D009", true},
		{"Pneumothorax", "D010", true},
		{"Cardiomegaly", "D011", true},
		{"Atelectasis", "", false},
		{"No Finding", "", false},
	}

	for _, tt := range tests {
		got, ok := DiseaseForLabel(tt.label)
		assert.Equal(t, tt.ok, ok, tt.label)
		assert.Equal(t, tt.want, got, tt.label)
	}
}
