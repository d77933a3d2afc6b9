// Package inference talks to the plant classifier and disease detection services.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

var (
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("inference service unavailable")
	// ErrUpstream wraps non-2xx answers and transport failures.
	ErrUpstream = errors.New("inference service error")
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "plantastic_inference_requests_total",
	Help: "Calls to inference services by service and outcome.",
}, []string{"service", "outcome"})

// StatusError is a non-2xx answer from a service. It matches ErrUpstream.
type StatusError struct {
	Service string
	Code    int
	Detail  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned %d: %s", ErrUpstream, e.Service, e.Code, e.Detail)
}

func (e *StatusError) Unwrap() error { return ErrUpstream }

// Prediction is one ranked class label. Confidence is in [0, 1].
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Image is the uploaded file forwarded to a service.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Classifier returns ranked predictions for an image.
type Classifier interface {
	Predict(ctx context.Context, img Image) ([]Prediction, error)
}

// decodeFunc turns a 2xx response body into predictions.
type decodeFunc func(body []byte) ([]Prediction, error)

// Client is a Classifier backed by an HTTP service.
type Client struct {
	name    string
	url     string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	decode  decodeFunc
}

func newClient(name, url string, timeout time.Duration, decode decodeFunc) *Client {
	return &Client{
		name:   name,
		url:    url,
		http:   &http.Client{Timeout: timeout},
		decode: decode,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
			IsSuccessful: healthyOutcome,
			OnStateChange: func(name string, from, to gobreaker.State) {
				logrus.WithFields(logrus.Fields{"service": name, "from": from.String(), "to": to.String()}).Warn("Inference circuit breaker state changed")
			},
		}),
	}
}

// NewPlantClassifier calls POST {baseURL}/classify.
func NewPlantClassifier(baseURL string, timeout time.Duration) *Client {
	return newClient("plant-classifier", baseURL+"/classify", timeout, decodeClassifier)
}

// NewDiseaseDetector calls POST {baseURL}/api/disease/predict/.
func NewDiseaseDetector(baseURL string, timeout time.Duration) *Client {
	return newClient("disease-detector", baseURL+"/api/disease/predict/", timeout, decodeDisease)
}

// Name identifies the service in logs and metrics.
func (c *Client) Name() string { return c.name }

// Predict uploads img and returns predictions sorted by confidence, highest first.
func (c *Client) Predict(ctx context.Context, img Image) ([]Prediction, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		return c.do(ctx, img)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		requestsTotal.WithLabelValues(c.name, "rejected").Inc()
		return nil, ErrUnavailable
	case err != nil:
		requestsTotal.WithLabelValues(c.name, "error").Inc()
		return nil, err
	}
	requestsTotal.WithLabelValues(c.name, "ok").Inc()
	preds := res.([]Prediction)
	sort.SliceStable(preds, func(i, j int) bool { return preds[i].Confidence > preds[j].Confidence })
	return preds, nil
}

func (c *Client) do(ctx context.Context, img Image) ([]Prediction, error) {
	body, contentType, err := multipartBody(img)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, c.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrUpstream, c.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Service: c.name, Code: resp.StatusCode, Detail: detail(raw)}
	}
	preds, err := c.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, c.name, err)
	}
	return preds, nil
}

// healthyOutcome tells the breaker which errors say nothing about the service's health:
// rejected uploads (4xx) and requests the caller cancelled.
func healthyOutcome(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Code < http.StatusInternalServerError
}

func multipartBody(img Image) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, img.Filename))
	ct := img.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("copy image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// detail extracts FastAPI's {"detail": ...} message, falling back to the raw body.
func detail(raw []byte) string {
	var e struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Detail != nil {
		return fmt.Sprint(e.Detail)
	}
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return string(raw)
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    struct {
		Predictions []T `json:"predictions"`
	} `json:"data"`
}

// decodeClassifier reads {"name", "confidence"} with confidence in percent.
func decodeClassifier(raw []byte) ([]Prediction, error) {
	var env envelope[struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	}]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return nil, errors.New("service reported failure")
	}
	out := make([]Prediction, 0, len(env.Data.Predictions))
	for _, p := range env.Data.Predictions {
		out = append(out, Prediction{Label: p.Name, Confidence: p.Confidence / 100})
	}
	return out, nil
}

// decodeDisease reads {"class_name", "confidence"} with confidence in [0, 1].
func decodeDisease(raw []byte) ([]Prediction, error) {
	var env envelope[struct {
		ClassName  string  `json:"class_name"`
		Confidence float64 `json:"confidence"`
	}]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return nil, errors.New("service reported failure")
	}
	out := make([]Prediction, 0, len(env.Data.Predictions))
	for _, p := range env.Data.Predictions {
		out = append(out, Prediction{Label: p.ClassName, Confidence: p.Confidence})
	}
	return out, nil
}
