package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FaceService calls a self-hosted face recognition microservice.
type FaceService struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Skip    bool
}

// NewFaceService creates a client with the given per-request timeout.
func NewFaceService(baseURL, apiKey string, timeout time.Duration, skip bool) *FaceService {
	if timeout <= 0 {
		timeout = 30 * time.Second // Face processing can take time
	}
	return &FaceService{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *FaceService) Name() string {
	if c.Skip {
		return "face-service (skip)"
	}
	return "face-service"
}

type wireImage struct {
	Data     string `json:"data"`
	MIMEType string `json:"mime_type"`
}

type wireReference struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	wireImage
}

// Identify posts the target and gallery to /identify.
func (c *FaceService) Identify(ctx context.Context, target Image, gallery []Reference) (Outcome, error) {
	if c.Skip {
		if len(gallery) == 0 {
			return Outcome{Matched: false}, nil
		}
		return Outcome{
			Matched:      true,
			EmployeeID:   gallery[0].EmployeeID,
			EmployeeName: gallery[0].Name,
			Confidence:   0.95,
		}, nil
	}
	if c.APIKey == "" {
		return Outcome{}, ErrCredentialMissing
	}

	payload := struct {
		Target  wireImage       `json:"target"`
		Gallery []wireReference `json:"gallery"`
	}{
		Target:  toWire(PrepareImage(target, maxImageSide)),
		Gallery: make([]wireReference, 0, len(gallery)),
	}
	for _, ref := range gallery {
		payload.Gallery = append(payload.Gallery, wireReference{
			EmployeeID: ref.EmployeeID,
			Name:       ref.Name,
			wireImage:  toWire(PrepareImage(ref.Image, maxImageSide)),
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/identify", bytes.NewReader(body))
	if err != nil {
		return Outcome{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: face service request failed: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Outcome{}, fmt.Errorf("%w: face service error %s: %s", statusClass(resp.StatusCode), resp.Status, string(bodyBytes))
	}

	var out struct {
		Matched      bool    `json:"matched"`
		EmployeeID   string  `json:"employee_id"`
		EmployeeName string  `json:"employee_name"`
		Confidence   float64 `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Outcome{}, fmt.Errorf("%w: failed to decode response: %v", ErrMalformedResponse, err)
	}

	return normalize(Outcome{
		Matched:      out.Matched,
		EmployeeID:   out.EmployeeID,
		EmployeeName: out.EmployeeName,
		Confidence:   out.Confidence,
	})
}

// Health checks if the face service is available.
func (c *FaceService) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}
	return nil
}

func statusClass(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrCredentialMissing
	case http.StatusTooManyRequests:
		return ErrQuotaExceeded
	default:
		return ErrTransport
	}
}

func toWire(img Image) wireImage {
	return wireImage{
		Data:     base64.StdEncoding.EncodeToString(img.Data),
		MIMEType: img.MIMEType,
	}
}
