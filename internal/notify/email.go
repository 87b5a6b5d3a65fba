// Package notify sends completion notifications through an HTTP mail
// endpoint.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"postreel/pkg/httputil"
)

// Mailer posts messages to a mail delivery endpoint.
type Mailer interface {
	SendVideoCompletion(ctx context.Context, recipient, videoURL, postID string) error
}

// EmailClient delivers mail through a JSON POST endpoint.
type EmailClient struct {
	endpoint   string
	httpClient *httputil.RetryClient
	logger     *slog.Logger
}

type emailRequest struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
	VideoURL string `json:"videoUrl,omitempty"`
	PostID   string `json:"postId,omitempty"`
}

type emailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewEmailClient(endpoint string, logger *slog.Logger) *EmailClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailClient{
		endpoint: endpoint,
		httpClient: httputil.NewRetryClient(
			&http.Client{Timeout: 30 * time.Second},
			httputil.DefaultRetryConfig(),
		),
		logger: logger,
	}
}

// SendVideoCompletion notifies the recipient that a video finished
// rendering, with a direct link to the artifact.
func (c *EmailClient) SendVideoCompletion(ctx context.Context, recipient, videoURL, postID string) error {
	body := emailRequest{
		To:       recipient,
		Subject:  fmt.Sprintf("Video Generation Complete: %s", postID),
		HTML:     completionHTML(videoURL, postID),
		VideoURL: videoURL,
		PostID:   postID,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("email endpoint returned %s: %s", resp.Status, raw)
	}

	var result emailResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode email response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("email delivery rejected: %s", result.Message)
	}

	c.logger.Info("completion email sent", "recipient", recipient, "postId", postID)
	return nil
}

func completionHTML(videoURL, postID string) string {
	return fmt.Sprintf(`<h1>Video Generation Complete</h1>
<p>Your video for post <strong>%s</strong> has been successfully generated.</p>
<div style="margin: 20px 0;">
  <a href="%s" style="padding: 10px 15px; background-color: #4CAF50; color: white; text-decoration: none; border-radius: 4px;">View Video</a>
</div>
<p>Direct link: <a href="%s">%s</a></p>`, postID, videoURL, videoURL, videoURL)
}
