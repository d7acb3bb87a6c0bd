package docconv

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Remote converts documents through the standalone convert service
// (services/convert-service), which wraps a headless LibreOffice behind
// HTTP for hosts that cannot run soffice themselves.
type Remote struct {
	URL        string
	HTTPClient *http.Client
}

// NewRemote creates a remote conversion backend. An empty URL marks the
// backend unavailable.
func NewRemote(url string) *Remote {
	return &Remote{
		URL: url,
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Name identifies the backend in logs and error messages
func (rc *Remote) Name() string {
	return "convert-service"
}

// Available reports whether a service URL is configured
func (rc *Remote) Available() bool {
	return rc.URL != ""
}

// ConvertResponse represents the response from the convert service
type ConvertResponse struct {
	PDF   string `json:"pdf"` // base64 encoded PDF
	Error string `json:"error,omitempty"`
}

// Convert uploads src to the convert service and writes the returned PDF
func (rc *Remote) Convert(ctx context.Context, src string, outPDF string) error {
	// Open the document file
	file, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open document file: %w", err)
	}
	defer file.Close()

	// Create multipart form data
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("document", filepath.Base(src))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}

	_, err = io.Copy(part, file)
	if err != nil {
		return fmt.Errorf("failed to copy file data: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}

	// Make HTTP request
	url := fmt.Sprintf("%s/convert", rc.URL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := rc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call convert service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("convert service returned error status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	// Parse response
	var convertResp ConvertResponse
	if err := json.NewDecoder(resp.Body).Decode(&convertResp); err != nil {
		return fmt.Errorf("failed to decode convert response: %w", err)
	}

	if convertResp.Error != "" {
		return fmt.Errorf("convert service error: %s", convertResp.Error)
	}

	// Decode base64 PDF
	pdfData, err := base64.StdEncoding.DecodeString(convertResp.PDF)
	if err != nil {
		return fmt.Errorf("failed to decode base64 pdf: %w", err)
	}

	// Create output directory if needed
	if err := os.MkdirAll(filepath.Dir(outPDF), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write PDF to disk
	if err := os.WriteFile(outPDF, pdfData, 0644); err != nil {
		return fmt.Errorf("failed to write pdf file: %w", err)
	}

	return nil
}
