package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ConvertResponse struct {
	PDF   string `json:"pdf"` // base64 encoded PDF
	Error string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	LibreOffice string `json:"libreoffice"`
	Timestamp   string `json:"timestamp"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8003"
	}

	sofficePath := os.Getenv("SOFFICE_PATH")
	if sofficePath == "" {
		sofficePath = "/usr/bin/soffice"
	}

	// Verify LibreOffice is available
	if _, err := os.Stat(sofficePath); os.IsNotExist(err) {
		log.Fatalf("LibreOffice not found at %s", sofficePath)
	}

	log.Printf("Starting document convert service on port %s", port)
	log.Printf("Using LibreOffice at: %s", sofficePath)

	http.HandleFunc("/health", healthHandler(sofficePath))
	http.HandleFunc("/convert", convertHandler(sofficePath))

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func healthHandler(sofficePath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Check LibreOffice version
		cmd := exec.Command(sofficePath, "--version")
		output, err := cmd.CombinedOutput()
		libreOfficeInfo := "available"
		if err != nil {
			libreOfficeInfo = fmt.Sprintf("error: %v", err)
		} else {
			libreOfficeInfo = string(bytes.Split(output, []byte("\n"))[0])
		}

		response := HealthResponse{
			Status:      "healthy",
			LibreOffice: libreOfficeInfo,
			Timestamp:   time.Now().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

func convertHandler(sofficePath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Parse multipart form
		err := r.ParseMultipartForm(32 << 20) // 32MB max
		if err != nil {
			sendErrorResponse(w, "Failed to parse form", http.StatusBadRequest)
			return
		}

		// Get the file from the form
		file, header, err := r.FormFile("document")
		if err != nil {
			sendErrorResponse(w, "No document file provided", http.StatusBadRequest)
			return
		}
		defer file.Close()

		log.Printf("Processing conversion request for file: %s", header.Filename)

		// Read file content
		documentData, err := io.ReadAll(file)
		if err != nil {
			sendErrorResponse(w, "Failed to read document file", http.StatusInternalServerError)
			return
		}

		// Convert to PDF
		pdfData, err := convertToPDF(sofficePath, documentData, header.Filename)
		if err != nil {
			log.Printf("Conversion error: %v", err)
			sendErrorResponse(w, fmt.Sprintf("Conversion failed: %v", err), http.StatusInternalServerError)
			return
		}

		response := ConvertResponse{
			PDF: base64.StdEncoding.EncodeToString(pdfData),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

func convertToPDF(sofficePath string, documentData []byte, filename string) ([]byte, error) {
	// Create a temporary directory for this request
	tempDir, err := os.MkdirTemp("", "convert-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	// Keep the extension so soffice picks the right import filter, but
	// name the file ourselves since client filenames are untrusted
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".doc"
	}
	name := uuid.New().String()

	inputPath := filepath.Join(tempDir, name+ext)
	if err := os.WriteFile(inputPath, documentData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	// soffice names its output after the input file
	outputPath := filepath.Join(tempDir, name+".pdf")

	// Run LibreOffice
	cmd := exec.Command(sofficePath, "--headless", "--convert-to", "pdf", "--outdir", tempDir, inputPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("soffice command failed: %w, stderr: %s", err, stderr.String())
	}

	// soffice exits zero on some failures, so insist on the artifact
	pdfData, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("soffice produced no pdf: %s", strings.TrimSpace(stderr.String()))
	}

	return pdfData, nil
}

func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := ConvertResponse{
		Error: message,
	}
	json.NewEncoder(w).Encode(response)
}
