package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ID                int
	ListenAddrIP      string
	ListenAddrPort    string
	DatabaseType      string
	DatabaseHost      string
	DatabasePort      string
	DatabaseUser      string
	DatabasePassword  string
	DatabaseDbname    string
	DatabaseSslmode   string
	IngressPath       string
	IngressDelete     bool
	IngressMoveFolder string
	IngressPreserve   bool
	IngressInterval   int
	SofficePath       string
	ConvertTimeout    int // seconds allowed for one external conversion
	ConvertServiceURL string
	Renderer          string // "fitz" or "pdfium"
	ZoomX             float64
	ZoomY             float64
	JPEGQuality       int
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatVal
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	serverConfigLive := ServerConfig{}

	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	// Load configuration from environment variables with defaults

	// Server configuration
	serverConfigLive.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	serverConfigLive.ListenAddrIP = getEnv("SERVER_ADDR", "")

	// Database configuration
	serverConfigLive.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	serverConfigLive.DatabaseHost = getEnv("DATABASE_HOST", "localhost")
	serverConfigLive.DatabasePort = getEnv("DATABASE_PORT", "5432")
	serverConfigLive.DatabaseUser = getEnv("DATABASE_USER", "gopreview")
	serverConfigLive.DatabasePassword = getEnv("DATABASE_PASSWORD", "")
	serverConfigLive.DatabaseDbname = getEnv("DATABASE_NAME", "gopreview")
	serverConfigLive.DatabaseSslmode = getEnv("DATABASE_SSLMODE", "")

	logger.Info("Database configuration loaded", "type", serverConfigLive.DatabaseType)

	// Ingress configuration
	ingressDir := filepath.ToSlash(getEnv("INGRESS_PATH", "ingress"))
	ingressDirAbs, err := filepath.Abs(ingressDir)
	if err != nil {
		logger.Error("Failed creating absolute path for ingress directory", "error", err)
	}
	serverConfigLive.IngressPath = ingressDirAbs

	serverConfigLive.IngressInterval = getEnvInt("INGRESS_INTERVAL", 10)
	serverConfigLive.IngressPreserve = getEnvBool("INGRESS_PRESERVE", true)
	// Previews live next to their source, so deleting sources is opt-in
	serverConfigLive.IngressDelete = getEnvBool("INGRESS_DELETE", false)

	ingressMoveFolder := filepath.ToSlash(getEnv("INGRESS_MOVE_FOLDER", ""))
	if ingressMoveFolder != "" {
		ingressMoveFolderABS, err := filepath.Abs(ingressMoveFolder)
		if err != nil {
			logger.Error("Failed creating absolute path for ingress move folder", "error", err)
		}
		serverConfigLive.IngressMoveFolder = ingressMoveFolderABS
		if !serverConfigLive.IngressDelete {
			os.MkdirAll(ingressMoveFolderABS, os.ModePerm)
		}
	} else {
		serverConfigLive.IngressMoveFolder = ""
	}

	// Converter configuration
	serverConfigLive.ConvertTimeout = getEnvInt("CONVERT_TIMEOUT", 120)
	serverConfigLive.ConvertServiceURL = getEnv("CONVERT_SERVICE_URL", "")

	sofficePath := FindSoffice(getEnv("SOFFICE_PATH", ""))
	if sofficePath != "" {
		logger.Info("LibreOffice found, document conversion enabled", "path", sofficePath)
	} else {
		logger.Warn("LibreOffice executable not found, conversion will rely on fallback backends")
	}
	serverConfigLive.SofficePath = sofficePath

	// Rendering configuration
	serverConfigLive.Renderer = getEnv("RENDERER", "fitz")
	serverConfigLive.ZoomX = getEnvFloat("ZOOM_X", 2.0)
	serverConfigLive.ZoomY = getEnvFloat("ZOOM_Y", 2.0)
	serverConfigLive.JPEGQuality = getEnvInt("JPEG_QUALITY", 95)

	fmt.Println("\n========================================")
	fmt.Println("  goPreview - Document Preview Service")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Ingress folder: %s (every %d minutes)\n", serverConfigLive.IngressPath, serverConfigLive.IngressInterval)
	fmt.Printf("Detailed logs: %s\n", getEnv("LOG_FILE", "gopreview.log"))
	fmt.Println("Initializing...")

	logger.Info("About to setup database", "type", serverConfigLive.DatabaseType)

	return serverConfigLive, logger
}

// FindSoffice locates the LibreOffice binary. An explicit path wins if it
// exists; otherwise the usual executable names are searched on PATH.
func FindSoffice(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
		if path, err := exec.LookPath(configured); err == nil {
			return path
		}
		return ""
	}
	for _, name := range []string{"soffice", "libreoffice"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "debug")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelDebug
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "file")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "gopreview.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}
