package engine

import (
	"fmt"
	"os"
	"time"

	"github.com/drummonds/goPreview/config"
	"github.com/drummonds/goPreview/database"
	"github.com/drummonds/goPreview/engine/docconv"
	"github.com/drummonds/goPreview/engine/pdfrender"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	serverConfig, err := database.FetchConfigFromDB(serverHandler.DB)
	if err != nil {
		Logger.Error("Error fetching config", "error", err)
		return err
	}
	converterChecks(serverConfig)
	if err := ingressDirectoryChecks(serverConfig); err != nil {
		return err
	}
	if err := moveFolderChecks(serverConfig); err != nil {
		return err
	}
	if err := rendererChecks(serverConfig); err != nil {
		return err
	}
	return nil
}

// converterChecks probes the conversion backends. A host without any backend
// can still preview PDF sources, so a bare host only warns.
func converterChecks(serverConfig config.ServerConfig) {
	timeout := time.Duration(serverConfig.ConvertTimeout) * time.Second
	converters := []docconv.Converter{
		docconv.NewLibreOffice(serverConfig.SofficePath, timeout),
		docconv.NewWordCOM(),
	}
	if serverConfig.ConvertServiceURL != "" {
		converters = append(converters, docconv.NewRemote(serverConfig.ConvertServiceURL))
	}

	available := 0
	for _, converter := range converters {
		if converter.Available() {
			Logger.Info("Conversion backend available", "backend", converter.Name())
			available++
		} else {
			Logger.Debug("Conversion backend unavailable", "backend", converter.Name())
		}
	}
	if available == 0 {
		Logger.Warn("No conversion backend available, only PDF sources can be previewed")
	}
}

// ingressDirectoryChecks ensures the ingress directory exists
func ingressDirectoryChecks(serverConfig config.ServerConfig) error {
	if serverConfig.IngressPath == "" {
		Logger.Warn("Ingress path not configured")
		return nil
	}

	// Check if directory exists
	ingressInfo, err := os.Stat(serverConfig.IngressPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Create the directory
			Logger.Info("Creating ingress directory", "path", serverConfig.IngressPath)
			err = os.MkdirAll(serverConfig.IngressPath, 0755)
			if err != nil {
				Logger.Error("Failed to create ingress directory", "path", serverConfig.IngressPath, "error", err)
				return err
			}
			Logger.Info("Ingress directory created successfully", "path", serverConfig.IngressPath)
			return nil
		}
		Logger.Error("Error checking ingress directory", "path", serverConfig.IngressPath, "error", err)
		return err
	}

	// Check if it's actually a directory
	if !ingressInfo.IsDir() {
		Logger.Error("Ingress path exists but is not a directory", "path", serverConfig.IngressPath)
		return fmt.Errorf("ingress path is not a directory: %s", serverConfig.IngressPath)
	}

	Logger.Info("Ingress directory exists", "path", serverConfig.IngressPath)
	return nil
}

// moveFolderChecks ensures the post-processing move folder exists when configured
func moveFolderChecks(serverConfig config.ServerConfig) error {
	if serverConfig.IngressMoveFolder == "" || serverConfig.IngressDelete {
		return nil
	}

	moveInfo, err := os.Stat(serverConfig.IngressMoveFolder)
	if err != nil {
		if os.IsNotExist(err) {
			Logger.Info("Creating ingress move folder", "path", serverConfig.IngressMoveFolder)
			err = os.MkdirAll(serverConfig.IngressMoveFolder, 0755)
			if err != nil {
				Logger.Error("Failed to create ingress move folder", "path", serverConfig.IngressMoveFolder, "error", err)
				return err
			}
			return nil
		}
		Logger.Error("Error checking ingress move folder", "path", serverConfig.IngressMoveFolder, "error", err)
		return err
	}

	if !moveInfo.IsDir() {
		Logger.Error("Ingress move folder exists but is not a directory", "path", serverConfig.IngressMoveFolder)
		return fmt.Errorf("ingress move folder is not a directory: %s", serverConfig.IngressMoveFolder)
	}

	return nil
}

// rendererChecks constructs the configured renderer once so a broken
// configuration surfaces at startup instead of on the first document
func rendererChecks(serverConfig config.ServerConfig) error {
	renderer, err := pdfrender.NewRenderer(serverConfig.Renderer)
	if err != nil {
		Logger.Error("Unable to construct PDF renderer", "renderer", serverConfig.Renderer, "error", err)
		return fmt.Errorf("renderer check failed: %w", err)
	}
	defer renderer.Close()
	Logger.Info("PDF renderer ready", "renderer", serverConfig.Renderer)
	return nil
}
