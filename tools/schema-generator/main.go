// Command schema-generator writes the composed hermes.yml JSON Schema to
// schema/definitions/hermes.schema.json.
package main

import (
	"os"
	"path/filepath"

	"github.com/grovetools/hermes/cmd"
	"github.com/grovetools/hermes/logging"
)

func main() {
	logger := logging.NewLogger("schema-generator")

	data, err := cmd.ComposedSchema()
	if err != nil {
		logger.WithError(err).Fatal("Error generating schema")
	}

	outputDir := filepath.Join("schema", "definitions")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		logger.WithError(err).Fatal("Error creating schema directory")
	}

	outputPath := filepath.Join(outputDir, "hermes.schema.json")
	if err := os.WriteFile(outputPath, append(data, '\n'), 0o644); err != nil {
		logger.WithError(err).Fatal("Error writing schema file")
	}
	logger.WithField("path", outputPath).Info("Generated configuration schema")
}
