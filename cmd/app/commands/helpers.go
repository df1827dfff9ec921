// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"

	"github.com/allisson/tokend/internal/app"
	scopeDomain "github.com/allisson/tokend/internal/scope/domain"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// splitCSV splits a comma-separated value list, trimming whitespace and
// dropping empty entries.
func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// parseGrantTypes converts a comma-separated grant type list into grant
// type settings. Returns an error naming any unknown grant type.
func parseGrantTypes(value string) (map[scopeDomain.GrantType]scopeDomain.GrantTypeSetting, error) {
	names := splitCSV(value)
	if len(names) == 0 {
		return nil, fmt.Errorf("at least one grant type is required")
	}

	settings := make(map[scopeDomain.GrantType]scopeDomain.GrantTypeSetting, len(names))
	for _, name := range names {
		grantType := scopeDomain.GrantType(name)
		if !grantType.Valid() {
			return nil, fmt.Errorf(
				"invalid grant type: %s (valid options: authorization_code, client_credentials, password, refresh_token)",
				name,
			)
		}
		settings[grantType] = scopeDomain.GrantTypeSetting{Enabled: true}
	}
	return settings, nil
}

// outputJSON writes the value as indented JSON.
func outputJSON(value any, writer io.Writer) {
	jsonBytes, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}
	_, _ = fmt.Fprintln(writer, string(jsonBytes))
}
