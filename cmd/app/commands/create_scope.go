package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	scopeDomain "github.com/allisson/tokend/internal/scope/domain"
	scopeUseCase "github.com/allisson/tokend/internal/scope/usecase"
)

// RunCreateScope authors a new scope. A scope is either an umbrella
// (groups children, no policy) or a leaf bound to a granularity policy;
// the use case enforces that shape along with parent chain acyclicity.
//
// Requirements: Database must be migrated and accessible.
func RunCreateScope(
	ctx context.Context,
	useCase scopeUseCase.ScopeUseCase,
	logger *slog.Logger,
	id string,
	name string,
	description string,
	isUmbrella bool,
	parentID string,
	grantTypesCSV string,
	policyID string,
	policyConfigJSON string,
	format string,
	io IOTuple,
) error {
	logger.Info("creating new scope", slog.String("scope_id", id))

	grantTypes, err := parseGrantTypes(grantTypesCSV)
	if err != nil {
		return err
	}

	input := &scopeDomain.CreateScopeInput{
		ID:          id,
		Name:        name,
		Description: description,
		IsUmbrella:  isUmbrella,
		GrantTypes:  grantTypes,
	}

	if parentID != "" {
		input.ParentID = &parentID
	}

	if policyID != "" {
		input.PolicyID = &policyID
	}

	if policyConfigJSON != "" {
		var policyConfig map[string]any
		if err := json.Unmarshal([]byte(policyConfigJSON), &policyConfig); err != nil {
			return fmt.Errorf("failed to parse policy config JSON: %w", err)
		}
		input.PolicyConfig = policyConfig
	}

	scope, err := useCase.Create(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create scope: %w", err)
	}

	if format == "json" {
		outputJSON(map[string]any{
			"id":          scope.ID,
			"name":        scope.Name,
			"is_umbrella": scope.IsUmbrella,
			"policy_id":   scope.PolicyID,
		}, io.Writer)
	} else {
		_, _ = fmt.Fprintln(io.Writer, "Scope created successfully")
		_, _ = fmt.Fprintf(io.Writer, "ID:   %s\n", scope.ID)
		_, _ = fmt.Fprintf(io.Writer, "Name: %s\n", scope.Name)
	}

	logger.Info("scope created successfully", slog.String("scope_id", scope.ID))

	return nil
}
