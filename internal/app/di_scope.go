package app

import (
	"fmt"
	"sync"

	"github.com/allisson/tokend/internal/scope/policy"
	scopeRepository "github.com/allisson/tokend/internal/scope/repository"
	scopeUseCase "github.com/allisson/tokend/internal/scope/usecase"
)

// scopeComponents holds the scope feature dependencies inside the container.
type scopeComponents struct {
	policyRegistry      *policy.Registry
	scopeRepo           scopeUseCase.ScopeRepository
	scopeAuthorizer     scopeUseCase.ScopeAuthorizer
	scopeUseCase        scopeUseCase.ScopeUseCase
	policyRegistryInit  sync.Once
	scopeRepoInit       sync.Once
	scopeAuthorizerInit sync.Once
	scopeUseCaseInit    sync.Once
}

// PolicyRegistry returns the granularity policy registry with the
// built-in policies registered.
func (c *Container) PolicyRegistry() *policy.Registry {
	c.policyRegistryInit.Do(func() {
		registry := policy.NewRegistry()
		registry.Register(policy.NewPermissionPolicy())
		registry.Register(policy.NewRolePolicy())
		c.policyRegistry = registry
	})
	return c.policyRegistry
}

// ScopeRepository returns the scope repository instance.
func (c *Container) ScopeRepository() (scopeUseCase.ScopeRepository, error) {
	var err error
	c.scopeRepoInit.Do(func() {
		c.scopeRepo, err = c.initScopeRepository()
		if err != nil {
			c.initErrors["scopeRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["scopeRepo"]; exists {
		return nil, storedErr
	}
	return c.scopeRepo, nil
}

// ScopeAuthorizer returns the scope authorizer instance.
func (c *Container) ScopeAuthorizer() (scopeUseCase.ScopeAuthorizer, error) {
	var err error
	c.scopeAuthorizerInit.Do(func() {
		scopeRepo, repoErr := c.ScopeRepository()
		if repoErr != nil {
			err = repoErr
			c.initErrors["scopeAuthorizer"] = repoErr
			return
		}
		c.scopeAuthorizer = scopeUseCase.NewScopeAuthorizer(scopeRepo, c.PolicyRegistry())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["scopeAuthorizer"]; exists {
		return nil, storedErr
	}
	return c.scopeAuthorizer, nil
}

// ScopeUseCase returns the scope authoring use case instance.
func (c *Container) ScopeUseCase() (scopeUseCase.ScopeUseCase, error) {
	var err error
	c.scopeUseCaseInit.Do(func() {
		scopeRepo, repoErr := c.ScopeRepository()
		if repoErr != nil {
			err = repoErr
			c.initErrors["scopeUseCase"] = repoErr
			return
		}
		c.scopeUseCase = scopeUseCase.NewScopeUseCase(scopeRepo, c.PolicyRegistry())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["scopeUseCase"]; exists {
		return nil, storedErr
	}
	return c.scopeUseCase, nil
}

// initScopeRepository creates the scope repository instance.
func (c *Container) initScopeRepository() (scopeUseCase.ScopeRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for scope repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return scopeRepository.NewMySQLScopeRepository(db), nil
	case "postgres":
		return scopeRepository.NewPostgreSQLScopeRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}
