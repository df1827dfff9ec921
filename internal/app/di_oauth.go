package app

import (
	"fmt"
	"sync"

	oauthHTTP "github.com/allisson/tokend/internal/oauth/http"
	oauthRepository "github.com/allisson/tokend/internal/oauth/repository"
	oauthService "github.com/allisson/tokend/internal/oauth/service"
	oauthUseCase "github.com/allisson/tokend/internal/oauth/usecase"
)

// oauthComponents holds the OAuth feature dependencies inside the container.
type oauthComponents struct {
	clientRepo     oauthUseCase.ClientRepository
	tokenRepo      oauthUseCase.TokenRepository
	secretService  oauthService.SecretService
	tokenFactory   oauthService.TokenFactory
	claimBuilder   *oauthService.ClaimBuilder
	tokenSigner    oauthService.TokenSigner
	grantUseCase   oauthUseCase.GrantUseCase
	clientUseCase  oauthUseCase.ClientUseCase
	tokenHandler   *oauthHTTP.TokenHandler
	jwksHandler    *oauthHTTP.JWKSHandler
	clientRepoInit sync.Once
	tokenRepoInit  sync.Once
	secretInit     sync.Once
	factoryInit    sync.Once
	claimsInit     sync.Once
	signerInit     sync.Once
	grantInit      sync.Once
	clientUCInit   sync.Once
	tokenHdlInit   sync.Once
	jwksHdlInit    sync.Once
}

// ClientRepository returns the OAuth client repository instance.
func (c *Container) ClientRepository() (oauthUseCase.ClientRepository, error) {
	var err error
	c.clientRepoInit.Do(func() {
		c.clientRepo, err = c.initClientRepository()
		if err != nil {
			c.initErrors["clientRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["clientRepo"]; exists {
		return nil, storedErr
	}
	return c.clientRepo, nil
}

// TokenRepository returns the token repository instance.
func (c *Container) TokenRepository() (oauthUseCase.TokenRepository, error) {
	var err error
	c.tokenRepoInit.Do(func() {
		c.tokenRepo, err = c.initTokenRepository()
		if err != nil {
			c.initErrors["tokenRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenRepo"]; exists {
		return nil, storedErr
	}
	return c.tokenRepo, nil
}

// SecretService returns the client secret hashing service.
func (c *Container) SecretService() oauthService.SecretService {
	c.secretInit.Do(func() {
		c.secretService = oauthService.NewSecretService()
	})
	return c.secretService
}

// TokenFactory returns the opaque token factory.
func (c *Container) TokenFactory() oauthService.TokenFactory {
	c.factoryInit.Do(func() {
		c.tokenFactory = oauthService.NewTokenFactory(c.config)
	})
	return c.tokenFactory
}

// ClaimBuilder returns the JWT claim builder.
func (c *Container) ClaimBuilder() *oauthService.ClaimBuilder {
	c.claimsInit.Do(func() {
		c.claimBuilder = oauthService.NewClaimBuilder(c.config, c.Logger())
	})
	return c.claimBuilder
}

// TokenSigner returns the RS256 token signer.
func (c *Container) TokenSigner() (oauthService.TokenSigner, error) {
	var err error
	c.signerInit.Do(func() {
		keyStore, ksErr := c.KeyStore()
		if ksErr != nil {
			err = ksErr
			c.initErrors["tokenSigner"] = ksErr
			return
		}
		c.tokenSigner = oauthService.NewTokenSigner(keyStore)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenSigner"]; exists {
		return nil, storedErr
	}
	return c.tokenSigner, nil
}

// GrantUseCase returns the grant use case instance.
func (c *Container) GrantUseCase() (oauthUseCase.GrantUseCase, error) {
	var err error
	c.grantInit.Do(func() {
		c.grantUseCase, err = c.initGrantUseCase()
		if err != nil {
			c.initErrors["grantUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["grantUseCase"]; exists {
		return nil, storedErr
	}
	return c.grantUseCase, nil
}

// ClientUseCase returns the client registration use case instance.
func (c *Container) ClientUseCase() (oauthUseCase.ClientUseCase, error) {
	var err error
	c.clientUCInit.Do(func() {
		c.clientUseCase, err = c.initClientUseCase()
		if err != nil {
			c.initErrors["clientUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["clientUseCase"]; exists {
		return nil, storedErr
	}
	return c.clientUseCase, nil
}

// TokenHandler returns the HTTP handler for the token endpoint.
func (c *Container) TokenHandler() (*oauthHTTP.TokenHandler, error) {
	var err error
	c.tokenHdlInit.Do(func() {
		var grantUseCase oauthUseCase.GrantUseCase
		grantUseCase, err = c.GrantUseCase()
		if err != nil {
			c.initErrors["tokenHandler"] = err
			return
		}
		c.tokenHandler = oauthHTTP.NewTokenHandler(grantUseCase, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenHandler"]; exists {
		return nil, storedErr
	}
	return c.tokenHandler, nil
}

// JWKSHandler returns the HTTP handler for the JWKS document.
func (c *Container) JWKSHandler() (*oauthHTTP.JWKSHandler, error) {
	var err error
	c.jwksHdlInit.Do(func() {
		keyStore, ksErr := c.KeyStore()
		if ksErr != nil {
			err = ksErr
			c.initErrors["jwksHandler"] = ksErr
			return
		}
		c.jwksHandler = oauthHTTP.NewJWKSHandler(keyStore, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["jwksHandler"]; exists {
		return nil, storedErr
	}
	return c.jwksHandler, nil
}

// initClientRepository creates the client repository instance.
func (c *Container) initClientRepository() (oauthUseCase.ClientRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for client repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return oauthRepository.NewMySQLClientRepository(db), nil
	case "postgres":
		return oauthRepository.NewPostgreSQLClientRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initTokenRepository creates the token repository instance.
func (c *Container) initTokenRepository() (oauthUseCase.TokenRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for token repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return oauthRepository.NewMySQLTokenRepository(db), nil
	case "postgres":
		return oauthRepository.NewPostgreSQLTokenRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initGrantUseCase creates the grant use case with all its dependencies.
func (c *Container) initGrantUseCase() (oauthUseCase.GrantUseCase, error) {
	if err := c.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	grantLock, err := c.GrantLock()
	if err != nil {
		return nil, fmt.Errorf("failed to get grant lock for grant use case: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for grant use case: %w", err)
	}

	clientRepo, err := c.ClientRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get client repository for grant use case: %w", err)
	}

	tokenRepo, err := c.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for grant use case: %w", err)
	}

	subjectUseCase, err := c.SubjectUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get subject use case for grant use case: %w", err)
	}

	scopeAuthorizer, err := c.ScopeAuthorizer()
	if err != nil {
		return nil, fmt.Errorf("failed to get scope authorizer for grant use case: %w", err)
	}

	tokenSigner, err := c.TokenSigner()
	if err != nil {
		return nil, fmt.Errorf("failed to get token signer for grant use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for grant use case: %w", err)
	}

	useCase := oauthUseCase.NewGrantUseCase(
		c.config,
		c.Logger(),
		grantLock,
		txManager,
		clientRepo,
		tokenRepo,
		subjectUseCase,
		scopeAuthorizer,
		c.SecretService(),
		c.TokenFactory(),
		c.ClaimBuilder(),
		tokenSigner,
	)

	return oauthUseCase.NewGrantUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initClientUseCase creates the client registration use case.
func (c *Container) initClientUseCase() (oauthUseCase.ClientUseCase, error) {
	clientRepo, err := c.ClientRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get client repository for client use case: %w", err)
	}

	return oauthUseCase.NewClientUseCase(clientRepo, c.SecretService()), nil
}
