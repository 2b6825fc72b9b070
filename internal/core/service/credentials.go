package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
	"github.com/DanielPopoola/donation-gateway/internal/core/ports"
	"github.com/google/uuid"
)

type CredentialResolver struct {
	repo   ports.Repository
	logger *slog.Logger
}

func NewCredentialResolver(repo ports.Repository, logger *slog.Logger) *CredentialResolver {
	return &CredentialResolver{
		repo:   repo,
		logger: logger,
	}
}

// ResolveCredential returns the newest usable provider credential of a host.
// It never touches the network.
func (r *CredentialResolver) ResolveCredential(ctx context.Context, hostID uuid.UUID) (*domain.Credential, error) {
	cred, err := r.repo.FindActiveCredential(ctx, hostID, domain.ServicePayPal)
	if err != nil {
		return nil, fmt.Errorf("find credential for host %s: %w", hostID, err)
	}

	if !cred.Usable() {
		r.logger.Warn("no usable provider credential", "host_id", hostID, "found", cred != nil)
		return nil, domain.NewConfigurationError(hostID.String())
	}

	return cred, nil
}
