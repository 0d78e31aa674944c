package services

import (
	"context"

	"github.com/EZGGdotxyz/ezgg-service/internal/core"
	"github.com/EZGGdotxyz/ezgg-service/internal/models"
	"github.com/EZGGdotxyz/ezgg-service/internal/repository"
)

// MemberIdentity the wallet identity of a member on one platform.
type MemberIdentity struct {
	MemberID      int64
	Did           string
	WalletAddress string
}

// IdentityProvider resolves member wallet identities. Member accounts live
// in an external system; this service only needs did and wallet address.
type IdentityProvider interface {
	Resolve(ctx context.Context, memberID int64, platform models.BlockChainPlatform) (*MemberIdentity, error)
}

// MemberService recent contacts and identity lookups.
type MemberService struct {
	memberRepo repository.MemberRepository
	identity   IdentityProvider
}

// NewMemberService creates a MemberService.
func NewMemberService(memberRepo repository.MemberRepository, identity IdentityProvider) *MemberService {
	return &MemberService{memberRepo: memberRepo, identity: identity}
}

// ResolveIdentity returns the member's wallet identity or a not-found error.
func (s *MemberService) ResolveIdentity(ctx context.Context, memberID int64, platform models.BlockChainPlatform) (*MemberIdentity, error) {
	if s.identity == nil {
		return nil, core.UnavailableError("identity provider not configured")
	}
	identity, err := s.identity.Resolve(ctx, memberID, platform)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, core.NotFoundError("member %d has no %s wallet", memberID, platform)
	}
	return identity, nil
}

// TouchRecent records that actor just interacted with other. The pair is
// unordered; the latest interaction wins.
func (s *MemberService) TouchRecent(ctx context.Context, actorID, otherID int64, action models.RecentAction) error {
	if actorID == otherID {
		return nil
	}
	return s.memberRepo.TouchRecent(ctx, actorID, otherID, action)
}

// ListRecent returns a member's most recent counterparties, newest first.
func (s *MemberService) ListRecent(ctx context.Context, memberID int64, limit int) ([]*models.MemberRecent, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.memberRepo.ListRecent(ctx, memberID, limit)
}
