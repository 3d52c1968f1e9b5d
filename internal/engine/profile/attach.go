package profile

import (
	"context"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/structure"
	"molgraph/internal/shared/util"
)

// Provider attaches conservation rows to a structure from per-chain sources.
type Provider interface {
	Attach(ctx context.Context, s *structure.Structure, paths map[string]string) error
}

// FileProvider reads PSSM files from disk.
type FileProvider struct{}

// Attach clears all existing rows, then attaches each chain's profile
// independently. Chains without an entry in paths keep no profile.
func (FileProvider) Attach(ctx context.Context, s *structure.Structure, paths map[string]string) error {
	s.ResetProfiles()
	for _, chainID := range util.SortedStringKeys(paths) {
		c, ok := s.Chain(chainID)
		if !ok {
			return errors.AddContext(
				errors.Newf(errors.CodeStructure, "profile given for chain %s, absent from structure %s", chainID, s.ID),
				errors.CtxChain, chainID)
		}
		p, err := ReadFile(paths[chainID], chainID)
		if err != nil {
			return err
		}
		if err := p.Attach(c); err != nil {
			return errors.AddContext(err, errors.CtxPath, paths[chainID])
		}
	}
	return nil
}
