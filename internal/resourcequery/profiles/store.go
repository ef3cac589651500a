// Package profiles resolves reservation profiles and applies them to the requests of a query.
package profiles

import (
	"context"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// Store is an in-memory ProfileResolver over a fixed set of profiles, usually loaded from configuration.
type Store struct {
	profiles map[string]*schedulerobjects.Profile
}

// NewStore returns a store holding profiles. Names are case-insensitive.
// All invalid or duplicate profiles are reported together.
func NewStore(profiles []*schedulerobjects.Profile) (*Store, error) {
	var result *multierror.Error
	s := &Store{profiles: make(map[string]*schedulerobjects.Profile, len(profiles))}
	for i, p := range profiles {
		if p == nil || p.Name == "" {
			result = multierror.Append(result, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "profiles",
				Value:   i,
				Message: "profile name must be non-empty",
			}))
			continue
		}
		key := strings.ToLower(p.Name)
		if _, ok := s.profiles[key]; ok {
			result = multierror.Append(result, errors.WithStack(&armadaerrors.ErrAlreadyExists{
				Type:  "profile",
				Value: p.Name,
			}))
			continue
		}
		if p.StartPad < 0 || p.EndPad < 0 {
			result = multierror.Append(result, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "profiles",
				Value:   p.Name,
				Message: "padding must be non-negative",
			}))
			continue
		}
		s.profiles[key] = p
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ResolveProfile(_ context.Context, name string) (*schedulerobjects.Profile, error) {
	if p, ok := s.profiles[strings.ToLower(name)]; ok {
		return p, nil
	}
	return nil, errors.WithStack(&armadaerrors.ErrNotFound{
		Type:  "profile",
		Value: name,
	})
}

// Names returns the names of all profiles in the store.
func (s *Store) Names() []string {
	rv := make([]string, 0, len(s.profiles))
	for _, p := range s.profiles {
		rv = append(rv, p.Name)
	}
	return rv
}
