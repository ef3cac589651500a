// Package loader reads cluster snapshots and queries from YAML or JSON files.
package loader

import (
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
	"github.com/armadaproject/resourcequery/internal/resourcequery"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// LoadSnapshot reads the snapshot at path. The snapshot isn't validated;
// that happens when it's indexed with nodedb.NewNodeDb.
func LoadSnapshot(path string) (*schedulerobjects.ClusterSnapshot, error) {
	snapshot := &schedulerobjects.ClusterSnapshot{}
	if err := load(path, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// LoadQuery reads the query at path.
func LoadQuery(path string) (*resourcequery.Query, error) {
	q := &resourcequery.Query{}
	if err := load(path, q); err != nil {
		return nil, err
	}
	return q, nil
}

// LoadProfiles reads a list of profiles from path.
func LoadProfiles(path string) ([]*schedulerobjects.Profile, error) {
	var profiles []*schedulerobjects.Profile
	if err := load(path, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func load(path string, out interface{}) error {
	if path == "" {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "path",
			Value:   path,
			Message: "a file name is required",
		})
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return errors.WithStack(err)
	}
	content, err := os.ReadFile(expanded)
	if os.IsNotExist(err) {
		return errors.WithStack(&armadaerrors.ErrNotFound{
			Type:    "file",
			Value:   expanded,
			Message: err.Error(),
		})
	} else if err != nil {
		return errors.WithStack(err)
	}
	// Unknown fields are an error.
	if err := yaml.UnmarshalStrict(content, out); err != nil {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "path",
			Value:   expanded,
			Message: err.Error(),
		})
	}
	return nil
}
