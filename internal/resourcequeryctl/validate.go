package resourcequeryctl

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/armadaproject/resourcequery/internal/resourcequery/loader"
	"github.com/armadaproject/resourcequery/internal/resourcequery/nodedb"
)

// Validate checks the snapshot in snapshotPath and prints a summary of its partitions.
func (a *App) Validate(snapshotPath string) error {
	snapshot, err := loader.LoadSnapshot(snapshotPath)
	if err != nil {
		return err
	}
	db, err := nodedb.NewNodeDb(snapshot)
	if err != nil {
		return errors.WithMessagef(err, "invalid snapshot %s", snapshotPath)
	}
	fmt.Fprintf(a.Out, "Snapshot %s is valid\n", snapshotPath)
	fmt.Fprint(a.Out, db.String())
	return nil
}
