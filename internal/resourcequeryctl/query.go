package resourcequeryctl

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
	"github.com/armadaproject/resourcequery/internal/resourcequery"
	"github.com/armadaproject/resourcequery/internal/resourcequery/loader"
	"github.com/armadaproject/resourcequery/internal/resourcequery/nodedb"
	"github.com/armadaproject/resourcequery/internal/resourcequery/ranges"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

type OutputFormat string

const (
	OutputTable OutputFormat = "table"
	OutputYaml  OutputFormat = "yaml"
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputTable, OutputYaml:
		return f, nil
	default:
		return "", errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "output",
			Value:   s,
			Message: "expected one of table, yaml",
		})
	}
}

// Query evaluates the query in queryPath against the snapshot in snapshotPath and prints the slots found.
func (a *App) Query(ctx context.Context, snapshotPath, queryPath string, format OutputFormat) error {
	snapshot, err := loader.LoadSnapshot(snapshotPath)
	if err != nil {
		return err
	}
	db, err := nodedb.NewNodeDb(snapshot)
	if err != nil {
		return errors.WithMessagef(err, "invalid snapshot %s", snapshotPath)
	}
	q, err := loader.LoadQuery(queryPath)
	if err != nil {
		return err
	}

	engine, cleanup, err := a.newEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := engine.Execute(ctx, db, q)
	if armadaerrors.IsResourcesUnavailable(err) {
		fmt.Fprintf(a.Out, "%s\n", errors.Cause(err))
		return err
	} else if err != nil {
		return err
	}

	switch format {
	case OutputYaml:
		b, err := yaml.Marshal(result)
		if err != nil {
			return errors.WithStack(err)
		}
		fmt.Fprint(a.Out, string(b))
	default:
		a.printTable(result)
	}
	return nil
}

func (a *App) printTable(result *resourcequery.Result) {
	w := tabwriter.NewWriter(a.Out, 1, 1, 2, ' ', 0)
	fmt.Fprintf(w, "Query:\t%s\n", result.QueryId)
	for _, p := range result.Partitions {
		fmt.Fprintf(w, "\nPartition:\t%s\n", p.Partition)
		fmt.Fprintf(w, "Feasible nodes:\t%d\n", p.FeasibleNodes)
		fmt.Fprintf(w, "Feasible tasks:\t%d\n", p.FeasibleTasks)
		fmt.Fprint(w, "REQUEST\tSTART\tDURATION\tNODES\tTASKS\tHOSTS\tTID\n")
		for _, slot := range p.Slots {
			fmt.Fprintf(
				w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
				requestName(slot.RequestIndex),
				time.Unix(slot.Start, 0).UTC().Format(time.RFC3339),
				formatDuration(slot.Start, slot.Duration),
				slot.NodeCount,
				slot.TaskCount,
				orDash(strings.Join(slot.Hosts, ",")),
				orDash(slot.TransactionId),
			)
		}
	}
	w.Flush()
}

func requestName(i int) string {
	if i == schedulerobjects.AllRequests {
		return "ALL"
	}
	return fmt.Sprintf("%d", i)
}

func formatDuration(start, duration int64) string {
	if start+duration >= ranges.MaxTime {
		return "INFINITY"
	}
	return (time.Duration(duration) * time.Second).String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
