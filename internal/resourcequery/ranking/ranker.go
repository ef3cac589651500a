// Package ranking computes the scalar used to order candidate nodes during allocation.
// Scores are pure functions of the job, request, node, and affinity; nothing is mutated.
package ranking

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// Component is a node attribute that may be weighted in a node priority expression.
type Component string

const (
	ComponentConfiguredDisk   Component = "CDISK"
	ComponentConfiguredMemory Component = "CMEM"
	ComponentConfiguredProcs  Component = "CPROCS"
	ComponentConfiguredSwap   Component = "CSWAP"
	ComponentAvailableDisk    Component = "ADISK"
	ComponentAvailableMemory  Component = "AMEM"
	ComponentAvailableProcs   Component = "APROCS"
	ComponentAvailableSwap    Component = "ASWAP"
	ComponentNodeIndex        Component = "NODEINDEX"
	ComponentPriority         Component = "PRIORITY"
	ComponentSpeed            Component = "SPEED"
	ComponentProcSpeed        Component = "PROCSPEED"
	ComponentLoad             Component = "LOAD"
	ComponentFeature          Component = "FEATURE"
	ComponentAffinity         Component = "AFFINITY"
	ComponentPreferred        Component = "PREF"
)

var components = []Component{
	ComponentConfiguredDisk,
	ComponentConfiguredMemory,
	ComponentConfiguredProcs,
	ComponentConfiguredSwap,
	ComponentAvailableDisk,
	ComponentAvailableMemory,
	ComponentAvailableProcs,
	ComponentAvailableSwap,
	ComponentNodeIndex,
	ComponentPriority,
	ComponentSpeed,
	ComponentProcSpeed,
	ComponentLoad,
	ComponentFeature,
	ComponentAffinity,
	ComponentPreferred,
}

const mebibyte = 1024 * 1024

// Term is one weighted component of an Expression.
type Term struct {
	Component Component
	Weight    float64
}

// Expression is a parsed node priority expression: the sum of its weighted terms.
type Expression []Term

// Ranker scores nodes. Parsed node priority expressions are cached, so a Ranker
// should be shared across queries. It is safe for concurrent use.
type Ranker struct {
	expressions *lru.Cache
}

func NewRanker(cacheSize int) (*Ranker, error) {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Ranker{expressions: cache}, nil
}

// Parse parses an expression of the form COMPONENT[:weight][,COMPONENT[:weight]]...
// Weights default to 1.
func (r *Ranker) Parse(s string) (Expression, error) {
	key := strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	if cached, ok := r.expressions.Get(key); ok {
		return cached.(Expression), nil
	}
	rv := make(Expression, 0)
	for _, token := range strings.Split(key, ",") {
		if token == "" {
			continue
		}
		name, weightString, hasWeight := strings.Cut(token, ":")
		component := Component(name)
		if !slices.Contains(components, component) {
			return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "nodePriority",
				Value:   s,
				Message: "unknown component " + name,
			})
		}
		weight := 1.0
		if hasWeight {
			w, err := strconv.ParseFloat(weightString, 64)
			if err != nil {
				return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
					Name:    "nodePriority",
					Value:   s,
					Message: "invalid weight for component " + name,
				})
			}
			weight = w
		}
		rv = append(rv, Term{Component: component, Weight: weight})
	}
	r.expressions.Add(key, rv)
	return rv, nil
}

// PriorityScore returns the priority of node for req.
// If the job carries a node priority expression it is evaluated;
// otherwise the score is the node priority plus 100 for a preferred node plus 100 times the affinity priority.
func (r *Ranker) PriorityScore(job *schedulerobjects.Job, req *schedulerobjects.Request, node *schedulerobjects.Node, affinity schedulerobjects.Affinity, preferred bool) (float64, error) {
	if job != nil && job.NodePriority != "" {
		expr, err := r.Parse(job.NodePriority)
		if err != nil {
			return 0, err
		}
		return expr.Evaluate(req, node, affinity, preferred), nil
	}
	score := node.Priority + 100*affinity.Priority()
	if preferred {
		score += 100
	}
	return score, nil
}

// Evaluate returns the weighted sum of the components of expr for node.
func (expr Expression) Evaluate(req *schedulerobjects.Request, node *schedulerobjects.Node, affinity schedulerobjects.Affinity, preferred bool) float64 {
	score := 0.0
	for _, term := range expr {
		score += term.Weight * componentValue(term.Component, req, node, affinity, preferred)
	}
	return score
}

func componentValue(c Component, req *schedulerobjects.Request, node *schedulerobjects.Node, affinity schedulerobjects.Affinity, preferred bool) float64 {
	switch c {
	case ComponentConfiguredDisk:
		return mebibytes(node.ConfiguredResources, schedulerobjects.ResourceDisk)
	case ComponentConfiguredMemory:
		return mebibytes(node.ConfiguredResources, schedulerobjects.ResourceMemory)
	case ComponentConfiguredProcs:
		return float64(node.ConfiguredResources.Procs())
	case ComponentConfiguredSwap:
		return mebibytes(node.ConfiguredResources, schedulerobjects.ResourceSwap)
	case ComponentAvailableDisk:
		return mebibytes(node.AvailableResources, schedulerobjects.ResourceDisk)
	case ComponentAvailableMemory:
		return mebibytes(node.AvailableResources, schedulerobjects.ResourceMemory)
	case ComponentAvailableProcs:
		return float64(node.AvailableResources.Procs())
	case ComponentAvailableSwap:
		return mebibytes(node.AvailableResources, schedulerobjects.ResourceSwap)
	case ComponentNodeIndex:
		return float64(node.Index)
	case ComponentPriority:
		return node.Priority
	case ComponentSpeed:
		return node.Speed
	case ComponentProcSpeed:
		return float64(node.ProcSpeed)
	case ComponentLoad:
		return node.Load
	case ComponentFeature:
		if req == nil {
			return 0
		}
		matched := 0
		for _, f := range req.Features {
			if slices.Contains(node.Features, f) {
				matched++
			}
		}
		return float64(matched)
	case ComponentAffinity:
		return affinity.Priority()
	case ComponentPreferred:
		if preferred {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func mebibytes(rl schedulerobjects.ResourceList, resourceType string) float64 {
	q := rl.Get(resourceType)
	return float64(q.Value()) / mebibyte
}

// SpeedScores returns the speed metric used by the fastest-first policy for each node.
// Relative speed times 100 is used if relative speeds differ across nodes; otherwise,
// since it cannot tell the nodes apart, the processor clock speed is used instead.
func SpeedScores(nodes []*schedulerobjects.Node) []float64 {
	rv := make([]float64, len(nodes))
	distinct := false
	for i, node := range nodes {
		if i > 0 && node.Speed != nodes[0].Speed {
			distinct = true
			break
		}
	}
	for i, node := range nodes {
		if distinct {
			rv[i] = node.Speed * 100
		} else {
			rv[i] = float64(node.ProcSpeed)
		}
	}
	return rv
}
