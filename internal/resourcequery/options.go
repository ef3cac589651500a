package resourcequery

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
)

// Options control how a query is evaluated and what it reports.
type Options struct {
	// Only report windows during which every request can start, each at its offset.
	Intersection bool
	// Don't merge the slots of all requests into one slot per start time.
	NoAggregate bool
	// Profiles applied to the requests, in request order. The first one also applies to the whole job.
	Profiles []string
	// Requests start at their offset relative to the first request.
	TimeLock bool
	// Reservation names the query may use in addition to its credentials.
	ReservationAccess []string
	// Virtual cluster the query is made on behalf of.
	VirtualCluster string
	// Only search for the widest windows.
	SeekWide bool
	// Report windows starting in the future. Otherwise only windows starting at the earliest start are reported.
	Future bool
	// Report the hosts of every slot.
	Verbose bool
	// Requests of the query never share a node.
	Exclusive bool
	// Report up to the query depth slots per window rather than one.
	Flexible bool
	// Record a transaction for every reported slot.
	TID bool
	// Merge the transactions of the slots found at one step into a single list.
	MergeTID bool
}

// ParseOptions parses a comma-separated list of options, e.g., "INTERSECTION,PROFILES=small:large,VC=vc1".
// Keys are case-insensitive. List values are separated by colons. The case of values is kept.
// All unknown or malformed options are reported together.
func ParseOptions(s string) (Options, error) {
	var rv Options
	var result *multierror.Error
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		key, value, hasValue := strings.Cut(token, "=")
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if hasValue != takesValue(key) {
			result = multierror.Append(result, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "options",
				Value:   token,
				Message: valueMessage(key),
			}))
			continue
		}
		switch key {
		case "INTERSECTION":
			rv.Intersection = true
		case "NOAGGREGATE":
			rv.NoAggregate = true
		case "PROFILES":
			rv.Profiles = splitList(value)
		case "TIMELOCK":
			rv.TimeLock = true
		case "RSVACCESSLIST":
			rv.ReservationAccess = splitList(value)
		case "VC":
			rv.VirtualCluster = value
		case "SEEKWIDE":
			rv.SeekWide = true
		case "FUTURE":
			rv.Future = true
		case "VERBOSE":
			rv.Verbose = true
		case "EXCLUSIVE":
			rv.Exclusive = true
		case "FLEXIBLE":
			rv.Flexible = true
		case "TID":
			rv.TID = true
		case "MERGETID":
			rv.MergeTID = true
		default:
			result = multierror.Append(result, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "options",
				Value:   token,
				Message: "unknown option",
			}))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return Options{}, err
	}
	return rv, nil
}

// String returns the options in the form accepted by ParseOptions.
func (o Options) String() string {
	var parts []string
	flag := func(set bool, name string) {
		if set {
			parts = append(parts, name)
		}
	}
	flag(o.Intersection, "INTERSECTION")
	flag(o.NoAggregate, "NOAGGREGATE")
	if len(o.Profiles) > 0 {
		parts = append(parts, "PROFILES="+strings.Join(o.Profiles, ":"))
	}
	flag(o.TimeLock, "TIMELOCK")
	if len(o.ReservationAccess) > 0 {
		parts = append(parts, "RSVACCESSLIST="+strings.Join(o.ReservationAccess, ":"))
	}
	if o.VirtualCluster != "" {
		parts = append(parts, "VC="+o.VirtualCluster)
	}
	flag(o.SeekWide, "SEEKWIDE")
	flag(o.Future, "FUTURE")
	flag(o.Verbose, "VERBOSE")
	flag(o.Exclusive, "EXCLUSIVE")
	flag(o.Flexible, "FLEXIBLE")
	flag(o.TID, "TID")
	flag(o.MergeTID, "MERGETID")
	return strings.Join(parts, ",")
}

// internal returns the options of a query made on behalf of a pre-built job.
func (o Options) internal() Options {
	o.Intersection = true
	o.NoAggregate = false
	o.TID = true
	o.Flexible = true
	o.Verbose = true
	o.Future = true
	return o
}

// reportsSlots is true if slots are materialised by stepping through the windows found.
func (o Options) reportsSlots() bool {
	return o.Verbose || o.TID
}

func takesValue(key string) bool {
	switch key {
	case "PROFILES", "RSVACCESSLIST", "VC":
		return true
	}
	return false
}

func valueMessage(key string) string {
	if takesValue(key) {
		return fmt.Sprintf("option %s requires a value", key)
	}
	return fmt.Sprintf("option %s takes no value", key)
}

func splitList(s string) []string {
	rv := make([]string, 0)
	for _, item := range strings.Split(s, ":") {
		if item = strings.TrimSpace(item); item != "" {
			rv = append(rv, item)
		}
	}
	return rv
}
