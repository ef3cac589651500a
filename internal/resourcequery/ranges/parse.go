package ranges

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
)

// Parse reads a time window of the form <start>[-<end>][;<start>[-<end>]]...
//
// Each time is either seconds since the epoch, NOW, or +<offset> relative to now,
// where offset is a number of seconds or a Go duration such as 90m.
// A missing end means MaxTime. Ranges of the result carry no capacity bound.
func Parse(s string, now int64) (RangeList, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RangeList{}, nil
	}
	rv := make(RangeList, 0)
	for _, token := range strings.Split(s, ";") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		startString, endString, hasEnd := strings.Cut(token, "-")
		start, err := parseTime(startString, now)
		if err != nil {
			return nil, err
		}
		end := MaxTime
		if hasEnd {
			end, err = parseTime(endString, now)
			if err != nil {
				return nil, err
			}
		}
		if end <= start {
			return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "starttime",
				Value:   token,
				Message: "end of window must be after its start",
			})
		}
		rv = append(rv, Range{Start: start, End: end})
	}
	slices.SortFunc(rv, func(a, b Range) bool { return a.Start < b.Start })
	if err := Validate(rv); err != nil {
		return nil, err
	}
	return rv, nil
}

func parseTime(s string, now int64) (int64, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.EqualFold(s, "now"):
		return now, nil
	case strings.HasPrefix(s, "+"):
		offset := strings.TrimPrefix(s, "+")
		if seconds, err := strconv.ParseInt(offset, 10, 64); err == nil {
			return clamp(now + seconds), nil
		}
		d, err := time.ParseDuration(offset)
		if err != nil {
			return 0, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "starttime",
				Value:   s,
				Message: "relative time must be a number of seconds or a duration",
			})
		}
		return clamp(now + int64(d/time.Second)), nil
	default:
		t, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "starttime",
				Value:   s,
				Message: "absolute time must be seconds since the epoch",
			})
		}
		return clamp(t), nil
	}
}
