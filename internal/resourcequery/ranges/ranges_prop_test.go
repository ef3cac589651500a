package ranges

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

// genRangeList generates well-formed range lists within [base, base+span).
func genRangeList() gopter.Gen {
	return func(genParams *gopter.GenParameters) *gopter.GenResult {
		const base, step = 1000000, 1000
		n := int(genParams.NextUint64() % 8)
		rl := make(RangeList, 0, n)
		t := int64(base)
		for i := 0; i < n; i++ {
			t += int64(genParams.Rng.Intn(step))
			end := t + 1 + int64(genParams.Rng.Intn(step))
			rl = append(rl, Range{
				Start:     t,
				End:       end,
				NodeCount: genParams.Rng.Intn(16),
				TaskCount: genParams.Rng.Intn(128),
			})
			t = end
		}
		return gopter.NewGenResult(rl, gopter.NoShrinker)
	}
}

func TestIntersectProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("intersection is commutative", prop.ForAll(
		func(a, b RangeList) bool {
			return assert.ObjectsAreEqual(Intersect(a, b), Intersect(b, a))
		},
		genRangeList(), genRangeList(),
	))

	properties.Property("intersection is associative", prop.ForAll(
		func(a, b, c RangeList) bool {
			return assert.ObjectsAreEqual(Intersect(Intersect(a, b), c), Intersect(a, Intersect(b, c)))
		},
		genRangeList(), genRangeList(), genRangeList(),
	))

	properties.Property("intersection never exceeds source capacity", prop.ForAll(
		func(a, b RangeList) bool {
			for _, r := range Intersect(a, b) {
				for _, t := range []int64{r.Start, r.End - 1} {
					ia := IndexAt([]RangeList{a, b}, t)
					if ia[0] == len(a) || ia[1] == len(b) {
						return false
					}
					if r.NodeCount > minInt(a[ia[0]].NodeCount, b[ia[1]].NodeCount) {
						return false
					}
					if r.TaskCount > minInt(a[ia[0]].TaskCount, b[ia[1]].TaskCount) {
						return false
					}
				}
			}
			return true
		},
		genRangeList(), genRangeList(),
	))

	properties.Property("intersection is well formed", prop.ForAll(
		func(a, b RangeList) bool {
			return Validate(Intersect(a, b)) == nil
		},
		genRangeList(), genRangeList(),
	))

	properties.TestingRun(t)
}

func TestOffsetProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("offset then unoffset is the identity", prop.ForAll(
		func(a RangeList, delta int64) bool {
			return assert.ObjectsAreEqual(a, Offset(Offset(a, delta), -delta))
		},
		genRangeList(), gen.Int64Range(-100000, 100000),
	))

	properties.TestingRun(t)
}
