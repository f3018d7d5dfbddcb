//go:build property

package ordering

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// shuffled builds chapters 1..n with unique permalinks in a seeded random
// input order.
func shuffled(n int, seed int64) []types.Chapter {
	chapters := make([]types.Chapter, n)
	for i := range chapters {
		chapters[i] = chapter(i+1, fmt.Sprintf("/ch-%d", i+1), fmt.Sprintf("%02d.md", i+1))
	}
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(n, func(i, j int) { chapters[i], chapters[j] = chapters[j], chapters[i] })
	return chapters
}

func TestOrderingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("valid collections sort to exactly 1..N", prop.ForAll(
		func(n int, seed int64) bool {
			col, err := Validate(shuffled(n, seed))
			if err != nil || col.Len() != n {
				return false
			}
			for i, ch := range col.Chapters() {
				if ch.Number != i+1 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 60),
		gen.Int64(),
	))

	properties.Property("removing any chapter but the last reports exactly that gap", prop.ForAll(
		func(n int, seed int64, drop int) bool {
			chapters := shuffled(n, seed)
			target := drop%(n-1) + 1
			kept := chapters[:0:0]
			for _, ch := range chapters {
				if ch.Number != target {
					kept = append(kept, ch)
				}
			}

			_, err := Validate(kept)
			report, ok := errors.AsReport(err)
			if !ok {
				return false
			}
			gaps := report.ByKind(errors.KindNonContiguousSequence)
			return len(gaps) == 1 && len(gaps[0].Missing) == 1 &&
				gaps[0].Missing[0] == errors.Range{First: target, Last: target}
		},
		gen.IntRange(2, 40),
		gen.Int64(),
		gen.IntRange(0, 1000),
	))

	properties.Property("a shared permalink always names both sources", prop.ForAll(
		func(n int, seed int64, a, b int) bool {
			chapters := shuffled(n, seed)
			i, j := a%n, b%n
			if i == j {
				j = (j + 1) % n
			}
			chapters[j].Permalink = chapters[i].Permalink

			_, err := Validate(chapters)
			report, ok := errors.AsReport(err)
			if !ok {
				return false
			}
			dups := report.ByKind(errors.KindDuplicatePermalink)
			if len(dups) != 1 || len(dups[0].Sources) != 2 {
				return false
			}
			got := map[string]bool{dups[0].Sources[0]: true, dups[0].Sources[1]: true}
			return got[chapters[i].SourceID] && got[chapters[j].SourceID]
		},
		gen.IntRange(2, 40),
		gen.Int64(),
		gen.IntRange(0, 1000),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}
