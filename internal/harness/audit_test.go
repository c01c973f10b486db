package harness

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-primparity/internal/convert"
	"github.com/example/go-primparity/internal/lax"
)

type fakeBookkeeping struct {
	impl, nyi []*lax.Primitive
}

func (f fakeBookkeeping) Implemented() []*lax.Primitive       { return f.impl }
func (f fakeBookkeeping) NotYetImplemented() []*lax.Primitive { return f.nyi }

func TestCheckClassifies(t *testing.T) {
	all := []*lax.Primitive{lax.SubP, lax.AddP, lax.ArgmaxP, lax.SinP, lax.CosP, lax.TieInP}
	tr := fakeBookkeeping{
		impl: []*lax.Primitive{lax.AddP, lax.SubP, lax.CosP},
		nyi:  []*lax.Primitive{lax.ArgmaxP, lax.CosP},
	}

	got := Check(all, tr, DefaultExclusions...)
	want := Coverage{
		Implemented:       []string{"add", "sub"},
		NotYetImplemented: []string{"argmax"},
		Excluded:          []string{"tie_in"},
		Missing:           []string{"sin"},
		Ambiguous:         []string{"cos"},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("coverage mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "2 implemented, 1 not yet implemented, 1 excluded, 1 missing, 1 ambiguous", got.String())
}

func TestAuditReportsDrift(t *testing.T) {
	all := []*lax.Primitive{lax.AddP, lax.SinP, lax.CosP}
	tr := fakeBookkeeping{impl: []*lax.Primitive{lax.AddP, lax.CosP}, nyi: []*lax.Primitive{lax.CosP}}

	ae := requireKind(t, Audit(all, tr), KindCoverageDrift)
	assert.Contains(t, ae.Msg, "unaccounted for: sin")
	assert.Contains(t, ae.Msg, "both implemented and not yet implemented: cos")

	require.NoError(t, Audit(all, fakeBookkeeping{impl: all}))
}

func TestAuditExclusionsAreNotRequired(t *testing.T) {
	all := []*lax.Primitive{lax.AddP, lax.AxisIndexP, lax.TieInP}

	requireKind(t, Audit(all, fakeBookkeeping{impl: []*lax.Primitive{lax.AddP}}), KindCoverageDrift)
	require.NoError(t, Audit(all, fakeBookkeeping{impl: []*lax.Primitive{lax.AddP}}, DefaultExclusions...))
}

func TestAuditDefaultRegistry(t *testing.T) {
	require.NoError(t, Audit(lax.AllPrimitives(), convert.Default, DefaultExclusions...))

	c := Check(lax.AllPrimitives(), convert.Default, DefaultExclusions...)
	assert.Equal(t, []string{"axis_index", "tie_in"}, c.Excluded)
	assert.Equal(t, len(lax.AllPrimitives()), len(c.Implemented)+len(c.NotYetImplemented)+len(c.Excluded))
}
