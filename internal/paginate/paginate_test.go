package paginate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/cvexport/internal/exporterr"
	"github.com/local/cvexport/internal/surface"
)

func TestPlanForSinglePage(t *testing.T) {
	plan, err := PlanFor(surface.Size{Width: 1000, Height: 1000}, A4)
	require.NoError(t, err)

	assert.InDelta(t, 0.21, float64(plan.Scale), 1e-12)
	assert.Equal(t, 1414, plan.SliceHeight)
	require.Len(t, plan.Slices, 1)
	assert.Equal(t, PageSlice{Index: 0, SourceYStart: 0, SourceYEnd: 1000}, plan.Slices[0])
	assert.NoError(t, plan.Validate())
}

func TestPlanForMultiPage(t *testing.T) {
	plan, err := PlanFor(surface.Size{Width: 1000, Height: 4500}, A4)
	require.NoError(t, err)

	want := [][2]int{{0, 1414}, {1414, 2828}, {2828, 4242}, {4242, 4500}}
	require.Len(t, plan.Slices, len(want))
	for i, w := range want {
		s := plan.Slices[i]
		assert.Equal(t, i, s.Index)
		assert.Equal(t, w[0], s.SourceYStart, "slice %d start", i)
		assert.Equal(t, w[1], s.SourceYEnd, "slice %d end", i)
		assert.Zero(t, s.DestX)
		assert.Zero(t, s.DestY)
	}
	assert.Equal(t, 258, plan.Slices[3].Height())
	assert.NoError(t, plan.Validate())
}

func TestPlanForExactMultiple(t *testing.T) {
	// 200 units over 1000 px gives 0.2; 300/0.2 must floor to 1500, not 1499.
	f := PageFormat{Width: 200, Height: 300, Unit: Millimeter}
	plan, err := PlanFor(surface.Size{Width: 1000, Height: 3000}, f)
	require.NoError(t, err)

	assert.Equal(t, 1500, plan.SliceHeight)
	require.Len(t, plan.Slices, 2)
	assert.Equal(t, 1500, plan.Slices[1].Height())
}

func TestPlanForInvalidSurface(t *testing.T) {
	for _, size := range []surface.Size{{Width: 0, Height: 100}, {Width: 100, Height: 0}, {}} {
		plan, err := PlanFor(size, A4)
		assert.ErrorIs(t, err, exporterr.ErrInvalidSurface, "size %s", size)
		assert.Empty(t, plan.Slices)
	}
}

func TestPaginateDegenerateScale(t *testing.T) {
	// 10 px across a 210 mm page: one row is 21 mm tall and a 20 mm page holds none.
	f := PageFormat{Width: 210, Height: 20, Unit: Millimeter}
	_, err := PlanFor(surface.Size{Width: 10, Height: 50}, f)
	assert.ErrorIs(t, err, exporterr.ErrDegenerateScale)

	_, err = Paginate(surface.Size{Width: 10, Height: 50}, A4, 0)
	assert.ErrorIs(t, err, exporterr.ErrDegenerateScale)

	_, err = Paginate(surface.Size{Width: 10, Height: 50}, A4, -1)
	assert.ErrorIs(t, err, exporterr.ErrDegenerateScale)
}

func TestResolveScaleRejectsInvalidFormat(t *testing.T) {
	_, err := ResolveScale(surface.Size{Width: 10, Height: 10}, PageFormat{Width: 0, Height: 297})
	assert.ErrorIs(t, err, exporterr.ErrDegenerateScale)
}

func TestResolveScaleFitsWidth(t *testing.T) {
	sizes := []surface.Size{{Width: 1, Height: 1}, {Width: 794, Height: 3000}, {Width: 1588, Height: 2246}, {Width: 4961, Height: 7016}}
	for _, size := range sizes {
		scale, err := ResolveScale(size, A4)
		require.NoError(t, err)
		assert.InDelta(t, A4.Width, scale.Units(size.Width), 1e-9, "size %s", size)
	}
}

func TestPaginateLaws(t *testing.T) {
	formats := []PageFormat{A4, Letter, {Width: 100, Height: 40, Unit: Millimeter}}
	widths := []int{1, 7, 100, 794, 1588, 2480}
	heights := []int{1, 2, 13, 999, 1000, 1123, 2246, 4500, 10007}

	for _, f := range formats {
		for _, w := range widths {
			for _, h := range heights {
				size := surface.Size{Width: w, Height: h}
				plan, err := PlanFor(size, f)
				if err != nil {
					assert.ErrorIs(t, err, exporterr.ErrDegenerateScale, "%s on %s", size, f)
					continue
				}

				require.NoError(t, plan.Validate(), "%s on %s", size, f)

				total := 0
				for _, s := range plan.Slices {
					total += s.Height()
				}
				assert.Equal(t, h, total, "coverage %s on %s", size, f)

				if plan.Scale.Units(h) <= f.Height {
					assert.Equal(t, 1, plan.PageCount(), "single page %s on %s", size, f)
				} else {
					want := (h + plan.SliceHeight - 1) / plan.SliceHeight
					assert.Equal(t, want, plan.PageCount(), "page count %s on %s", size, f)
				}

				again, err := PlanFor(size, f)
				require.NoError(t, err)
				assert.Equal(t, plan, again, "determinism %s on %s", size, f)
			}
		}
	}
}

func TestValidateCatchesBrokenPlans(t *testing.T) {
	good, err := PlanFor(surface.Size{Width: 1000, Height: 4500}, A4)
	require.NoError(t, err)

	gap := good
	gap.Slices = append([]PageSlice(nil), good.Slices...)
	gap.Slices[2].SourceYStart++
	assert.Error(t, gap.Validate())

	short := good
	short.Slices = good.Slices[:3]
	assert.Error(t, short.Validate())

	assert.Error(t, Plan{}.Validate())
}
