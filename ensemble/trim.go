package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/cran/ddml/pkg/errors"
)

// TrimPropensity clips combined propensity-score predictions into
// [trim, 1-trim], in place, one column per ensemble type. Scores at or
// outside the boundary blow up the inverse-probability weights of the
// treatment-effect scores, so clipped entries are counted and surfaced as a
// warning per affected column; when several ensemble types are present the
// warning names the column's label.
//
// Every ensemble-type column is trimmed, not only the first one. The
// returned slice holds the clip count per column.
func TrimPropensity(scores *mat.Dense, labels []string, trim float64) ([]int, error) {
	if trim <= 0 || trim >= 0.5 {
		return nil, errors.NewValidationError("trim", "must be in the open interval (0, 0.5)", trim)
	}
	n, nTypes := scores.Dims()
	if len(labels) != nTypes {
		return nil, errors.NewDimensionError("TrimPropensity", nTypes, len(labels), 1)
	}

	counts := make([]int, nTypes)
	for j := 0; j < nTypes; j++ {
		for i := 0; i < n; i++ {
			v := scores.At(i, j)
			clipped := errors.ClipValue(v, trim, 1-trim)
			if clipped != v {
				scores.Set(i, j, clipped)
				counts[j]++
			}
		}
	}

	for j, count := range counts {
		if count == 0 {
			continue
		}
		label := ""
		if nTypes > 1 {
			label = labels[j]
		}
		errors.Warn(errors.NewPropensityTrimWarning(label, count, trim))
	}

	return counts, nil
}
