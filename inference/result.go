package inference

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/gonum/mat"

	"github.com/cran/ddml/pkg/errors"
)

// Fixed statistic axis. Every result the engine produces uses these four
// columns in this order, so consumers never branch on estimator kind.
const (
	EstimateCol = 0
	StdErrCol   = 1
	TValueCol   = 2
	PValueCol   = 3

	NumStatistics = 4
)

// StatisticNames are the labels of the fixed statistic axis.
var StatisticNames = [NumStatistics]string{"Estimate", "Std. Error", "t value", "Pr(>|t|)"}

// Coef3D is the labeled (coefficient × statistic × ensemble type) inference
// array of a regression-residual parameter. A single-ensemble estimation is
// the trailing-axis length-1 case of the same shape.
type Coef3D struct {
	Coefficients []string
	Ensembles    []string
	data         []float64
}

// NewCoef3D allocates a zeroed result array with the given axis labels.
func NewCoef3D(coefficients, ensembles []string) *Coef3D {
	return &Coef3D{
		Coefficients: coefficients,
		Ensembles:    ensembles,
		data:         make([]float64, len(coefficients)*NumStatistics*len(ensembles)),
	}
}

func (c *Coef3D) index(coef, stat, ens int) int {
	return (coef*NumStatistics+stat)*len(c.Ensembles) + ens
}

// Set writes one statistic by axis index.
func (c *Coef3D) Set(coef, stat, ens int, v float64) {
	c.data[c.index(coef, stat, ens)] = v
}

// At reads one statistic by axis index.
func (c *Coef3D) At(coef, stat, ens int) float64 {
	return c.data[c.index(coef, stat, ens)]
}

// SetSlice writes a (coefficients × statistics) matrix into one ensemble
// layer.
func (c *Coef3D) SetSlice(ens int, stats *mat.Dense) error {
	rows, cols := stats.Dims()
	if rows != len(c.Coefficients) || cols != NumStatistics {
		return errors.NewDimensionError("Coef3D.SetSlice", len(c.Coefficients), rows, 0)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			c.Set(i, j, ens, stats.At(i, j))
		}
	}
	return nil
}

// ByLabel reads one statistic by axis labels.
func (c *Coef3D) ByLabel(coefficient, statistic, ensemble string) (float64, error) {
	coef := indexOf(c.Coefficients, coefficient)
	if coef < 0 {
		return 0, errors.NewValidationError("coefficient", "unknown label", coefficient)
	}
	stat := indexOf(StatisticNames[:], statistic)
	if stat < 0 {
		return 0, errors.NewValidationError("statistic", "unknown label", statistic)
	}
	ens := indexOf(c.Ensembles, ensemble)
	if ens < 0 {
		return 0, errors.NewValidationError("ensemble", "unknown label", ensemble)
	}
	return c.At(coef, stat, ens), nil
}

// Table renders one coefficient table per ensemble type.
func (c *Coef3D) Table() string {
	var sb strings.Builder
	for ens, label := range c.Ensembles {
		if len(c.Ensembles) > 1 {
			fmt.Fprintf(&sb, "Ensemble: %s\n", label)
		}
		w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintf(w, "\t%s\t%s\t%s\t%s\t\n", StatisticNames[0], StatisticNames[1], StatisticNames[2], StatisticNames[3])
		for i, name := range c.Coefficients {
			fmt.Fprintf(w, "%s\t%.6g\t%.6g\t%.6g\t%.6g\t\n",
				name,
				c.At(i, EstimateCol, ens),
				c.At(i, StdErrCol, ens),
				c.At(i, TValueCol, ens),
				c.At(i, PValueCol, ens),
			)
		}
		w.Flush()
	}
	return sb.String()
}

func (c *Coef3D) String() string {
	return c.Table()
}

// Coef2D is the labeled (ensemble type × statistic) inference array of a
// scalar moment parameter: one row per ensemble type, the same fixed four
// statistic columns.
type Coef2D struct {
	Parameter string
	Ensembles []string
	data      []float64
}

// NewCoef2D allocates a zeroed result array for a named scalar parameter.
func NewCoef2D(parameter string, ensembles []string) *Coef2D {
	return &Coef2D{
		Parameter: parameter,
		Ensembles: ensembles,
		data:      make([]float64, len(ensembles)*NumStatistics),
	}
}

// SetRow writes the statistics row of one ensemble type.
func (c *Coef2D) SetRow(ens int, stats [NumStatistics]float64) {
	copy(c.data[ens*NumStatistics:], stats[:])
}

// At reads one statistic by axis index.
func (c *Coef2D) At(ens, stat int) float64 {
	return c.data[ens*NumStatistics+stat]
}

// ByLabel reads one statistic by axis labels.
func (c *Coef2D) ByLabel(ensemble, statistic string) (float64, error) {
	ens := indexOf(c.Ensembles, ensemble)
	if ens < 0 {
		return 0, errors.NewValidationError("ensemble", "unknown label", ensemble)
	}
	stat := indexOf(StatisticNames[:], statistic)
	if stat < 0 {
		return 0, errors.NewValidationError("statistic", "unknown label", statistic)
	}
	return c.At(ens, stat), nil
}

// Table renders the ensemble-by-statistic table.
func (c *Coef2D) Table() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Parameter: %s\n", c.Parameter)
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "\t%s\t%s\t%s\t%s\t\n", StatisticNames[0], StatisticNames[1], StatisticNames[2], StatisticNames[3])
	for ens, label := range c.Ensembles {
		fmt.Fprintf(w, "%s\t%.6g\t%.6g\t%.6g\t%.6g\t\n",
			label,
			c.At(ens, EstimateCol),
			c.At(ens, StdErrCol),
			c.At(ens, TValueCol),
			c.At(ens, PValueCol),
		)
	}
	w.Flush()
	return sb.String()
}

func (c *Coef2D) String() string {
	return c.Table()
}

func indexOf(labels []string, label string) int {
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	return -1
}
