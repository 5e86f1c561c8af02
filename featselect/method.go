package featselect

import (
	"fmt"
	"math"
)

// Method enumerates the scoring algorithms. The set is closed: dispatch
// switches on the variant, and name parsing is the only place an unknown
// method can surface.
type Method int

const (
	Chi2 Method = iota
	InfoGain
	MWU
	TTest
	Lasso
	MRMR
	JMI
	numMethods
)

var methodNames = [numMethods]string{"chi2", "infogain", "mwu", "ttest", "lasso", "mrmr", "jmi"}

func (m Method) String() string {
	if m < 0 || m >= numMethods {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

// UnknownMethodError reports a method name outside the recognized set.
type UnknownMethodError struct {
	Name string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("featselect: unknown method %q", e.Name)
}

// ParseMethod maps a method name to its Method.
func ParseMethod(name string) (Method, error) {
	for m, n := range methodNames {
		if n == name {
			return Method(m), nil
		}
	}
	return 0, &UnknownMethodError{Name: name}
}

// HasPValue reports whether the method emits a raw p-value (and therefore
// participates in multiple-testing correction).
func (m Method) HasPValue() bool {
	return m == Chi2 || m == MWU || m == TTest
}

// LowerIsBetter reports the ranking direction of the primary score.
func (m Method) LowerIsBetter() bool { return m == MWU }

// Multivariate reports whether the method consumes the whole feature matrix
// at once instead of scoring features independently. Multivariate methods run
// single-threaded and never go through the worker pool.
func (m Method) Multivariate() bool {
	return m == Lasso || m == MRMR || m == JMI
}

// ScoreColumns names the method-specific score fields, aligned with
// ScoreRecord.Values.
func (m Method) ScoreColumns() []string {
	switch m {
	case Chi2:
		return []string{"chi2_score"}
	case InfoGain:
		return []string{"infogain_score"}
	case MWU:
		return []string{"mwu_1", "mwu_2", "u_min"}
	case TTest:
		return []string{"t_stat", "abs_t"}
	case Lasso:
		return []string{"coef", "abs_coef"}
	case MRMR:
		return []string{"mrmr_score"}
	case JMI:
		return []string{"jmi_score"}
	}
	panic(m)
}

// primary is the index into ScoreColumns of the ranking score.
func (m Method) primary() int {
	switch m {
	case MWU:
		return 2 // u_min
	case TTest, Lasso:
		return 1 // abs_t, abs_coef
	}
	return 0
}

// ScoreRecord is one feature's result for one (bootstrap, method) run.
// Values is aligned with Method.ScoreColumns. PValue and PValueAdj are NaN
// for methods without p-values; Frequency is the feature's non-reference sum
// within the bootstrap sample. Records are immutable once the table is built,
// except that the multiple-testing corrector fills PValueAdj.
type ScoreRecord struct {
	Feature   string
	Values    []float64
	PValue    float64
	PValueAdj float64
	Frequency float64
}

// Score returns the record's primary ranking score for method m.
func (r *ScoreRecord) Score(m Method) float64 {
	if p := m.primary(); p < len(r.Values) {
		return r.Values[p]
	}
	return math.NaN()
}

// ScoreTable is the outcome of one (bootstrap, method) run. Records appear in
// canonical masked-feature order.
type ScoreTable struct {
	Method  Method
	Records []ScoreRecord
}
