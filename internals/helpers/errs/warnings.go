// file: internals/helpers/errs/warnings.go
package errs

import "fmt"

// Warnings is the per-request warning map attached to every workflow result.
// Degraded side effects (failed compensation, skipped batch items, dead
// fire-and-forget calls) land here instead of failing the workflow.
type Warnings map[string][]string

func NewWarnings() Warnings { return Warnings{} }

func (w Warnings) Add(code, msg string) {
	w[code] = append(w[code], msg)
}

func (w Warnings) Addf(code, format string, args ...interface{}) {
	w.Add(code, fmt.Sprintf(format, args...))
}

// AddCompensation records a failed rollback step. The original workflow error
// is never replaced by these.
func (w Warnings) AddCompensation(step string, err error) {
	w.Addf("compensationFailed", "%s: %v", step, err)
}

func (w Warnings) Has(code string) bool {
	_, ok := w[code]
	return ok
}

func (w Warnings) Empty() bool { return len(w) == 0 }

// Merge folds other into w.
func (w Warnings) Merge(other Warnings) {
	for code, msgs := range other {
		w[code] = append(w[code], msgs...)
	}
}
