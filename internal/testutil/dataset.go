// Package testutil generates synthetic bank marketing datasets for tests.
package testutil

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var BankHeader = []string{
	"AGREEMENT_RK", "TARGET",
	"AGE", "GENDER", "CHILD_TOTAL", "DEPENDANTS",
	"SOCSTATUS_WORK_FL", "SOCSTATUS_PENS_FL",
	"PERSONAL_INCOME", "LOAN_NUM_TOTAL", "LOAN_NUM_CLOSED",
}

// BankCSV renders n rows whose TARGET depends mostly on income and age, so
// both classes are present and a linear model can learn them.
func BankCSV(n int, seed int64) string {
	rng := rand.New(rand.NewSource(seed))

	var b strings.Builder
	b.WriteString(strings.Join(BankHeader, ","))
	b.WriteByte('\n')

	for i := 0; i < n; i++ {
		age := 21 + rng.Intn(46)
		gender := rng.Intn(2)
		children := rng.Intn(4)
		dependants := rng.Intn(children + 1)
		work := rng.Intn(2)
		pens := 0
		if age > 60 {
			pens = 1
		}
		income := 5000 + rng.Intn(45000)
		loans := 1 + rng.Intn(5)
		closed := rng.Intn(loans + 1)

		z := -2 + 0.00008*float64(income) - 0.04*float64(age-40) + 0.5*float64(work) + rng.NormFloat64()*0.5
		target := 0
		if z > 0 {
			target = 1
		}

		fmt.Fprintf(&b, "%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d\n",
			59910150+i, target, age, gender, children, dependants, work, pens, income, loans, closed)
	}
	return b.String()
}

// WriteBankCSV writes BankCSV(n, seed) into a temp dir and returns its path.
func WriteBankCSV(t testing.TB, n int, seed int64) string {
	t.Helper()
	return WriteFile(t, "dataset.csv", BankCSV(n, seed))
}

func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
