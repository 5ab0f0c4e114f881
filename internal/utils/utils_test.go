package utils

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLeftBracket(t *testing.T) {
	xs := []float64{0, 1, 2, 3}
	tests := []struct {
		x    float64
		want int
	}{
		{-1, 0}, {0, 0}, {0.5, 0}, {1, 1}, {2.5, 2}, {3, 2}, {7, 2},
	}
	for _, tc := range tests {
		if got := LeftBracket(xs, tc.x); got != tc.want {
			t.Errorf("LeftBracket(%g) = %d, want %d", tc.x, got, tc.want)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Errorf("Clamp(5, 0, 3) = %d", got)
	}
	mean, variance := MeanAndVariance([]float64{1, 2, 3, 4}, true)
	if mean != 2.5 || math.Abs(variance-5./3.) > 1e-15 {
		t.Errorf("MeanAndVariance = %g, %g", mean, variance)
	}
	if _, variance := MeanAndVariance([]int{7}, true); variance != 0 {
		t.Errorf("variance of one value = %g, want 0", variance)
	}
	if !IsUniform([]float64{1, 1.5, 2, 2.5}, 1e-9) || IsUniform([]float64{1, 2, 4}, 1e-9) {
		t.Error("IsUniform misclassifies spacing")
	}
}

func TestReadFloatPairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sq.txt")
	content := "# Q S(Q)\n0.5 1.2\n\n1.0   0.9\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	pairs, err := ReadFloatPairs(path)
	if err != nil {
		t.Fatalf("ReadFloatPairs: %v", err)
	}
	xs, ys := Columns(pairs)
	if diff := cmp.Diff([]float64{0.5, 1}, xs); diff != "" {
		t.Errorf("xs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1.2, 0.9}, ys); diff != "" {
		t.Errorf("ys mismatch (-want +got):\n%s", diff)
	}

	if err := os.WriteFile(path, []byte("1 2 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFloatPairs(path); err == nil {
		t.Error("ReadFloatPairs accepted a three column line")
	}
}

func TestWriteAsCSV(t *testing.T) {
	var buf bytes.Buffer
	data := CSV{{"det10", "c"}, {"det2", "b"}, {"det1", "a"}}
	if err := WriteAsCSV(&buf, data, []string{"name", "value"}); err != nil {
		t.Fatal(err)
	}
	want := "name,value\ndet1,a\ndet2,b\ndet10,c\n"
	if got := buf.String(); got != want {
		t.Errorf("WriteAsCSV wrote\n%s\nwant\n%s", got, want)
	}
}
