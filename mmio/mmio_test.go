package mmio_test

import (
	"strings"
	"testing"

	"github.com/sparsekit/mfsolve/mmio"
)

func TestReadGeneral(t *testing.T) {
	const data = `%%MatrixMarket matrix coordinate real general
% a comment line
3 3 4
1 1 2.0
2 2 2.0
3 3 2.0
1 2 -1.0
`
	m, err := mmio.Read(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if m.N() != 3 {
		t.Fatalf("N() = %d, want 3", m.N())
	}
	if got, want := m.At(0, 0), 2.0; got != want {
		t.Errorf("A[0,0] = %v, want %v", got, want)
	}
	if got, want := m.At(0, 1), -1.0; got != want {
		t.Errorf("A[0,1] = %v, want %v", got, want)
	}
	if got, want := m.At(1, 0), 0.0; got != want {
		t.Errorf("A[1,0] = %v, want %v (general format stores only the listed entry)", got, want)
	}
}

func TestReadSymmetricMirrorsOffDiagonal(t *testing.T) {
	const data = `%%MatrixMarket matrix coordinate real symmetric
2 2 2
1 1 4.0
2 1 -1.0
`
	m, err := mmio.Read(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got, want := m.At(1, 0), -1.0; got != want {
		t.Errorf("A[1,0] = %v, want %v", got, want)
	}
	if got, want := m.At(0, 1), -1.0; got != want {
		t.Errorf("A[0,1] = %v, want %v (symmetric format should mirror)", got, want)
	}
}

func TestReadRejectsBadHeader(t *testing.T) {
	if _, err := mmio.Read(strings.NewReader("not a matrix market file\n")); err == nil {
		t.Fatal("expected an error for a malformed header")
	}
}

func TestReadRejectsOutOfRangeIndex(t *testing.T) {
	const data = `%%MatrixMarket matrix coordinate real general
2 2 1
3 1 1.0
`
	if _, err := mmio.Read(strings.NewReader(data)); err == nil {
		t.Fatal("expected an error for an out-of-range row index")
	}
}
