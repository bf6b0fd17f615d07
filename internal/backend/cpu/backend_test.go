package cpu

import (
	"math"
	"testing"

	"github.com/bmwas/lyra/internal/tensor"
)

func fromSlice32(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw(%v): %v", shape, err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func TestAdd_SameShape(t *testing.T) {
	backend := New()

	a := fromSlice32(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := fromSlice32(t, []float32{10, 20, 30, 40}, tensor.Shape{2, 2})

	result := backend.Add(a, b)

	expected := []float32{11, 22, 33, 44}
	for i, want := range expected {
		if got := result.AsFloat32()[i]; got != want {
			t.Errorf("Add[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestAdd_Broadcast(t *testing.T) {
	backend := New()

	// (1, 2, 3) + (3,) broadcasts the row over every lane.
	a := fromSlice32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{1, 2, 3})
	b := fromSlice32(t, []float32{10, 20, 30}, tensor.Shape{3})

	result := backend.Add(a, b)

	if !result.Shape().Equal(tensor.Shape{1, 2, 3}) {
		t.Fatalf("shape = %v, want [1 2 3]", result.Shape())
	}
	expected := []float32{11, 22, 33, 14, 25, 36}
	for i, want := range expected {
		if got := result.AsFloat32()[i]; got != want {
			t.Errorf("Add[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestAdd_BroadcastLeadingOne(t *testing.T) {
	backend := New()

	// The additive-mask pattern: (4, 2, 2) + (1, 2, 2).
	scores := fromSlice32(t, make([]float32, 16), tensor.Shape{4, 2, 2})
	negInf := float32(math.Inf(-1))
	mask := fromSlice32(t, []float32{0, negInf, 0, 0}, tensor.Shape{1, 2, 2})

	result := backend.Add(scores, mask)

	data := result.AsFloat32()
	for bh := 0; bh < 4; bh++ {
		if !math.IsInf(float64(data[bh*4+1]), -1) {
			t.Errorf("batch %d: masked entry = %v, want -Inf", bh, data[bh*4+1])
		}
		for _, idx := range []int{0, 2, 3} {
			if data[bh*4+idx] != 0 {
				t.Errorf("batch %d: unmasked entry %d = %v, want 0", bh, idx, data[bh*4+idx])
			}
		}
	}
}

func TestSubMulDiv(t *testing.T) {
	backend := New()

	a := fromSlice32(t, []float32{8, 6, 4, 2}, tensor.Shape{4})
	b := fromSlice32(t, []float32{2, 2, 2, 2}, tensor.Shape{4})

	sub := backend.Sub(a, b).AsFloat32()
	mul := backend.Mul(a, b).AsFloat32()
	div := backend.Div(a, b).AsFloat32()

	for i := range sub {
		if sub[i] != a.AsFloat32()[i]-2 {
			t.Errorf("Sub[%d] = %v", i, sub[i])
		}
		if mul[i] != a.AsFloat32()[i]*2 {
			t.Errorf("Mul[%d] = %v", i, mul[i])
		}
		if div[i] != a.AsFloat32()[i]/2 {
			t.Errorf("Div[%d] = %v", i, div[i])
		}
	}
}

func TestAdd_IncompatibleShapesPanics(t *testing.T) {
	backend := New()

	a := fromSlice32(t, make([]float32, 12), tensor.Shape{3, 4})
	b := fromSlice32(t, make([]float32, 15), tensor.Shape{3, 5})

	defer func() {
		if recover() == nil {
			t.Error("expected panic for incompatible shapes")
		}
	}()
	backend.Add(a, b)
}

func TestTranspose_2D(t *testing.T) {
	backend := New()

	// [[1, 2, 3], [4, 5, 6]] -> [[1, 4], [2, 5], [3, 6]]
	a := fromSlice32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	result := backend.Transpose(a)

	if !result.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("shape = %v, want [3 2]", result.Shape())
	}
	expected := []float32{1, 4, 2, 5, 3, 6}
	for i, want := range expected {
		if got := result.AsFloat32()[i]; got != want {
			t.Errorf("Transpose[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestTranspose_HeadsToFront(t *testing.T) {
	backend := New()

	// (B, S, H, D) -> (B, H, S, D): the attention layout shuffle.
	batch, seq, heads, dim := 2, 3, 2, 2
	data := make([]float32, batch*seq*heads*dim)
	for i := range data {
		data[i] = float32(i)
	}
	a := fromSlice32(t, data, tensor.Shape{batch, seq, heads, dim})

	result := backend.Transpose(a, 0, 2, 1, 3)

	if !result.Shape().Equal(tensor.Shape{batch, heads, seq, dim}) {
		t.Fatalf("shape = %v", result.Shape())
	}
	out := result.AsFloat32()
	for b := 0; b < batch; b++ {
		for h := 0; h < heads; h++ {
			for s := 0; s < seq; s++ {
				for d := 0; d < dim; d++ {
					src := data[b*seq*heads*dim+s*heads*dim+h*dim+d]
					dst := out[b*heads*seq*dim+h*seq*dim+s*dim+d]
					if src != dst {
						t.Fatalf("element (%d,%d,%d,%d): got %v, want %v", b, h, s, d, dst, src)
					}
				}
			}
		}
	}
}

func TestReshape_IsView(t *testing.T) {
	backend := New()

	a := fromSlice32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	reshaped := backend.Reshape(a, tensor.Shape{3, 2})

	if !reshaped.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("shape = %v, want [3 2]", reshaped.Shape())
	}

	// Reshape shares the buffer: writes through one are visible in both.
	reshaped.AsFloat32()[0] = 99
	if a.AsFloat32()[0] != 99 {
		t.Error("reshape did not share the underlying buffer")
	}
}

func TestReshape_WrongElementCountPanics(t *testing.T) {
	backend := New()
	a := fromSlice32(t, make([]float32, 6), tensor.Shape{2, 3})

	defer func() {
		if recover() == nil {
			t.Error("expected panic for element count mismatch")
		}
	}()
	backend.Reshape(a, tensor.Shape{4, 2})
}

func TestMulScalar(t *testing.T) {
	backend := New()

	a := fromSlice32(t, []float32{1, 2, 3}, tensor.Shape{3})
	result := backend.MulScalar(a, float32(0.5))

	expected := []float32{0.5, 1, 1.5}
	for i, want := range expected {
		if got := result.AsFloat32()[i]; got != want {
			t.Errorf("MulScalar[%d] = %v, want %v", i, got, want)
		}
	}
}
