package cpu

import (
	"fmt"
	"math"

	"github.com/lucid-ml/lucid/internal/tensor"
)

// Sum returns the scalar (0-D) sum of all elements.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{}, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		var sum float32
		for _, v := range x.AsFloat32() {
			sum += v
		}
		result.AsFloat32()[0] = sum
	case tensor.Float64:
		var sum float64
		for _, v := range x.AsFloat64() {
			sum += v
		}
		result.AsFloat64()[0] = sum
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}

	return result
}

// SumDim sums along the given dimension.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim("sumdim", x, dim, keepDim, false)
}

// MeanDim computes the mean along the given dimension.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim("meandim", x, dim, keepDim, true)
}

// reduceDim implements dimension-wise sum, optionally divided by the
// reduced dimension's size.
func (cpu *CPUBackend) reduceDim(name string, x *tensor.RawTensor, dim int, keepDim, mean bool) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("%s: invalid dimension %d for shape %v", name, dim, shape))
	}

	// outer runs over leading dims, inner over trailing dims, reduced over dim.
	outer := 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	reduced := shape[dim]
	inner := 1
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}

	outShape := make(tensor.Shape, 0, len(shape))
	for d, size := range shape {
		if d == dim {
			if keepDim {
				outShape = append(outShape, 1)
			}
			continue
		}
		outShape = append(outShape, size)
	}

	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		for o := 0; o < outer; o++ {
			for in := 0; in < inner; in++ {
				var sum float32
				for r := 0; r < reduced; r++ {
					sum += src[(o*reduced+r)*inner+in]
				}
				if mean {
					sum /= float32(reduced)
				}
				dst[o*inner+in] = sum
			}
		}
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for o := 0; o < outer; o++ {
			for in := 0; in < inner; in++ {
				var sum float64
				for r := 0; r < reduced; r++ {
					sum += src[(o*reduced+r)*inner+in]
				}
				if mean {
					sum /= float64(reduced)
				}
				dst[o*inner+in] = sum
			}
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}

	return result
}

// Softmax applies softmax along the given dimension with max-shifting for
// numerical stability.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("softmax: invalid dimension %d for shape %v", dim, shape))
	}

	result, err := tensor.NewRaw(shape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("softmax: %v", err))
	}

	outer := 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	reduced := shape[dim]
	inner := 1
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}

	switch x.DType() {
	case tensor.Float32:
		softmaxFloat32(result.AsFloat32(), x.AsFloat32(), outer, reduced, inner)
	case tensor.Float64:
		softmaxFloat64(result.AsFloat64(), x.AsFloat64(), outer, reduced, inner)
	default:
		panic(fmt.Sprintf("softmax: unsupported dtype %s", x.DType()))
	}

	return result
}

func softmaxFloat32(dst, src []float32, outer, reduced, inner int) {
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			maxVal := float32(math.Inf(-1))
			for r := 0; r < reduced; r++ {
				if v := src[(o*reduced+r)*inner+in]; v > maxVal {
					maxVal = v
				}
			}

			var sum float32
			for r := 0; r < reduced; r++ {
				idx := (o*reduced + r) * inner
				e := float32(math.Exp(float64(src[idx+in] - maxVal)))
				dst[idx+in] = e
				sum += e
			}

			for r := 0; r < reduced; r++ {
				dst[(o*reduced+r)*inner+in] /= sum
			}
		}
	}
}

func softmaxFloat64(dst, src []float64, outer, reduced, inner int) {
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			maxVal := math.Inf(-1)
			for r := 0; r < reduced; r++ {
				if v := src[(o*reduced+r)*inner+in]; v > maxVal {
					maxVal = v
				}
			}

			var sum float64
			for r := 0; r < reduced; r++ {
				idx := (o*reduced + r) * inner
				e := math.Exp(src[idx+in] - maxVal)
				dst[idx+in] = e
				sum += e
			}

			for r := 0; r < reduced; r++ {
				dst[(o*reduced+r)*inner+in] /= sum
			}
		}
	}
}
