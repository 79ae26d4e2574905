package cpu

import "github.com/lucid-ml/lucid/internal/tensor"

// computeBroadcastStridesForShape computes strides for reading a tensor of
// shape `shape` as if it were expanded to `outShape`. Broadcast dimensions
// (size 1 in the source, or missing leading dimensions) get stride 0.
func computeBroadcastStridesForShape(shape, outShape tensor.Shape) []int {
	strides := shape.ComputeStrides()
	result := make([]int, len(outShape))

	offset := len(outShape) - len(shape)
	for i := range outShape {
		srcIdx := i - offset
		if srcIdx < 0 || shape[srcIdx] == 1 {
			result[i] = 0
		} else {
			result[i] = strides[srcIdx]
		}
	}
	return result
}

// computeFlatIndex maps a flat index in the output tensor to the corresponding
// flat index in a (possibly broadcast) source tensor.
func computeFlatIndex(outIdx int, outStrides, srcStrides []int) int {
	srcIdx := 0
	for d := 0; d < len(outStrides); d++ {
		coord := outIdx / outStrides[d]
		outIdx %= outStrides[d]
		srcIdx += coord * srcStrides[d]
	}
	return srcIdx
}
