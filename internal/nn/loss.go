package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/cockpit/internal/tensor"
)

// MSELoss computes mean squared error loss.
//
// The batch loss is the mean over per-sample losses, where each sample's
// loss is the mean squared difference over its output features:
//
//	l_n = mean_k (pred_{n,k} - target_{n,k})²
//	L   = mean_n l_n
//
// Individual exposes the unreduced per-sample losses, the capability the
// cockpit requires from a training problem.
type MSELoss struct{}

// NewMSELoss creates a new MSE loss function.
func NewMSELoss() *MSELoss {
	return &MSELoss{}
}

// Individual computes the per-sample losses for predictions and targets of
// shape [batch_size, features].
func (m *MSELoss) Individual(predictions, targets *tensor.Tensor) []float64 {
	if !predictions.Shape().Equal(targets.Shape()) {
		panic(fmt.Sprintf("MSELoss: shape mismatch %v vs %v", predictions.Shape(), targets.Shape()))
	}
	shape := predictions.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("MSELoss: expected 2D [batch, features] tensors, got %v", shape))
	}

	batch, features := shape[0], shape[1]
	pred := predictions.Data()
	tgt := targets.Data()

	losses := make([]float64, batch)
	for n := 0; n < batch; n++ {
		var acc float64
		for k := 0; k < features; k++ {
			d := float64(pred[n*features+k] - tgt[n*features+k])
			acc += d * d
		}
		losses[n] = acc / float64(features)
	}
	return losses
}

// Forward computes the batch loss: the mean of the per-sample losses.
func (m *MSELoss) Forward(predictions, targets *tensor.Tensor) float64 {
	losses := m.Individual(predictions, targets)
	var acc float64
	for _, l := range losses {
		acc += l
	}
	return acc / float64(len(losses))
}

// CrossEntropyLoss computes softmax cross-entropy against integer class
// labels, with the same per-sample surface as MSELoss.
type CrossEntropyLoss struct{}

// NewCrossEntropyLoss creates a new cross-entropy loss function.
func NewCrossEntropyLoss() *CrossEntropyLoss {
	return &CrossEntropyLoss{}
}

// Individual computes per-sample losses for logits of shape
// [batch_size, classes] and labels of length batch_size.
//
// The log-sum-exp is stabilized by subtracting the row maximum.
func (c *CrossEntropyLoss) Individual(logits *tensor.Tensor, labels []int) []float64 {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("CrossEntropyLoss: expected 2D [batch, classes] logits, got %v", shape))
	}
	batch, classes := shape[0], shape[1]
	if len(labels) != batch {
		panic(fmt.Sprintf("CrossEntropyLoss: %d labels for batch of %d", len(labels), batch))
	}

	data := logits.Data()
	losses := make([]float64, batch)
	for n := 0; n < batch; n++ {
		row := data[n*classes : (n+1)*classes]
		maxLogit := row[0]
		for _, v := range row[1:] {
			if v > maxLogit {
				maxLogit = v
			}
		}
		var sumExp float64
		for _, v := range row {
			sumExp += math.Exp(float64(v - maxLogit))
		}
		label := labels[n]
		if label < 0 || label >= classes {
			panic(fmt.Sprintf("CrossEntropyLoss: label %d out of range for %d classes", label, classes))
		}
		losses[n] = math.Log(sumExp) - float64(row[label]-maxLogit)
	}
	return losses
}

// Forward computes the batch loss: the mean of the per-sample losses.
func (c *CrossEntropyLoss) Forward(logits *tensor.Tensor, labels []int) float64 {
	losses := c.Individual(logits, labels)
	var acc float64
	for _, l := range losses {
		acc += l
	}
	return acc / float64(len(losses))
}
