// Package backprop defines the extension-request surface between the
// cockpit and a backward engine.
//
// Before a backward pass, diagnostic quantities declare which derived
// quantities they need as Extension requests. The engine materializes each
// request as a named savefield on every trainable parameter; quantities
// read those fields right after the pass and the cockpit deletes them
// before the next step.
//
// Scaling convention: per-sample gradients are gradients of the individual
// (unreduced) losses l_n, and the batch loss is their mean, so the batch
// gradient equals the mean of the per-sample gradients.
package backprop

import (
	"fmt"

	"github.com/born-ml/cockpit/internal/nn"
	"github.com/born-ml/cockpit/internal/tensor"
)

// Savefield names written by the engine.
const (
	FieldGradBatch           = "grad_batch"
	FieldDiagHessian         = "diag_h"
	FieldDiagGGNExact        = "diag_ggn_exact"
	FieldDiagGGNMC           = "diag_ggn_mc"
	FieldGradBatchTransforms = "grad_batch_transforms"
)

// Transform derives a per-parameter statistic from that parameter's
// per-sample gradients (one tensor per sample, gradient of the individual
// loss). The result is stored under the transform's key in the
// grad_batch_transforms savefield.
type Transform func(param *nn.Parameter, batchGrad []*tensor.Tensor) *tensor.Tensor

// Extension is a request for the backward engine to materialize a derived
// quantity during the backward pass.
//
// Identity is the deduplication key: two requests with equal identity are
// interchangeable and collapse to one; two requests of the same Kind with
// different identities (for example Monte-Carlo estimators with different
// sample counts) are a configuration conflict, never silently resolved.
type Extension interface {
	// Kind names the request family, e.g. "diag_ggn_mc".
	Kind() string

	// Identity is the kind plus any configuration that changes what the
	// engine computes.
	Identity() string

	// SaveField names the parameter field the engine writes.
	SaveField() string
}

// BatchGrad requests per-sample gradients, materialized as a
// []*tensor.Tensor (one per sample) under "grad_batch".
type BatchGrad struct{}

func (BatchGrad) Kind() string      { return "grad_batch" }
func (BatchGrad) Identity() string  { return "grad_batch" }
func (BatchGrad) SaveField() string { return FieldGradBatch }

// DiagHessian requests the diagonal of the Hessian of the batch loss,
// materialized as a *tensor.Tensor under "diag_h".
type DiagHessian struct{}

func (DiagHessian) Kind() string      { return "diag_h" }
func (DiagHessian) Identity() string  { return "diag_h" }
func (DiagHessian) SaveField() string { return FieldDiagHessian }

// DiagGGNExact requests the exact diagonal of the generalized Gauss-Newton
// matrix, materialized as a *tensor.Tensor under "diag_ggn_exact".
type DiagGGNExact struct{}

func (DiagGGNExact) Kind() string      { return "diag_ggn_exact" }
func (DiagGGNExact) Identity() string  { return "diag_ggn_exact" }
func (DiagGGNExact) SaveField() string { return FieldDiagGGNExact }

// DiagGGNMC requests a Monte-Carlo estimate of the GGN diagonal using
// MCSamples samples, materialized as a *tensor.Tensor under "diag_ggn_mc".
type DiagGGNMC struct {
	MCSamples int
}

func (DiagGGNMC) Kind() string { return "diag_ggn_mc" }

func (e DiagGGNMC) Identity() string {
	return fmt.Sprintf("diag_ggn_mc(mc_samples=%d)", e.MCSamples)
}

func (DiagGGNMC) SaveField() string { return FieldDiagGGNMC }

// BatchGradTransforms requests named linear transforms of the per-sample
// gradients. The engine stores the results as a map[string]*tensor.Tensor
// under "grad_batch_transforms", keyed by transform name.
//
// Multiple BatchGradTransforms requests in one step are merged by key
// union before reaching the engine; see the cockpit's aggregator.
type BatchGradTransforms struct {
	transforms map[string]Transform
}

// NewBatchGradTransforms creates a transforms request. The map is not
// copied; callers must not mutate it afterwards.
func NewBatchGradTransforms(transforms map[string]Transform) BatchGradTransforms {
	return BatchGradTransforms{transforms: transforms}
}

// Transforms returns the requested transforms keyed by name.
func (e BatchGradTransforms) Transforms() map[string]Transform {
	return e.transforms
}

func (BatchGradTransforms) Kind() string      { return "grad_batch_transforms" }
func (BatchGradTransforms) Identity() string  { return "grad_batch_transforms" }
func (BatchGradTransforms) SaveField() string { return FieldGradBatchTransforms }
