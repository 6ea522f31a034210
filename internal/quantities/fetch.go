package quantities

import (
	"fmt"

	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
	"github.com/born-ml/cockpit/internal/tensor"
)

// Fetch helpers for reading materialized savefields. A missing or
// mistyped field means the quantity's extension requests got out of sync
// with what the backward pass materialized; that is a bug worth failing
// loudly over, never a value worth guessing.

func fetchGradBatch(q Quantity, p *nn.Parameter) ([]*tensor.Tensor, error) {
	v, ok := p.Field(backprop.FieldGradBatch)
	if !ok {
		return nil, missingField(q, p, backprop.FieldGradBatch)
	}
	bg, ok := v.([]*tensor.Tensor)
	if !ok {
		return nil, wrongFieldType(q, p, backprop.FieldGradBatch, v)
	}
	return bg, nil
}

func fetchDiag(q Quantity, p *nn.Parameter, field string) (*tensor.Tensor, error) {
	v, ok := p.Field(field)
	if !ok {
		return nil, missingField(q, p, field)
	}
	t, ok := v.(*tensor.Tensor)
	if !ok {
		return nil, wrongFieldType(q, p, field, v)
	}
	return t, nil
}

func fetchTransform(q Quantity, p *nn.Parameter, key string) (*tensor.Tensor, error) {
	v, ok := p.Field(backprop.FieldGradBatchTransforms)
	if !ok {
		return nil, missingField(q, p, backprop.FieldGradBatchTransforms)
	}
	m, ok := v.(map[string]*tensor.Tensor)
	if !ok {
		return nil, wrongFieldType(q, p, backprop.FieldGradBatchTransforms, v)
	}
	t, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("quantity %q: transform key %q not materialized on parameter %q",
			q.Name(), key, p.Name())
	}
	return t, nil
}

func fetchGrad(q Quantity, p *nn.Parameter) (*tensor.Tensor, error) {
	g := p.Grad()
	if g == nil {
		return nil, fmt.Errorf("quantity %q: parameter %q has no gradient; was the backward pass run?",
			q.Name(), p.Name())
	}
	return g, nil
}

func missingField(q Quantity, p *nn.Parameter, field string) error {
	return fmt.Errorf("quantity %q: savefield %q not materialized on parameter %q; extension requests out of sync",
		q.Name(), field, p.Name())
}

func wrongFieldType(q Quantity, p *nn.Parameter, field string, v any) error {
	return fmt.Errorf("quantity %q: savefield %q on parameter %q has unexpected type %T",
		q.Name(), field, p.Name(), v)
}

// sumTransform aggregates a per-sample transform tensor (shape [B]) over
// all trainable parameters, returning the per-sample totals.
func sumTransform(q Quantity, params []*nn.Parameter, key string) ([]float64, error) {
	var totals []float64
	for _, p := range trainable(params) {
		t, err := fetchTransform(q, p, key)
		if err != nil {
			return nil, err
		}
		vals := t.AsFloat64()
		if totals == nil {
			totals = vals
			continue
		}
		if len(vals) != len(totals) {
			return nil, fmt.Errorf("quantity %q: transform %q batch size mismatch: %d vs %d",
				q.Name(), key, len(vals), len(totals))
		}
		for i, v := range vals {
			totals[i] += v
		}
	}
	if totals == nil {
		return nil, fmt.Errorf("quantity %q: no trainable parameters", q.Name())
	}
	return totals, nil
}
