package cockpit

import (
	"fmt"
	"reflect"

	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/quantities"
)

// aggregateExtensions collects the backward-pass requests of all
// quantities for one step and reduces them to the minimal set the engine
// runs:
//
//   - BatchGradTransforms requests merge by key union. The same key from
//     two quantities is fine when both reference the same function (the
//     built-in transforms are shared package-level functions for exactly
//     this reason); the same key bound to different functions is a
//     configuration conflict.
//   - All other requests deduplicate on their identity. Two requests of
//     the same kind with different identities (differently configured
//     estimators) conflict instead of one silently winning.
func aggregateExtensions(qs []quantities.Quantity, step int) ([]backprop.Extension, error) {
	transforms := make(map[string]backprop.Transform)
	transformOwner := make(map[string]string)

	byIdentity := make(map[string]backprop.Extension)
	kindIdentity := make(map[string]string)
	kindOwner := make(map[string]string)

	var order []string

	for _, q := range qs {
		for _, ext := range q.Extensions(step) {
			if bgt, ok := ext.(backprop.BatchGradTransforms); ok {
				for key, fn := range bgt.Transforms() {
					prev, exists := transforms[key]
					if exists && !sameFunc(prev, fn) {
						return nil, fmt.Errorf(
							"quantities %q and %q both request transform key %q with different functions: %w",
							transformOwner[key], q.Name(), key, ErrTransformConflict)
					}
					if !exists {
						transforms[key] = fn
						transformOwner[key] = q.Name()
					}
				}
				continue
			}

			kind := ext.Kind()
			identity := ext.Identity()
			if prev, exists := kindIdentity[kind]; exists {
				if prev != identity {
					return nil, fmt.Errorf(
						"quantities %q and %q request %q with incompatible configurations (%q vs %q): %w",
						kindOwner[kind], q.Name(), kind, prev, identity, ErrDuplicateRequest)
				}
				continue
			}
			kindIdentity[kind] = identity
			kindOwner[kind] = q.Name()
			byIdentity[identity] = ext
			order = append(order, identity)
		}
	}

	exts := make([]backprop.Extension, 0, len(order)+1)
	for _, identity := range order {
		exts = append(exts, byIdentity[identity])
	}
	if len(transforms) > 0 {
		exts = append(exts, backprop.NewBatchGradTransforms(transforms))
	}
	return exts, nil
}

// wantsCreateGraph reports whether any quantity needs the graph retained
// past the backward pass at this step.
func wantsCreateGraph(qs []quantities.Quantity, step int) bool {
	for _, q := range qs {
		if q.CreateGraph(step) {
			return true
		}
	}
	return false
}

// sameFunc compares two transforms by function value.
func sameFunc(a, b backprop.Transform) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
