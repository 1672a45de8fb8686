// FILE: confweave/merge.go
package confweave

// Merge combines two trees under the deep-merge rule: objects union their
// keys and recurse on the intersection, arrays concatenate (a's elements
// then b's), and in every other case b wins outright. The later value
// wins even when it is null, false, zero or empty. Inputs are never
// mutated; object results are fresh maps.
func Merge(a, b any) any {
	if am, ok := a.(map[string]any); ok {
		if bm, ok := b.(map[string]any); ok {
			out := make(map[string]any, len(am)+len(bm))
			for k, v := range am {
				out[k] = v
			}
			for k, bv := range bm {
				if av, exists := out[k]; exists {
					out[k] = Merge(av, bv)
				} else {
					out[k] = bv
				}
			}
			return out
		}
	}

	if as, ok := a.([]any); ok {
		if bs, ok := b.([]any); ok {
			out := make([]any, 0, len(as)+len(bs))
			out = append(out, as...)
			return append(out, bs...)
		}
	}

	return b
}

// Reduce left-folds the ordered trees into a single merged tree, starting
// from an empty object. The fold order is the merge precedence order:
// later trees override earlier ones per the Merge rule.
func Reduce(trees []any) any {
	var result any = map[string]any{}
	for _, tree := range trees {
		result = Merge(result, tree)
	}
	return result
}
