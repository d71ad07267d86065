package policy

// mergeSections merges an override mapping into a base mapping at the key
// level. The override value wins on scalar conflict; nested mappings are
// merged recursively instead of replaced wholesale. Neither input is
// mutated. Merge order is fully determined by the inputs, so repeated
// merges over the same file set yield identical results.
func mergeSections(base, override map[string]any) map[string]any {
	if base == nil && override == nil {
		return nil
	}

	merged := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}

	for k, v := range override {
		baseVal, exists := merged[k]
		if !exists {
			merged[k] = v
			continue
		}

		baseMap, baseIsMap := asStringMap(baseVal)
		overrideMap, overrideIsMap := asStringMap(v)
		if baseIsMap && overrideIsMap {
			merged[k] = mergeSections(baseMap, overrideMap)
			continue
		}

		// Scalar, list, or mismatched types: override wins.
		merged[k] = v
	}

	return merged
}

// asStringMap normalizes the two map shapes yaml.v3 can decode into.
func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		converted := make(map[string]any, len(m))
		for key, val := range m {
			ks, ok := key.(string)
			if !ok {
				return nil, false
			}
			converted[ks] = val
		}
		return converted, true
	default:
		return nil, false
	}
}
