package synth

// JSON-schema literal helpers. Keeps the per-facet schemas readable without
// pulling in a schema-builder dependency the extraction providers would not
// understand anyway (they pass the document through verbatim).

func obj(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func arr(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func str(desc ...string) map[string]any {
	s := map[string]any{"type": "string"}
	if len(desc) > 0 {
		s["description"] = desc[0]
	}
	return s
}

func num(desc ...string) map[string]any {
	s := map[string]any{"type": "number"}
	if len(desc) > 0 {
		s["description"] = desc[0]
	}
	return s
}

func boolean() map[string]any {
	return map[string]any{"type": "boolean"}
}

func nullable(inner map[string]any) map[string]any {
	out := make(map[string]any, len(inner))
	for k, v := range inner {
		out[k] = v
	}
	out["type"] = []any{inner["type"], "null"}
	return out
}

func enum(values ...string) map[string]any {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return map[string]any{"type": "string", "enum": vals}
}

func strArr() map[string]any {
	return arr(str())
}
