package login

import (
	"dario.cat/mergo"
)

// MergeFields combines submission fields, every layer overrides the keys of
// the layers before it. The login payload is built as
// credentials < static fields < extracted tokens.
func MergeFields(layers ...map[string]string) (map[string]string, error) {
	out := map[string]string{}
	for _, layer := range layers {
		if len(layer) == 0 {
			continue
		}
		err := mergo.Merge(&out, layer, mergo.WithOverride)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
