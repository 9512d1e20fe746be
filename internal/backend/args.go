package backend

import (
	"fmt"
	"maps"
	"slices"
)

// DecoderOptions are passed to the chat executable verbatim as --<key> <value> flags.
type DecoderOptions map[string]any

// Clone returns a shallow copy of o.
func (o DecoderOptions) Clone() DecoderOptions {
	if o == nil {
		return nil
	}
	return maps.Clone(o)
}

// BuildArgs builds the command-line arguments for the chat executable. Option keys
// are emitted in sorted order; values are stringified without validation.
func BuildArgs(modelPath string, opts DecoderOptions) []string {
	args := make([]string, 0, 2+2*len(opts))
	args = append(args, "--model", modelPath)

	keys := make([]string, 0, len(opts))
	for key := range opts {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		args = append(args, "--"+key, fmt.Sprint(opts[key]))
	}

	return args
}
