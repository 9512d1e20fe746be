package model

import "sort"

// Descriptor describes a supported model.
type Descriptor struct {
	ID          Identity
	Description string
	Filtered    bool
}

// Registry is a read-only set of supported models.
type Registry struct {
	models map[Identity]Descriptor
}

// NewRegistry creates a registry from the given descriptors.
func NewRegistry(descriptors ...Descriptor) *Registry {
	r := &Registry{
		models: make(map[Identity]Descriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		r.models[d.ID] = d
	}

	return r
}

// Get returns the descriptor with the given ID.
func (r *Registry) Get(id Identity) (Descriptor, bool) {
	d, ok := r.models[id]
	return d, ok
}

// List returns all descriptors sorted by ID.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.models))
	for _, d := range r.models {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

var catalog = NewRegistry(
	Descriptor{
		ID:          GPT4AllLoraQuantized,
		Description: "GPT4All LoRA, 4-bit quantized",
		Filtered:    true,
	},
	Descriptor{
		ID:          GPT4AllLoraUnfilteredQuantized,
		Description: "GPT4All LoRA without content filtering, 4-bit quantized",
	},
)

// Supported returns the built-in catalog of supported models.
func Supported() *Registry {
	return catalog
}

// Names returns the supported model names, sorted.
func Names() []string {
	list := catalog.List()
	names := make([]string, len(list))
	for i, d := range list {
		names[i] = string(d.ID)
	}

	return names
}
