package model

import (
	"fmt"
	"net/url"
	"strings"
)

// Identity is the name of a supported model.
type Identity string

const (
	// GPT4AllLoraQuantized is the default, filtered model.
	GPT4AllLoraQuantized Identity = "gpt4all-lora-quantized"

	// GPT4AllLoraUnfilteredQuantized is the unfiltered variant.
	GPT4AllLoraUnfilteredQuantized Identity = "gpt4all-lora-unfiltered-quantized"
)

// Default is the model used when none is configured.
const Default = GPT4AllLoraQuantized

// DefaultWeightsBaseURL is where model weights are published.
const DefaultWeightsBaseURL = "https://the-eye.eu/public/AI/models/nomic-ai/gpt4all/"

// WeightsExt is the file extension of model weights.
const WeightsExt = ".bin"

// Parse returns the Identity for name, or ErrUnsupportedModel. name must match
// exactly.
func Parse(name string) (Identity, error) {
	id := Identity(name)
	if _, ok := catalog.Get(id); !ok {
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedModel, name, strings.Join(Names(), ", "))
	}

	return id, nil
}

// String implements fmt.Stringer.
func (id Identity) String() string {
	return string(id)
}

// WeightsFilename returns the local file name of the model weights.
func (id Identity) WeightsFilename() string {
	return string(id) + WeightsExt
}

// WeightsURL returns the download URL of the weights under baseURL.
// An empty baseURL selects DefaultWeightsBaseURL.
func (id Identity) WeightsURL(baseURL string) (string, error) {
	if baseURL == "" {
		baseURL = DefaultWeightsBaseURL
	}

	u, err := url.JoinPath(baseURL, id.WeightsFilename())
	if err != nil {
		return "", fmt.Errorf("build weights url for %s: %w", id, err)
	}

	return u, nil
}
