package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Supported(t *testing.T) {
	for _, d := range Supported().List() {
		id, err := Parse(string(d.ID))
		require.NoError(t, err)
		assert.Equal(t, d.ID, id)
	}
}

func TestParse_Unsupported(t *testing.T) {
	for _, name := range []string{
		"",
		"gpt4all",
		"llama-7b",
		"GPT4ALL-LORA-QUANTIZED",
		" gpt4all-lora-quantized",
		"gpt4all-lora-quantized\n",
		"\tgpt4all-lora-unfiltered-quantized ",
	} {
		_, err := Parse(name)
		assert.ErrorIs(t, err, ErrUnsupportedModel, name)
	}
}

func TestIdentity_Weights(t *testing.T) {
	assert.Equal(t, "gpt4all-lora-quantized.bin", GPT4AllLoraQuantized.WeightsFilename())

	u, err := GPT4AllLoraUnfilteredQuantized.WeightsURL("")
	require.NoError(t, err)
	assert.Equal(t, "https://the-eye.eu/public/AI/models/nomic-ai/gpt4all/gpt4all-lora-unfiltered-quantized.bin", u)

	u, err = GPT4AllLoraQuantized.WeightsURL("http://127.0.0.1:8080/models")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/models/gpt4all-lora-quantized.bin", u)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{
		"gpt4all-lora-quantized",
		"gpt4all-lora-unfiltered-quantized",
	}, Names())
}

func TestRegistry_GetMissing(t *testing.T) {
	_, ok := NewRegistry().Get(Default)
	assert.False(t, ok)
}
