package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildArgs(t *testing.T) {
	args := BuildArgs("/home/u/.nomic/gpt4all-lora-quantized.bin", DecoderOptions{
		"top_k": 40,
		"temp":  0.1,
		"n":     "128",
		"color": true,
	})

	assert.Equal(t, []string{
		"--model", "/home/u/.nomic/gpt4all-lora-quantized.bin",
		"--color", "true",
		"--n", "128",
		"--temp", "0.1",
		"--top_k", "40",
	}, args)
}

func TestBuildArgs_NoOptions(t *testing.T) {
	assert.Equal(t, []string{"--model", "m.bin"}, BuildArgs("m.bin", nil))
}

func TestDecoderOptions_Clone(t *testing.T) {
	orig := DecoderOptions{"temp": 0.7}
	clone := orig.Clone()
	clone["temp"] = 0.2

	assert.Equal(t, 0.7, orig["temp"])
	assert.Nil(t, DecoderOptions(nil).Clone())
}
