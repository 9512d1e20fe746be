package env

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekisa-team/nomicchat/internal/envvar"
)

func TestFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  Environment
	}{
		{"", Production},
		{"production", Production},
		{"dev", Development},
		{" Development ", Development},
		{"staging", Production},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(envvar.NomicchatEnv, tt.value)
			assert.Equal(t, tt.want, FromEnv())
		})
	}
}
