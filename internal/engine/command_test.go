package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name   string
		action int32
		want   Operation
	}{
		{"rewrite", 0, OpRewrite},
		{"eval", 1, OpEval},
		{"call", 2, OpCall},
		{"unknown positive", 3, OpExit},
		{"unknown large", 9999, OpExit},
		{"negative", -1, OpExit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Translate(tt.action, "src", []string{"a", "b"})
			assert.Equal(t, tt.want, cmd.Op)
			assert.Equal(t, "src", cmd.Payload)
			assert.Equal(t, []string{"a", "b"}, cmd.Args)
		})
	}
}

func TestOperationString(t *testing.T) {
	assert.Equal(t, "rewrite", OpRewrite.String())
	assert.Equal(t, "eval", OpEval.String())
	assert.Equal(t, "call", OpCall.String())
	assert.Equal(t, "exit", OpExit.String())
	assert.Equal(t, "unknown", Operation(42).String())
}
