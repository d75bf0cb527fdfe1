package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/retailbot/whatsapp-sales-agent/pkg/llm"
)

func TestApplyGenerateOptions_Defaults(t *testing.T) {
	opts := llm.ApplyGenerateOptions(nil)
	assert.InDelta(t, 0.3, opts.Temperature, 1e-9)
	assert.Equal(t, 1024, opts.MaxTokens)
	assert.InDelta(t, 1.0, opts.TopP, 1e-9)
	assert.Empty(t, opts.Stop)
}

func TestApplyGenerateOptions_Overrides(t *testing.T) {
	opts := llm.ApplyGenerateOptions([]llm.GenerateOption{
		llm.WithTemperature(0.7),
		llm.WithMaxTokens(256),
		llm.WithTopP(0.9),
		llm.WithStop([]string{"END"}),
	})
	assert.InDelta(t, 0.7, opts.Temperature, 1e-9)
	assert.Equal(t, 256, opts.MaxTokens)
	assert.InDelta(t, 0.9, opts.TopP, 1e-9)
	assert.Equal(t, []string{"END"}, opts.Stop)
}
