package whatsapp_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/retailbot/whatsapp-sales-agent/pkg/whatsapp"
)

func TestFormatText_Markdown(t *testing.T) {
	assert.Equal(t, "*bold* text", whatsapp.FormatText("**bold** text"))
	assert.Equal(t, " Header\nbody", whatsapp.FormatText("### Header\nbody"))
	assert.Equal(t, " Title\n Sub", whatsapp.FormatText("## Title\n# Sub"))
	assert.Equal(t, "plain", whatsapp.FormatText("plain"))
}

func TestFormatText_Truncation(t *testing.T) {
	long := strings.Repeat("a", 5000)
	formatted := whatsapp.FormatText(long)

	assert.Less(t, len(formatted), 4096)
	assert.True(t, strings.HasPrefix(formatted, strings.Repeat("a", 3900)))
	assert.Contains(t, formatted, "(message truncated)")
}

func TestFormatText_NoTruncationAtLimit(t *testing.T) {
	exactly := strings.Repeat("a", 4000)
	assert.Equal(t, exactly, whatsapp.FormatText(exactly))
}
