package styles

import (
	"testing"

	"github.com/buemura/baseera/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestSeverityStyleRendersEveryTier(t *testing.T) {
	for _, sev := range types.Severities() {
		rendered := SeverityStyle(sev).Render("test")
		assert.Contains(t, rendered, "test", sev)
	}
}

func TestSeverityStyleCriticalIsBold(t *testing.T) {
	assert.True(t, SeverityStyle(types.SeverityCritical).GetBold())
	assert.False(t, SeverityStyle(types.SeverityLow).GetBold())
}

func TestSeverityStyleReturnsDefaultForUnknown(t *testing.T) {
	s := SeverityStyle(types.Severity("UNKNOWN"))
	assert.Equal(t, "test", s.Render("test"))
}

func TestTitleStyleRenders(t *testing.T) {
	assert.Contains(t, TitleStyle.Render("Baseera"), "Baseera")
}
