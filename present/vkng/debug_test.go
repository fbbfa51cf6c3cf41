package vkng

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/presenter/present"
)

func TestSeverityLevel(t *testing.T) {
	tests := []struct {
		severity ext_debug_utils.DebugUtilsMessageSeverityFlags
		want     slog.Level
	}{
		{ext_debug_utils.SeverityError, slog.LevelError},
		{ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning, slog.LevelError},
		{ext_debug_utils.SeverityWarning, slog.LevelWarn},
		{ext_debug_utils.SeverityInfo, slog.LevelInfo},
		{ext_debug_utils.SeverityVerbose, slog.LevelDebug},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, severityLevel(tt.severity), "severity %s", tt.severity)
	}
}

func TestLogDebugForwardsToLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	present.SetLogger(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { present.SetLogger(nil) })

	keepGoing := logDebug(ext_debug_utils.TypeValidation, ext_debug_utils.SeverityWarning, &ext_debug_utils.DebugUtilsMessengerCallbackData{
		Message: "vkCreateSwapchainKHR: bad extent",
	})

	assert.False(t, keepGoing)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "bad extent")
	assert.Contains(t, buf.String(), "source=vulkan")
}
