package progress

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

func TestSpinnerSink(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	sink := newSpinnerSink(&out)
	ctx := context.Background()

	sink.OnProgress(ctx, usecase.ProgressEvent{Stage: "step", Current: 1, Total: 2, Message: "mint", Spinner: true})
	// the spinner itself stays idle off a terminal
	assert.Equal(t, " [1/2] mint", sink.spinner.Suffix)

	sink.Info("hello")
	assert.Contains(t, out.String(), "hello\n")

	sink.OnProgress(ctx, usecase.ProgressEvent{Stage: "complete", Message: "Scenario finished"})
	assert.False(t, sink.spinner.Active())
	assert.Contains(t, out.String(), "✓ Scenario finished (")
}
