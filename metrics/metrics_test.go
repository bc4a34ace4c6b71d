package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCommandsTotalLabels(t *testing.T) {
	before := testutil.ToFloat64(CommandsTotal.WithLabelValues("help", "success"))
	CommandsTotal.WithLabelValues("help", "success").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(CommandsTotal.WithLabelValues("help", "success")))
}
