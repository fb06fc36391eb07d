package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAction(t *testing.T) {
	before := testutil.ToFloat64(TimesheetActionsTotal.WithLabelValues("submit", "error"))

	RecordAction("submit", errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(TimesheetActionsTotal.WithLabelValues("submit", "error")))
}

func TestRecordRequest_UnmatchedRoute(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404"))

	RecordRequest("GET", "", 404, 0.01)

	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestSetSSESubscribers(t *testing.T) {
	SetSSESubscribers(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(SSESubscribers))
}
