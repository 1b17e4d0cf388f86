package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(bookingDecisions.WithLabelValues("APPROVED"))
	IncBookingDecision("APPROVED")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingDecisions.WithLabelValues("APPROVED")))

	createdBefore := testutil.ToFloat64(bookingsCreated)
	IncBookingCreated()
	assert.Equal(t, createdBefore+1, testutil.ToFloat64(bookingsCreated))

	IncHTTP("GET", "/v1/bookings", 200)
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/v1/bookings", "200")))
}
