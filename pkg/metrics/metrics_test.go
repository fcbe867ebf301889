package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersRegistered(t *testing.T) {
	before := testutil.ToFloat64(InsecureHashRetries)
	InsecureHashRetries.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(InsecureHashRetries))

	AddressesGenerated.WithLabelValues("2").Add(3)
	assert.GreaterOrEqual(t, testutil.ToFloat64(AddressesGenerated.WithLabelValues("2")), 3.0)

	n, err := testutil.GatherAndCount(Registry, "iota_ternary_bundle_insecure_hash_retries_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHandler(t *testing.T) {
	Validations.WithLabelValues(ResultValid).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `iota_ternary_bundle_validations_total{result="valid"}`))
}
