package scenario_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/rng"
	"github.com/vei-sim/vei/scenario"
)

const sampleYAML = `
meta:
  name: default
budget:
  cap_usd: 5000
  approval_threshold: 1000
slack:
  initial_message: "Welcome"
  derail_prob: 0.1
  channels: ["#procurement"]
vendors:
  - name: macrocompute
    price: [900, 1100]
    eta_days: [3, 7]
    templates:
      - "Quote: {price}, ETA {eta} days. - {vendor}"
`

func TestCompileSamplesVendorRangeDeterministically(t *testing.T) {
	s1, err := scenario.Compile([]byte(sampleYAML), rng.New(42042))
	require.NoError(t, err)
	s2, err := scenario.Compile([]byte(sampleYAML), rng.New(42042))
	require.NoError(t, err)

	require.Equal(t, s1.Vendors[0].PriceUSD, s2.Vendors[0].PriceUSD)
	require.Equal(t, s1.Vendors[0].ETADays, s2.Vendors[0].ETADays)
	require.GreaterOrEqual(t, s1.Vendors[0].PriceUSD, 900.0)
	require.LessOrEqual(t, s1.Vendors[0].PriceUSD, 1100.0)
}

func TestCompileRejectsMalformedYAML(t *testing.T) {
	_, err := scenario.Compile([]byte("not: [valid yaml"), rng.New(1))
	require.Error(t, err)
}

func TestCompilePreservesBudgetAndSlackFields(t *testing.T) {
	s, err := scenario.Compile([]byte(sampleYAML), rng.New(1))
	require.NoError(t, err)
	require.Equal(t, 5000.0, s.BudgetCapUSD)
	require.Equal(t, "Welcome", s.InitialMessage)
	require.Equal(t, []string{"#procurement"}, s.Channels)
}
