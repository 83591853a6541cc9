package browser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/providers/browser"
)

func TestClickTransitionsToPDPContainingPath(t *testing.T) {
	p := browser.New(browser.DefaultGraph(), "home")

	found, _ := p.Call("browser.find", map[string]any{"query": "workstation", "top_k": 5})
	hits := found.(map[string]any)["hits"].([]browser.Affordance)
	require.NotEmpty(t, hits)

	result, err := p.Call("browser.click", map[string]any{"node_id": hits[0].NodeID})
	require.NoError(t, err)
	require.Contains(t, result.(map[string]any)["url"], "/pdp/")
}

func TestBackReturnsToHome(t *testing.T) {
	p := browser.New(browser.DefaultGraph(), "home")
	_, err := p.Call("browser.click", map[string]any{"node_id": "pdp"})
	require.NoError(t, err)

	result, err := p.Call("browser.back", nil)
	require.NoError(t, err)
	require.Contains(t, result.(map[string]any)["url"], "/home")
}

func TestClickUnknownAffordanceIsInvalidAction(t *testing.T) {
	p := browser.New(browser.DefaultGraph(), "home")
	_, err := p.Call("browser.click", map[string]any{"node_id": "nonexistent"})
	require.Error(t, err)
}

func TestFindExcludesBackAffordance(t *testing.T) {
	p := browser.New(browser.DefaultGraph(), "pdp")
	result, _ := p.Call("browser.find", map[string]any{"query": ""})
	hits := result.(map[string]any)["hits"].([]browser.Affordance)
	for _, h := range hits {
		require.NotEqual(t, browser.BackTarget, h.NodeID)
	}
}
