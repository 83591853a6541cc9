package alias_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/alias"
)

func TestRegisterSynthesisesXeroAliasForERP(t *testing.T) {
	l := alias.New([]string{"xero"})
	created := l.Register("erp.create_po")
	require.Equal(t, []string{"xero.create_po"}, created)

	base, ok := l.Resolve("xero.create_po")
	require.True(t, ok)
	require.Equal(t, "erp.create_po", base)
}

func TestResolveUnknownAliasReturnsFalse(t *testing.T) {
	l := alias.New([]string{"xero"})
	_, ok := l.Resolve("slack.send_message")
	require.False(t, ok)
}

func TestDisabledPackProducesNoAlias(t *testing.T) {
	l := alias.New(nil)
	created := l.Register("erp.create_po")
	require.Empty(t, created)
}
