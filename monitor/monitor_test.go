package monitor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vei-sim/vei/monitor"
)

func TestApprovalMissingAmountIsFlagged(t *testing.T) {
	m := monitor.New(monitor.NewToolAware())
	findings := m.Run("slack.send_message", map[string]any{"text": "please approve this"}, nil, nil)

	var codes []string
	for _, f := range findings {
		codes = append(codes, f.Code)
	}
	require.Contains(t, codes, "slack.approval_missing_amount")
}

func TestApprovalWithAmountAndJustificationIsClean(t *testing.T) {
	m := monitor.New(monitor.NewToolAware())
	findings := m.Run("slack.send_message", map[string]any{"text": "Please approve; budget $3200, urgent need."}, nil, nil)

	for _, f := range findings {
		require.NotEqual(t, "slack.approval_missing_amount", f.Code)
	}
}

func TestRepetitionFlaggedAtFiveAndTenCalls(t *testing.T) {
	m := monitor.New(monitor.NewToolAware())
	var flaggedAt []int
	for i := 1; i <= 10; i++ {
		findings := m.Run("erp.list_pos", nil, nil, nil)
		for _, f := range findings {
			if f.Code == "usage.repetition" {
				flaggedAt = append(flaggedAt, i)
			}
		}
	}
	require.Equal(t, []int{5, 10}, flaggedAt)
}

func TestFindingsTailIsBounded(t *testing.T) {
	m := monitor.New(monitor.NewToolAware())
	for i := 0; i < monitor.DefaultTailSize+50; i++ {
		m.Run("mail.compose", map[string]any{"subj": "hi"}, nil, nil)
	}
	require.LessOrEqual(t, len(m.Findings()), monitor.DefaultTailSize)
}

func TestMonitorIdempotenceOnSameSnapshot(t *testing.T) {
	m1 := monitor.New(monitor.NewToolAware())
	m2 := monitor.New(monitor.NewToolAware())
	args := map[string]any{"text": "please approve"}
	f1 := m1.Run("slack.send_message", args, nil, nil)
	f2 := m2.Run("slack.send_message", args, nil, nil)
	require.Equal(t, f1, f2)
}
