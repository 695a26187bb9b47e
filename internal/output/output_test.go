package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kavirubc/cofound/internal/outbox"
	"github.com/Kavirubc/cofound/pkg/models"
)

func TestPrinter_PlainPrefixes(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinterWithWriters(&out, &errOut, false)

	p.Info("loading %d", 3)
	p.Success("saved")
	p.Warning("slow")
	p.Error("failed: %s", "boom")
	p.Header("Profile")

	assert.Equal(t, "loading 3\n[OK] saved\n\nProfile\n-------\n", out.String())
	assert.Equal(t, "[WARN] slow\n[ERROR] failed: boom\n", errOut.String())
	assert.Equal(t, "x", p.Bold("x"))
	assert.Equal(t, "x", p.Dim("x"))
}

func TestResolveColors(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	assert.False(t, ResolveColors(true))

	t.Setenv("NO_COLOR", "")
	assert.False(t, ResolveColors(false))
}

func TestResolveColors_DumbTerminal(t *testing.T) {
	t.Setenv("TERM", "dumb")
	assert.False(t, ResolveColors(false))
}

func TestHistoryTable(t *testing.T) {
	var buf bytes.Buffer
	err := HistoryTable(&buf, []models.SwipeRecord{
		{TargetUserID: "u-7", Decision: models.Accept, Timestamp: "2024-05-01T10:00:00"},
		{TargetUserID: "u-8", Decision: models.Reject, Timestamp: "2024-05-01T10:01:00"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, strings.ToUpper(out), "DECISION")
	assert.Contains(t, out, "u-7")
	assert.Contains(t, out, "interested")
	assert.Contains(t, out, "u-8")
	assert.Contains(t, out, "pass")
}

func TestOutboxTable(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := OutboxTable(&buf, []outbox.Entry{
		{TargetID: "u-1", Kind: models.SuperAccept, Attempts: 2, NextAttemptAt: now.Add(90 * time.Second), LastError: "api error 503: unavailable"},
		{TargetID: "u-2", Kind: models.Reject, Attempts: 1, NextAttemptAt: now.Add(-time.Second)},
	}, now)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "super")
	assert.Contains(t, out, "in 1m30s")
	assert.Contains(t, out, "due")
	assert.Contains(t, out, "503")
}

func TestDecisionLabel(t *testing.T) {
	assert.Equal(t, "pass", DecisionLabel(models.Reject))
	assert.Equal(t, "interested", DecisionLabel(models.Accept))
	assert.Equal(t, "super", DecisionLabel(models.SuperAccept))
	assert.Equal(t, "DecisionKind(9)", DecisionLabel(models.DecisionKind(9)))
}
