// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Render(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "Gene", "Level", "Priority")
	tbl.Row("DREB2A", "complete", "28.4")
	tbl.Row("NCED3", "severe", "12.0")
	assert.Equal(t, 2, tbl.Len())
	require.NoError(t, tbl.Render())

	out := buf.String()
	assert.Contains(t, strings.ToUpper(out), "PRIORITY")
	assert.Contains(t, out, "DREB2A")
	assert.Contains(t, out, "28.4")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.GreaterOrEqual(t, len(lines), 3)
	assert.Less(t, strings.Index(out, "DREB2A"), strings.Index(out, "NCED3"), "row order kept")
}

func TestResolveColors(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		env     map[string]string
		want    bool
		wantErr bool
	}{
		{name: "always overrides NO_COLOR", mode: ColorAlways, env: map[string]string{"NO_COLOR": "1"}, want: true},
		{name: "never", mode: ColorNever, want: false},
		{name: "auto with NO_COLOR", mode: ColorAuto, env: map[string]string{"NO_COLOR": ""}, want: false},
		{name: "auto with dumb terminal", mode: "", env: map[string]string{"TERM": "dumb"}, want: false},
		{name: "invalid", mode: "rainbow", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, err := ResolveColors(tt.mode)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrinter_Plain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.Heading("Analysis %s", "run-1")
	p.Warning("%d lookups failed", 2)
	p.Error("boom")

	assert.Equal(t, "Analysis run-1\nwarning: 2 lookups failed\nerror: boom\n", buf.String())
}

func TestPrinter_Colored(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, true).Warning("slow upstream")

	out := buf.String()
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "warning: slow upstream")
}
