package log

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestToFields(t *testing.T) {
	tests := []struct {
		name    string
		args    []any
		wantLen int
		wantKey string // expected among the produced field keys, "" skips
	}{
		{
			name: "no args yields nil",
		},
		{
			name:    "single pair",
			args:    []any{"vehicle", "KA-01-HH-1234"},
			wantLen: 1,
			wantKey: "vehicle",
		},
		{
			name:    "bare error becomes the error field",
			args:    []any{errors.New("dial timeout")},
			wantLen: 1,
			wantKey: "error",
		},
		{
			name:    "premade zap field passes through",
			args:    []any{zap.Int("pages", 7)},
			wantLen: 1,
			wantKey: "pages",
		},
		{
			name:    "duration value",
			args:    []any{"elapsed", 1500 * time.Millisecond},
			wantLen: 1,
			wantKey: "elapsed",
		},
		{
			name:    "named error value",
			args:    []any{"fetchErr", errors.New("upstream 502")},
			wantLen: 1,
			wantKey: "fetchErr",
		},
		{
			name:    "dangling key keeps the value",
			args:    []any{"records", 42, "orphan"},
			wantLen: 2,
			wantKey: "records",
		},
		{
			name:    "non-string key is wrapped, not dropped",
			args:    []any{404, "not found"},
			wantLen: 1,
		},
		{
			name:    "struct value falls back to Any",
			args:    []any{"window", struct{ Start, End string }{"2024-01-02", "2024-01-02"}},
			wantLen: 1,
			wantKey: "window",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.args...)

			if len(fields) != tt.wantLen {
				t.Fatalf("toFields(%v) produced %d fields, want %d", tt.args, len(fields), tt.wantLen)
			}
			if tt.wantKey == "" {
				return
			}
			for _, f := range fields {
				if f.Key == tt.wantKey {
					return
				}
			}
			t.Errorf("toFields(%v) has no field keyed %q: %+v", tt.args, tt.wantKey, fields)
		})
	}
}
