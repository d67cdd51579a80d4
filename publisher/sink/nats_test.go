package sink

import "testing"

func TestSanitizeStreamName(t *testing.T) {
	cases := map[string]string{
		"blurt.notifications": "blurt_notifications",
		"a.*.>":               "a____",
		"plain":               "plain",
	}
	for in, want := range cases {
		if got := sanitizeStreamName(in); got != want {
			t.Errorf("sanitizeStreamName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewNatsSinkRequiresSubject(t *testing.T) {
	if _, err := NewNatsSink("nats://127.0.0.1:4222", ""); err == nil {
		t.Error("expected error for empty subject, got nil")
	}
}
