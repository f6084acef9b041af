package output

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScrubSecrets(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"api key", "call failed with key sk-abcDEF0123456789ghijKLMN", "call failed with key ***"},
		{"bearer token", "request failed: Bearer abc123.def-456_ghi", "request failed: ***"},
		{"token param", "redirect to https://x/cb?token=abc123&state=1", "redirect to https://x/cb?***&state=1"},
		{"no secret", "plain storage error", "plain storage error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, scrubSecrets(tc.in))
		})
	}
}

func TestErrorScrubsMessageAndContext(t *testing.T) {
	err := &fakeRecoverable{
		msg: "auth failed: Bearer sk-livefeedtoken1234567890",
		ctx: map[string]string{"url": "https://api/x?token=shh-secret"},
	}
	resp := Error(err)
	require.NotContains(t, resp.Error, "Bearer")
	require.NotContains(t, resp.ErrorContext["url"], "shh-secret")
}

type fakeRecoverable struct {
	msg string
	ctx map[string]string
}

func (e *fakeRecoverable) Error() string            { return e.msg }
func (e *fakeRecoverable) ErrorCode() string        { return "FAKE" }
func (e *fakeRecoverable) Context() map[string]string { return e.ctx }
func (e *fakeRecoverable) SuggestedAction() string  { return "none" }
