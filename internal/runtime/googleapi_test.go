package runtime

import (
	"errors"
	"testing"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	gc "github.com/Twine-Labs/instantly-email-warming-filter/internal/gmail"
)

func TestClassifyErr(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		auth      bool
		transient bool
	}{
		{
			name: "unauthorized",
			err:  &googleapi.Error{Code: 401},
			auth: true,
		},
		{
			name:      "rate-limited",
			err:       &googleapi.Error{Code: 429},
			transient: true,
		},
		{
			name:      "server-error",
			err:       &googleapi.Error{Code: 503},
			transient: true,
		},
		{
			name: "forbidden-quota",
			err: &googleapi.Error{
				Code:   403,
				Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}},
			},
			transient: true,
		},
		{
			name: "forbidden-scope",
			err: &googleapi.Error{
				Code:   403,
				Errors: []googleapi.ErrorItem{{Reason: "insufficientPermissions"}},
			},
			auth: true,
		},
		{
			name: "bad-request",
			err:  &googleapi.Error{Code: 400},
		},
		{
			name: "token-refresh-rejected",
			err:  &oauth2.RetrieveError{ErrorCode: "invalid_grant"},
			auth: true,
		},
		{
			name:      "transport-failure",
			err:       errors.New("connection reset by peer"),
			transient: true,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			got := classifyErr("op", tc.err)
			if gc.IsAuth(got) != tc.auth {
				t.Fatalf("IsAuth = %v, want %v (err %v)", gc.IsAuth(got), tc.auth, got)
			}
			if gc.IsTransient(got) != tc.transient {
				t.Fatalf("IsTransient = %v, want %v (err %v)", gc.IsTransient(got), tc.transient, got)
			}
			if !errors.Is(got, tc.err) {
				t.Fatalf("classified error lost its cause: %v", got)
			}
		})
	}
}

func TestDecodeBodyHandlesPaddingVariants(t *testing.T) {
	// "warming" base64url-encoded with and without padding
	for _, data := range []string{"d2FybWluZw==", "d2FybWluZw"} {
		got, err := decodeBody(data)
		if err != nil {
			t.Fatalf("decode %q failed: %v", data, err)
		}
		if string(got) != "warming" {
			t.Fatalf("decode %q = %q", data, got)
		}
	}
}
