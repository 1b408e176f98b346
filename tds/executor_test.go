package tds

import "testing"

func TestBuildDSN_UsesFixedPortAndDatabaseQueryParam(t *testing.T) {
	dsn := buildDSN("org12345.api.example.com", "orgdb")
	want := "sqlserver://org12345.api.example.com:5558?database=orgdb"
	if dsn != want {
		t.Fatalf("buildDSN() = %q, want %q", dsn, want)
	}
}

func TestBuildDSN_OmitsDatabaseParamWhenEmpty(t *testing.T) {
	dsn := buildDSN("host", "")
	want := "sqlserver://host:5558"
	if dsn != want {
		t.Fatalf("buildDSN() = %q, want %q", dsn, want)
	}
}

func TestIsAuthError_MatchesLoginFailedMessage(t *testing.T) {
	if !isAuthError(fmtError("login failed for user 'svc'")) {
		t.Fatalf("expected login-failed message to classify as auth error")
	}
	if isAuthError(fmtError("timeout waiting for server")) {
		t.Fatalf("did not expect a timeout message to classify as auth error")
	}
}

type stringError string

func (e stringError) Error() string { return string(e) }

func fmtError(msg string) error { return stringError(msg) }
