package auth

import "testing"

func TestCredentialsVerify(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	creds := Credentials{Email: "ops@prepmap.dev", PasswordHash: hash}

	if !creds.Verify("ops@prepmap.dev", "correct horse") {
		t.Error("expected matching credentials to verify")
	}
	if creds.Verify("ops@prepmap.dev", "wrong") {
		t.Error("wrong password must fail")
	}
	if creds.Verify("other@prepmap.dev", "correct horse") {
		t.Error("wrong email must fail")
	}
}
