package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	tk := NewTokens("s3cret", time.Hour)
	s, exp, err := tk.Issue("u-admin", "admin@synergyfoods.test", "ADMIN")
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Fatalf("expiry too soon: %v", exp)
	}
	c, err := tk.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	if c.Subject != "u-admin" || c.Role != "ADMIN" {
		t.Fatalf("bad claims: %+v", c)
	}

	if _, err := NewTokens("other", time.Hour).Parse(s); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
	expired, _, _ := NewTokens("s3cret", -time.Minute).Issue("u-admin", "a@b.c", "ADMIN")
	if _, err := tk.Parse(expired); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestBearerToken(t *testing.T) {
	if tok, err := BearerToken("Bearer abc"); err != nil || tok != "abc" {
		t.Fatalf("got %q %v", tok, err)
	}
	for _, h := range []string{"", "Basic abc", "Bearer ", "bearer abc"} {
		if _, err := BearerToken(h); err == nil {
			t.Fatalf("%q should be rejected", h)
		}
	}
}
