package actor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTokens_RoundTrip(t *testing.T) {
	tk := Tokens{Secret: []byte("s3cret"), Issuer: "storefront"}
	raw, err := tk.Issue(Actor{ID: "agent-7", Role: RoleAgent}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	a, err := tk.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != "agent-7" || a.Role != RoleAgent {
		t.Fatalf("unexpected actor %+v", a)
	}
}

func TestTokens_Rejects(t *testing.T) {
	tk := Tokens{Secret: []byte("s3cret")}
	other := Tokens{Secret: []byte("other")}

	forged, _ := other.Issue(Actor{ID: "x", Role: RoleAdmin}, time.Hour)
	expired, _ := tk.Issue(Actor{ID: "x", Role: RoleAdmin}, -time.Minute)
	noRole, _ := tk.Issue(Actor{ID: "x", Role: "root"}, time.Hour)

	for name, raw := range map[string]string{"forged": forged, "expired": expired, "bad role": noRole, "garbage": "abc"} {
		if _, err := tk.Parse(raw); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: expected invalid token, got %v", name, err)
		}
	}
}

func TestContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("empty context must carry no actor")
	}
	ctx := WithActor(context.Background(), Actor{ID: "b-1", Role: RoleBuyer})
	a, ok := FromContext(ctx)
	if !ok || a.ID != "b-1" {
		t.Fatalf("actor lost: %+v", a)
	}
}
