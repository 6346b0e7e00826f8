package jwtutil

import "testing"

func TestSignAndParse(t *testing.T) {
	s := &Signer{Secret: []byte("test-secret"), Issuer: "klik-guard", ExpMin: 5}

	token, err := s.Sign(42, "kid@x.test", "user")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := s.Parse(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != 42 || claims.Email != "kid@x.test" || claims.Role != "user" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	s := &Signer{Secret: []byte("test-secret"), Issuer: "klik-guard", ExpMin: 5}
	token, err := s.Sign(1, "kid@x.test", "user")
	if err != nil {
		t.Fatal(err)
	}

	other := &Signer{Secret: []byte("different"), Issuer: "klik-guard", ExpMin: 5}
	if _, err := other.Parse(token); err == nil {
		t.Error("token accepted with wrong secret")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	s := &Signer{Secret: []byte("test-secret"), Issuer: "klik-guard", ExpMin: -1}
	token, err := s.Sign(1, "kid@x.test", "user")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Parse(token); err == nil {
		t.Error("expired token accepted")
	}
}
