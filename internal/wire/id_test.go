package wire

import "testing"

func TestIDParseIDRoundTrip(t *testing.T) {
	cases := []int64{0, 1, 42, 9223372036854775807}
	for _, v := range cases {
		s := ID(v)
		got, err := ParseID(s)
		if err != nil {
			t.Fatalf("ParseID(%q) returned error: %v", s, err)
		}
		if got != v {
			t.Fatalf("round trip mismatch: ID(%d)=%q, ParseID back to %d", v, s, got)
		}
	}
}

func TestParseIDEmptyStringIsZero(t *testing.T) {
	got, err := ParseID("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected empty string to parse to 0, got %d", got)
	}
}

func TestParseIDRejectsGarbage(t *testing.T) {
	if _, err := ParseID("not-a-number"); err == nil {
		t.Fatal("expected an error for a non-numeric id")
	}
}

func TestFailBuildsFailureEnvelope(t *testing.T) {
	e := Fail(ErrNotMember, "not a member of this conversation")
	if e.OK {
		t.Fatal("expected OK to be false")
	}
	if e.ErrorCode != ErrNotMember || e.ErrorMsg != "not a member of this conversation" {
		t.Fatalf("got %+v", e)
	}
}

func TestOKBuildsSuccessEnvelope(t *testing.T) {
	e := OK()
	if !e.OK {
		t.Fatal("expected OK to be true")
	}
	if e.ErrorCode != "" || e.ErrorMsg != "" {
		t.Fatalf("expected no error fields on a success envelope, got %+v", e)
	}
}
