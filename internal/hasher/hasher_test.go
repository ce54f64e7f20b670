package hasher

import "testing"

func TestDigestStable(t *testing.T) {
	a := Digest([]byte("tinyimage"))
	b := Digest([]byte("tinyimage"))
	if a != b {
		t.Fatalf("digest not deterministic: %s vs %s", a, b)
	}
	if len(a) != DigestLen {
		t.Fatalf("digest length %d, want %d", len(a), DigestLen)
	}
	if Digest([]byte("tinyimagf")) == a {
		t.Fatal("different input produced same digest")
	}
}

func TestDigestKnownValue(t *testing.T) {
	// xxHash64 of the empty input with seed 0.
	if got := Digest(nil); got != "ef46db3751d8e999" {
		t.Fatalf("Digest(nil) = %s", got)
	}
}

func TestShort(t *testing.T) {
	if got := Short([]byte("x"), 8); len(got) != 8 {
		t.Fatalf("Short len = %d", len(got))
	}
	if got := Short([]byte("x"), 0); len(got) != DigestLen {
		t.Fatalf("Short(0) len = %d", len(got))
	}
}
