package token

import "testing"

func TestDigesterRegistry(t *testing.T) {
	for _, algorithm := range []string{"sha512", "sha3-512", "blake2b-512"} {
		d, err := NewDigester(algorithm)
		if err != nil {
			t.Fatalf("new digester %s: %v", algorithm, err)
		}
		if d.Algorithm() != algorithm {
			t.Fatalf("algorithm mismatch: got %s want %s", d.Algorithm(), algorithm)
		}
		sum := d.Sum("abc")
		if len(sum) != DigestLength {
			t.Fatalf("%s digest length: got %d want %d", algorithm, len(sum), DigestLength)
		}
		if sum != d.Sum("abc") {
			t.Fatalf("%s digest not deterministic", algorithm)
		}
		if sum == d.Sum("abd") {
			t.Fatalf("%s digest collision on distinct inputs", algorithm)
		}
	}
}

func TestDigesterUnknownAlgorithm(t *testing.T) {
	if _, err := NewDigester("md5"); err == nil {
		t.Fatal("expected error for unregistered algorithm")
	}
}

func TestDigesterAlgorithmsDiffer(t *testing.T) {
	a, _ := NewDigester("sha512")
	b, _ := NewDigester("sha3-512")
	if a.Sum("same input") == b.Sum("same input") {
		t.Fatal("distinct algorithms produced identical digests")
	}
}

func TestCompareDigest(t *testing.T) {
	d, _ := NewDigester("sha512")
	sum := d.Sum("secret")

	if !CompareDigest(sum, sum) {
		t.Fatal("equal digests did not compare equal")
	}
	if CompareDigest(sum, d.Sum("other")) {
		t.Fatal("distinct digests compared equal")
	}
	if CompareDigest(sum, sum[:64]) {
		t.Fatal("length mismatch compared equal")
	}
}
