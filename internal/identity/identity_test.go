package identity

import (
	"crypto/md5"
	"testing"

	"github.com/google/uuid"
)

func TestOf_StableAcrossCalls(t *testing.T) {
	a := Of(42, "a@b.com")
	for i := 0; i < 5; i++ {
		if got := Of(42, "a@b.com"); got != a {
			t.Fatalf("call %d: got %s want %s", i, got, a)
		}
	}
}

func TestOf_NormalizesEmail(t *testing.T) {
	if Of(42, "a@b.com") != Of(42, "  A@B.COM ") {
		t.Fatalf("case and surrounding space should not change identity")
	}
}

func TestOf_DiffersForDifferentPairs(t *testing.T) {
	cases := []struct {
		ch    int64
		email string
	}{
		{42, "a@b.com"},
		{43, "a@b.com"},
		{42, "a@c.com"},
		{4, "2a@b.com"},
		{0, ""},
	}
	seen := map[uuid.UUID]int{}
	for i, c := range cases {
		id := Of(c.ch, c.email)
		if j, ok := seen[id]; ok {
			t.Fatalf("collision between case %d and %d: %s", i, j, id)
		}
		seen[id] = i
	}
}

func TestFields_SumMatchesDigest(t *testing.T) {
	want := md5.Sum([]byte("42,A@B.COM"))
	got := Fields{42, "a@b.com"}.Sum()
	if [16]byte(got) != want {
		t.Fatalf("digest mismatch: %x vs %x", got[:], want)
	}
}

func TestFields_OrderMatters(t *testing.T) {
	if (Fields{"x", "y"}).Sum() == (Fields{"y", "x"}).Sum() {
		t.Fatalf("field order should affect the identity")
	}
}

func TestOf_IgnoresEmailCaseAndSpacing(t *testing.T) {
	if Of(7, "  Mixed@Case.Org ") != Of(7, "MIXED@CASE.ORG") {
		t.Fatalf("identity must not depend on email case or padding")
	}
	if Of(7, "a@b.com") == Of(8, "a@b.com") {
		t.Fatalf("identity must depend on the channel")
	}
}
