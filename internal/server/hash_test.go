package server

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestArtifactDigest(t *testing.T) {
	r := bytes.NewReader([]byte("abc"))
	_, _ = r.Seek(2, io.SeekStart)

	sum, n, err := artifactDigest(r)
	if err != nil {
		t.Fatalf("artifactDigest: %v", err)
	}
	if n != 3 {
		t.Errorf("n = %d, want 3", n)
	}
	if want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"; sum != want {
		t.Errorf("sum = %s", sum)
	}

	rest, _ := io.ReadAll(r)
	if string(rest) != "abc" {
		t.Errorf("reader not rewound, read %q", rest)
	}
	if tag := etag(sum); !strings.HasPrefix(tag, `"sha256-`) || !strings.HasSuffix(tag, `"`) {
		t.Errorf("etag = %s", tag)
	}
}
