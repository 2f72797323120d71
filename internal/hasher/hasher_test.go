package hasher

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/alibenameur/dupfinder/internal/scanner"
	"github.com/alibenameur/dupfinder/internal/testutil"
)

const (
	emptySHA256      = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	helloWorldSHA256 = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
)

func TestFingerprintKnownDigest(t *testing.T) {
	f := testutil.NewFixture(t)
	path := f.CreateFile("hello.txt", []byte("hello world"))

	digest, err := Fingerprint(path, DefaultChunkSize)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if digest != helloWorldSHA256 {
		t.Errorf("digest = %s, want %s", digest, helloWorldSHA256)
	}
}

func TestFingerprintEmptyFile(t *testing.T) {
	f := testutil.NewFixture(t)
	path := f.CreateFile("empty.txt", nil)

	digest, err := Fingerprint(path, DefaultChunkSize)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if digest != emptySHA256 {
		t.Errorf("digest = %s, want the empty-content SHA-256", digest)
	}
}

func TestFingerprintChunkSizeIrrelevant(t *testing.T) {
	f := testutil.NewFixture(t)
	path := f.CreateRandomFile("blob.bin", 100_003) // deliberately not chunk-aligned

	small, err := Fingerprint(path, 16)
	if err != nil {
		t.Fatalf("Fingerprint(16) failed: %v", err)
	}
	large, err := Fingerprint(path, 1<<20)
	if err != nil {
		t.Fatalf("Fingerprint(1MiB) failed: %v", err)
	}
	if small != large {
		t.Errorf("chunk size changed the digest: %s vs %s", small, large)
	}
}

func TestFingerprintMissingFile(t *testing.T) {
	f := testutil.NewFixture(t)

	_, err := Fingerprint(f.RootDir+"/gone.txt", DefaultChunkSize)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestHashAllPreservesInputOrder(t *testing.T) {
	f := testutil.NewFixture(t)

	var records []scanner.FileRecord
	for _, name := range []string{"d.txt", "a.txt", "c.txt", "b.txt"} {
		path := f.CreateFile(name, []byte(name))
		records = append(records, scanner.FileRecord{Path: path, Size: int64(len(name))})
	}

	e := New(4, DefaultChunkSize)
	hashed, advisories, err := e.HashAll(context.Background(), records, nil)
	if err != nil {
		t.Fatalf("HashAll failed: %v", err)
	}
	if len(advisories) != 0 {
		t.Fatalf("unexpected advisories: %v", advisories)
	}
	if len(hashed) != len(records) {
		t.Fatalf("got %d records, want %d", len(hashed), len(records))
	}

	for i := range records {
		if hashed[i].Path != records[i].Path {
			t.Errorf("position %d: got %s, want %s (order must not depend on worker completion)",
				i, hashed[i].Path, records[i].Path)
		}
		if hashed[i].Fingerprint == "" {
			t.Errorf("record %s missing fingerprint", hashed[i].Path)
		}
	}
}

func TestHashAllIdenticalContentIdenticalDigest(t *testing.T) {
	f := testutil.NewFixture(t)
	paths := f.CreateDuplicateSet([]byte("same bytes"), "one.txt", "two.txt", "deep/three.txt")

	records := make([]scanner.FileRecord, len(paths))
	for i, p := range paths {
		records[i] = scanner.FileRecord{Path: p, Size: 10}
	}

	e := New(2, DefaultChunkSize)
	hashed, _, err := e.HashAll(context.Background(), records, nil)
	if err != nil {
		t.Fatalf("HashAll failed: %v", err)
	}

	for i := 1; i < len(hashed); i++ {
		if hashed[i].Fingerprint != hashed[0].Fingerprint {
			t.Errorf("identical content produced different digests: %s vs %s",
				hashed[i].Fingerprint, hashed[0].Fingerprint)
		}
	}
}

func TestHashAllUnreadableFileBecomesAdvisory(t *testing.T) {
	f := testutil.NewFixture(t)
	good := f.CreateFile("good.txt", []byte("fine"))
	bad := f.CreateFile("bad.txt", []byte("will vanish"))
	if !f.MakeUnreadable(bad) {
		t.Skip("running as root; permission bits are not enforced")
	}

	records := []scanner.FileRecord{
		{Path: good, Size: 4},
		{Path: bad, Size: 11},
	}

	e := New(2, DefaultChunkSize)
	hashed, advisories, err := e.HashAll(context.Background(), records, nil)
	if err != nil {
		t.Fatalf("HashAll failed: %v", err)
	}

	if len(hashed) != 1 || hashed[0].Path != good {
		t.Errorf("hashed = %+v, want only the readable file", hashed)
	}
	if len(advisories) != 1 || advisories[0].Op != scanner.OpHash || advisories[0].Path != bad {
		t.Errorf("advisories = %+v, want one hash advisory for %s", advisories, bad)
	}
}

func TestHashAllProgressCoversEveryFile(t *testing.T) {
	f := testutil.NewFixture(t)

	var records []scanner.FileRecord
	want := make([]string, 0, 5)
	for _, name := range []string{"p1", "p2", "p3", "p4", "p5"} {
		path := f.CreateFile(name, []byte(name))
		records = append(records, scanner.FileRecord{Path: path})
		want = append(want, path)
	}

	var seen []string
	var counts []int
	e := New(3, DefaultChunkSize)
	_, _, err := e.HashAll(context.Background(), records, func(done int, path string) {
		seen = append(seen, path)
		counts = append(counts, done)
	})
	if err != nil {
		t.Fatalf("HashAll failed: %v", err)
	}

	sort.Strings(seen)
	sort.Strings(want)
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("progress paths = %v, want %v", seen, want)
	}
	for i, c := range counts {
		if c != i+1 {
			t.Errorf("progress count %d at call %d, want %d", c, i, i+1)
		}
	}
}

func TestHashAllCancelled(t *testing.T) {
	f := testutil.NewFixture(t)
	path := f.CreateFile("x.txt", []byte("x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(1, DefaultChunkSize)
	_, _, err := e.HashAll(ctx, []scanner.FileRecord{{Path: path}}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
