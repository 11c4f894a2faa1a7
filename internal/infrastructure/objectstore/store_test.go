package objectstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"go-roundflow/internal/domain"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 answers single-part PUT and GET object requests from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		f.puts = append(f.puts, r.URL.Path)
		w.Header().Set("ETag", `"0123456789abcdef0123456789abcdef"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("ETag", `"0123456789abcdef0123456789abcdef"`)
		w.Header().Set("Last-Modified", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat))
		if r.Method == http.MethodGet {
			w.Write(body)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := New(Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "roundflow",
		Prefix:    "metadata",
	})
	require.NoError(t, err)
	return s, fake
}

func TestSaveAddressesByDigest(t *testing.T) {
	s, fake := newTestStore(t)

	ptr, err := s.Save(context.Background(), "program-metadata", domain.ProgramMetadata{Name: "Gitcoin"})
	require.NoError(t, err)

	want := digest.FromString(`{"name":"Gitcoin"}`)
	assert.Equal(t, want.String(), ptr)
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "/roundflow/metadata/sha256/"+want.Encoded()+".json", fake.puts[0])
}

func TestLoadVerifiesDigest(t *testing.T) {
	s, fake := newTestStore(t)
	content := []byte(`{"name":"Climate Round"}`)
	d := digest.FromBytes(content)
	fake.objects["/roundflow/metadata/sha256/"+d.Encoded()+".json"] = content

	got, err := s.Load(context.Background(), d.String())
	require.NoError(t, err)
	assert.Equal(t, content, got)

	other := digest.FromString("something else")
	fake.objects["/roundflow/metadata/sha256/"+other.Encoded()+".json"] = content
	_, err = s.Load(context.Background(), other.String())
	assert.ErrorIs(t, err, domain.ErrStoreRejected)

	_, err = s.Load(context.Background(), "not-a-digest")
	assert.ErrorIs(t, err, domain.ErrStoreRejected)
}

func TestLoadMissingObject(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Load(context.Background(), digest.FromString("absent").String())
	assert.ErrorIs(t, err, domain.ErrStoreRejected)
}

func TestSaveReusesIntactObject(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()
	meta := domain.ProgramMetadata{Name: "Gitcoin"}

	first, err := s.Save(ctx, "program-metadata", meta)
	require.NoError(t, err)
	second, err := s.Save(ctx, "program-metadata", meta)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, fake.puts, 1)

	d, err := digest.Parse(first)
	require.NoError(t, err)
	key := "/roundflow/metadata/sha256/" + d.Encoded() + ".json"
	fake.objects[key] = []byte(`{"name":"tampered"}`)

	_, err = s.Save(ctx, "program-metadata", meta)
	require.NoError(t, err)
	assert.Len(t, fake.puts, 2)
	assert.Equal(t, []byte(`{"name":"Gitcoin"}`), fake.objects[key])
}
