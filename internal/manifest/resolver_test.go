package manifest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"craft-keeper/internal/cache"
	"craft-keeper/internal/errs"
	"craft-keeper/internal/models"
	"craft-keeper/internal/transport/transporttest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listURL = "https://meta.test/version_manifest_v2.json"

func sum(data []byte) string {
	h := sha1.Sum(data)
	return hex.EncodeToString(h[:])
}

func lib(name, sha string) models.Library {
	return models.Library{
		Name: name,
		Downloads: &models.LibraryDownloads{Artifact: &models.Artifact{
			URL:  "https://libs.test/" + name,
			SHA1: sha,
			Size: 10,
		}},
	}
}

func newResolver(t *testing.T) (*Resolver, *transporttest.Fake, *cache.Store) {
	t.Helper()
	store, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	fake := transporttest.New()
	return NewResolver(fake, store, listURL), fake, store
}

func writeLocal(t *testing.T, store *cache.Store, d *models.VersionDescriptor) {
	t.Helper()
	data, err := json.Marshal(d)
	require.NoError(t, err)
	p := store.Abs(DescriptorPath(d.ID))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, data, 0644))
}

func TestResolveRootIsIdentity(t *testing.T) {
	r, _, store := newResolver(t)
	root := &models.VersionDescriptor{
		ID:        "1.20.1",
		Type:      "release",
		MainClass: "net.minecraft.client.main.Main",
		Libraries: []models.Library{lib("com.mojang:brigadier:1.1.8", "aa"), lib("org.ow2.asm:asm:9.3", "bb")},
		Arguments: &models.Arguments{Game: []models.Argument{{Value: []string{"--username"}}, {Value: []string{"${auth_player_name}"}}}},
		AssetIndex: &models.AssetIndexRef{ID: "5", URL: "https://meta.test/5.json", SHA1: "cc", Size: 1},
	}
	writeLocal(t, store, root)

	got, err := r.Resolve(context.Background(), "1.20.1")
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestResolveChainABC(t *testing.T) {
	r, _, store := newResolver(t)
	a := &models.VersionDescriptor{
		ID:         "A",
		MainClass:  "a.Main",
		AssetIndex: &models.AssetIndexRef{ID: "a-assets"},
		Libraries:  []models.Library{lib("g:one:1", "a1"), lib("g:two:1", "a2"), lib("g:three:1", "a3")},
		Arguments:  &models.Arguments{JVM: []models.Argument{{Value: []string{"-Da"}}}},
	}
	b := &models.VersionDescriptor{
		ID:           "B",
		InheritsFrom: "A",
		Libraries:    []models.Library{lib("g:two:2", "b2"), lib("g:four:1", "b4")},
		Arguments:    &models.Arguments{JVM: []models.Argument{{Value: []string{"-Db"}}}},
	}
	c := &models.VersionDescriptor{
		ID:           "C",
		InheritsFrom: "B",
		MainClass:    "c.Main",
		Libraries:    []models.Library{lib("g:three:3", "c3"), lib("g:two:3", "c2")},
	}
	for _, d := range []*models.VersionDescriptor{a, b, c} {
		writeLocal(t, store, d)
	}

	got, err := r.Resolve(context.Background(), "C")
	require.NoError(t, err)

	assert.Equal(t, "C", got.ID)
	assert.Empty(t, got.InheritsFrom)
	assert.Equal(t, "c.Main", got.MainClass)
	require.NotNil(t, got.AssetIndex)
	assert.Equal(t, "a-assets", got.AssetIndex.ID)

	var names []string
	for _, l := range got.Libraries {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"g:one:1", "g:four:1", "g:three:3", "g:two:3"}, names)

	require.NotNil(t, got.Arguments)
	assert.Equal(t, []models.Argument{{Value: []string{"-Da"}}, {Value: []string{"-Db"}}}, got.Arguments.JVM)
}

func TestResolveCycle(t *testing.T) {
	r, _, store := newResolver(t)
	writeLocal(t, store, &models.VersionDescriptor{ID: "x", InheritsFrom: "y"})
	writeLocal(t, store, &models.VersionDescriptor{ID: "y", InheritsFrom: "z"})
	writeLocal(t, store, &models.VersionDescriptor{ID: "z", InheritsFrom: "x"})

	_, err := r.Resolve(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrCyclicInheritance)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []string{"x", "y", "z", "x"}, e.Chain)

	writeLocal(t, store, &models.VersionDescriptor{ID: "self", InheritsFrom: "self"})
	_, err = r.Resolve(context.Background(), "self")
	assert.ErrorIs(t, err, errs.ErrCyclicInheritance)
}

func TestResolveNotFoundAndParseErrors(t *testing.T) {
	r, fake, store := newResolver(t)
	fake.Set(listURL, []byte(`{"latest":{"release":"1.0"},"versions":[]}`))

	_, err := r.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrDescriptorNotFound)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "missing", e.VersionID)

	// a broken parent fails the child
	writeLocal(t, store, &models.VersionDescriptor{ID: "child", InheritsFrom: "broken"})
	p := store.Abs(DescriptorPath("broken"))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0644))

	_, err = r.Resolve(context.Background(), "child")
	assert.ErrorIs(t, err, errs.ErrDescriptorParse)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "broken", e.VersionID)
}

func TestResolveRemoteFallback(t *testing.T) {
	r, fake, store := newResolver(t)
	desc := []byte(`{"id":"1.8.9","mainClass":"net.minecraft.client.main.Main","minecraftArguments":"--username ${auth_player_name}"}`)
	list := `{"latest":{"release":"1.8.9","snapshot":"1.8.9"},"versions":[{"id":"1.8.9","type":"release","url":"https://meta.test/1.8.9.json","sha1":"` + sum(desc) + `"}]}`
	fake.Set(listURL, []byte(list))
	fake.Set("https://meta.test/1.8.9.json", desc)

	got, err := r.Resolve(context.Background(), "1.8.9")
	require.NoError(t, err)
	assert.Equal(t, "net.minecraft.client.main.Main", got.MainClass)
	assert.Len(t, got.GameArguments(), 2)

	// saved locally and registered
	_, ok := store.Lookup(DescriptorPath("1.8.9"))
	assert.True(t, ok)
	_, err = os.Stat(store.Abs(DescriptorPath("1.8.9")))
	assert.NoError(t, err)

	// second resolution never touches the network for the descriptor
	_, err = r.Resolve(context.Background(), "1.8.9")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Calls("https://meta.test/1.8.9.json"))
}

func TestResolveAlias(t *testing.T) {
	r, fake, store := newResolver(t)
	desc := []byte(`{"id":"1.21","mainClass":"net.minecraft.client.main.Main"}`)
	list := `{"latest":{"release":"1.21","snapshot":"24w10a"},"versions":[{"id":"1.21","type":"release","url":"https://meta.test/1.21.json","sha1":"` + sum(desc) + `"}]}`
	fake.Set(listURL, []byte(list))
	fake.Set("https://meta.test/1.21.json", desc)

	got, err := r.Resolve(context.Background(), AliasLatestRelease)
	require.NoError(t, err)
	assert.Equal(t, "1.21", got.ID)
	_, ok := store.Lookup(DescriptorPath("1.21"))
	assert.True(t, ok)

	// the snapshot alias points at a version missing from the list
	_, err = r.Resolve(context.Background(), AliasLatestSnapshot)
	assert.ErrorIs(t, err, errs.ErrDescriptorNotFound)
}

func TestResolveRemoteChecksumMismatch(t *testing.T) {
	r, fake, store := newResolver(t)
	list := `{"versions":[{"id":"bad","type":"release","url":"https://meta.test/bad.json","sha1":"0000000000000000000000000000000000000000"}]}`
	fake.Set(listURL, []byte(list))
	fake.Set("https://meta.test/bad.json", []byte(`{"id":"bad"}`))

	_, err := r.Resolve(context.Background(), "bad")
	assert.ErrorIs(t, err, errs.ErrChecksumMismatch)
	_, statErr := os.Stat(store.Abs(DescriptorPath("bad")))
	assert.True(t, os.IsNotExist(statErr))
}

func TestListVersionsFallsBackToSavedCopy(t *testing.T) {
	r, fake, store := newResolver(t)
	fake.Set(listURL, []byte(`{"latest":{"release":"1.21"},"versions":[{"id":"1.21","type":"release"},{"id":"24w10a","type":"snapshot"}]}`))

	list, err := r.ListVersions(context.Background())
	require.NoError(t, err)
	assert.Len(t, list.Versions, 2)
	e, ok := list.Find("latest-release")
	assert.True(t, ok)
	assert.Equal(t, "1.21", e.ID)
	assert.Len(t, list.Filter("snapshot"), 1)

	offline := NewResolver(transporttest.New(), store, listURL)
	list, err = offline.ListVersions(context.Background())
	require.NoError(t, err)
	assert.Len(t, list.Versions, 2)
}

func TestConcurrentLoadsShareFetch(t *testing.T) {
	r, fake, _ := newResolver(t)
	desc := []byte(`{"id":"shared"}`)
	release := make(chan struct{})
	fake.Set(listURL, []byte(`{"versions":[{"id":"shared","url":"https://meta.test/shared.json","sha1":"`+sum(desc)+`"}]}`))
	fake.SetFunc("https://meta.test/shared.json", func(ctx context.Context, n int) ([]byte, error) {
		<-release
		return desc, nil
	})

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = r.Load(context.Background(), "shared")
		}(i)
	}
	close(release)
	wg.Wait()
	for _, err := range results {
		assert.NoError(t, err)
	}
	assert.LessOrEqual(t, fake.Calls("https://meta.test/shared.json"), 8)
	assert.GreaterOrEqual(t, fake.Calls("https://meta.test/shared.json"), 1)
}

func TestSharedLoadIgnoresFirstCallerCancel(t *testing.T) {
	r, fake, _ := newResolver(t)
	desc := []byte(`{"id":"shared"}`)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fake.Set(listURL, []byte(`{"versions":[{"id":"shared","url":"https://meta.test/shared.json","sha1":"`+sum(desc)+`"}]}`))
	fake.SetFunc("https://meta.test/shared.json", func(ctx context.Context, n int) ([]byte, error) {
		once.Do(func() { close(entered) })
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return desc, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := r.Load(ctx, "shared")
		first <- err
	}()
	<-entered

	second := make(chan error, 1)
	go func() {
		d, err := r.Load(context.Background(), "shared")
		if err == nil && d.ID != "shared" {
			err = fmt.Errorf("unexpected descriptor %q", d.ID)
		}
		second <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)
	close(release)
	assert.NoError(t, <-second)
}

func TestLoadAssetIndex(t *testing.T) {
	r, fake, _ := newResolver(t)
	body := []byte(`{"objects":{"b/second":{"hash":"bbbb","size":2},"a/first":{"hash":"aaaa","size":1}}}`)
	fake.Set("https://meta.test/idx.json", body)
	ref := &models.AssetIndexRef{ID: "17", URL: "https://meta.test/idx.json", SHA1: sum(body), Size: int64(len(body))}

	idx, err := r.LoadAssetIndex(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"b/second", "a/first"}, idx.Names)

	// cached copy is reused
	fresh := NewResolver(fake, r.store, listURL)
	_, err = fresh.LoadAssetIndex(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Calls("https://meta.test/idx.json"))

	_, err = r.LoadAssetIndex(context.Background(), nil)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestTransportErrorsSurfaceAsNotFound(t *testing.T) {
	r, fake, _ := newResolver(t)
	fake.SetFunc(listURL, func(context.Context, int) ([]byte, error) { return nil, errors.New("offline") })
	_, err := r.Resolve(context.Background(), "1.0")
	assert.ErrorIs(t, err, errs.ErrDescriptorNotFound)
}
