package download

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/vmihailenco/msgpack/v5"
)

// cachedResponse is one stored payload.
type cachedResponse struct {
	URL     string    `msgpack:"url"`
	Fetched time.Time `msgpack:"fetched"`
	Data    []byte    `msgpack:"data"`
}

// Cache keeps downloaded payloads on disk so repeated runs during
// development do not hit the network. Entries older than TTL are ignored.
type Cache struct {
	Dir string
	TTL time.Duration
	now func() time.Time
}

// NewCache creates a response cache in dir.
func NewCache(dir string, ttl time.Duration) *Cache {
	return &Cache{Dir: dir, TTL: ttl, now: time.Now}
}

func (c *Cache) path(url string) string {
	sum := sha1.Sum([]byte(url))
	return filepath.Join(c.Dir, hex.EncodeToString(sum[:])+".msgpack")
}

// Get returns the cached payload for url if it is younger than TTL.
func (c *Cache) Get(url string) ([]byte, bool) {
	f, err := os.Open(c.path(url))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	fr := flate.NewReader(f)
	defer fr.Close()

	var r cachedResponse
	if err := msgpack.NewDecoder(fr).Decode(&r); err != nil {
		return nil, false
	}
	if r.URL != url || c.now().Sub(r.Fetched) > c.TTL {
		return nil, false
	}
	return r.Data, true
}

// Put stores the payload for url.
func (c *Cache) Put(url string, data []byte) error {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	f, err := os.Create(c.path(url))
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer f.Close()

	fw, err := flate.NewWriter(f, flate.BestSpeed)
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(fw).Encode(cachedResponse{URL: url, Fetched: c.now(), Data: data}); err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return fw.Close()
}
