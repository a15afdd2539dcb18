// Package iotaxonomy looks up species in the GBIF backbone taxonomy
// through the GBIF REST API. It implements compendium.Lookup.
package iotaxonomy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gnames/gncube/pkg/compendium"
	"github.com/gnames/gncube/pkg/config"
	"github.com/gnames/gnfmt"
	"github.com/patrickmn/go-cache"
)

// errNotFound is returned for keys unknown to the service.
var errNotFound = errors.New("species not found")

// usage is a GBIF name usage as returned by /species/{key}.
type usage struct {
	Key             int64  `json:"key"`
	ScientificName  string `json:"scientificName"`
	CanonicalName   string `json:"canonicalName"`
	Rank            string `json:"rank"`
	TaxonomicStatus string `json:"taxonomicStatus"`
	Kingdom         string `json:"kingdom"`
}

// Client is a GBIF species client with an in-memory cache. It is safe
// for concurrent use.
type Client struct {
	url      string
	http     *http.Client
	cache    *cache.Cache
	retries  uint64
	interval time.Duration
	enc      gnfmt.Encoder
}

// Option configures Client.
type Option func(*Client)

// OptInterval sets the initial wait between retries.
func OptInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.interval = d
		}
	}
}

// New creates a Client from taxonomy settings.
func New(cfg config.TaxonomyConfig, opts ...Option) *Client {
	ttl := time.Duration(cfg.CacheTTL) * time.Minute
	res := &Client{
		url:      strings.TrimRight(cfg.URL, "/"),
		http:     &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		cache:    cache.New(ttl, 2*ttl),
		retries:  uint64(max(cfg.Retries, 0)),
		interval: 500 * time.Millisecond,
		enc:      gnfmt.GNjson{},
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Species returns the species with the given GBIF key. Transient
// failures are retried with exponential backoff. Any failure is a
// *compendium.LookupError.
func (c *Client) Species(
	ctx context.Context,
	key int64,
) (compendium.Species, error) {
	ck := strconv.FormatInt(key, 10)
	if v, ok := c.cache.Get(ck); ok {
		return v.(compendium.Species), nil
	}

	var res compendium.Species
	op := func() error {
		var err error
		res, err = c.get(ctx, key)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.interval
	bc := backoff.WithContext(backoff.WithMaxRetries(b, c.retries), ctx)

	notify := func(err error, d time.Duration) {
		slog.Warn("Species lookup failed, retrying",
			"key", key, "wait", d, "error", err)
	}

	if err := backoff.RetryNotify(op, bc, notify); err != nil {
		lerr := &compendium.LookupError{Key: key, Err: err, Retryable: true}
		var st statusError
		switch {
		case errors.Is(err, errNotFound):
			lerr.Retryable = false
		case errors.As(err, &st):
			lerr.Retryable = st.retryable()
		}
		return res, lerr
	}

	c.cache.Set(ck, res, cache.DefaultExpiration)
	return res, nil
}

func (c *Client) get(ctx context.Context, key int64) (compendium.Species, error) {
	var res compendium.Species
	url := fmt.Sprintf("%s/species/%d", c.url, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return res, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return res, backoff.Permanent(ctx.Err())
		}
		return res, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return res, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return res, backoff.Permanent(errNotFound)
	case resp.StatusCode != http.StatusOK:
		st := statusError(resp.StatusCode)
		if !st.retryable() {
			return res, backoff.Permanent(st)
		}
		return res, st
	}

	var u usage
	if err = c.enc.Decode(body, &u); err != nil {
		return res, backoff.Permanent(fmt.Errorf("cannot decode species %d: %w", key, err))
	}

	res = compendium.Species{
		Key:             key,
		ScientificName:  u.ScientificName,
		CanonicalName:   u.CanonicalName,
		Rank:            u.Rank,
		TaxonomicStatus: u.TaxonomicStatus,
		Kingdom:         u.Kingdom,
	}
	return res, nil
}

// statusError is an unexpected HTTP status.
type statusError int

func (s statusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", int(s), http.StatusText(int(s)))
}

func (s statusError) retryable() bool {
	return s == http.StatusTooManyRequests || s >= 500
}
