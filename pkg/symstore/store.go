// Copyright 2026 helixscreen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package symstore retrieves the per-release symbol dumps published next to
// the firmware images and caches them on disk for repeated triage runs.
//
// Release engineering uploads one dump per build and platform at
// <base>/v<version>/<platform>.sym, e.g. v0.9.12/pi.sym.
package symstore

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/helixscreen/triage/pkg/platform"
)

// EnvURL names the environment variable holding the release host, the same
// one the device-side updater consults.
const EnvURL = "HELIX_R2_URL"

const defaultHost = "https://releases.helixscreen.org"

// BaseURL returns the symbol store root derived from the environment, for
// callers that do not configure one explicitly.
func BaseURL() string {
	host := os.Getenv(EnvURL)
	if host == "" {
		host = defaultHost
	}
	return strings.TrimSuffix(host, "/") + "/symbols"
}

// Store downloads symbol dumps over HTTP.
type Store struct {
	url  string
	ctor requestCtor
	doer requestDoer
}

type (
	requestCtor func(method, url string, body io.Reader) (*http.Request, error)
	requestDoer func(req *http.Request) (*http.Response, error)
)

func NewStore(baseURL string) *Store {
	return &Store{
		url:  strings.TrimSuffix(baseURL, "/"),
		ctor: http.NewRequest,
		doer: http.DefaultClient.Do,
	}
}

// NewTestStore creates a store that sends requests through the provided
// functions instead of net/http.
func NewTestStore(ctor requestCtor, doer requestDoer) *Store {
	return &Store{
		url:  "test://symbols",
		ctor: ctor,
		doer: doer,
	}
}

// FileURL returns the download location of one build's symbol dump.
func (store *Store) FileURL(version string, p platform.Platform) string {
	return fmt.Sprintf("%v/v%v/%v.sym", store.url, version, p)
}

// Fetch downloads the symbol dump for one build. The error text is written
// for end users: it ends up verbatim in the report warnings.
func (store *Store) Fetch(version string, p platform.Platform) ([]byte, error) {
	url := store.FileURL(version, p)
	req, err := store.ctor(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed (%v)", err)
	}
	resp, err := store.doer(req)
	if err != nil {
		return nil, fmt.Errorf("download failed (%v)", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("symbols not available (HTTP %v)", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download failed (%v)", err)
	}
	return data, nil
}
