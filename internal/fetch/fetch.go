// Package fetch retrieves popup templates with blocking GET requests.
//
// A fetch never fails with an error: transport problems and non-2xx
// responses are reported through Response so callers can fall back to
// showing the status instead of the template.
package fetch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// Response is the outcome of a template fetch.
type Response struct {
	Status     int
	StatusText string
	Body       string
}

// OK reports whether the fetch returned a 2xx status.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Fallback is the text cached in place of a template that could not be
// fetched, e.g. "404-Not Found".
func (r Response) Fallback() string {
	return fmt.Sprintf("%d-%s", r.Status, r.StatusText)
}

// Getter performs a blocking GET.
type Getter interface {
	Get(uri string) Response
}

// GetterFunc adapts a function to Getter.
type GetterFunc func(uri string) Response

// Get calls f(uri).
func (f GetterFunc) Get(uri string) Response {
	return f(uri)
}

// HTTPGetter fetches templates over HTTP.
type HTTPGetter struct {
	client *http.Client
	base   *url.URL
}

// NewHTTPGetter creates an HTTP getter. Relative URIs are resolved against
// baseURL when it is set. A nil client uses http.DefaultClient.
func NewHTTPGetter(client *http.Client, baseURL string) (*HTTPGetter, error) {
	if client == nil {
		client = http.DefaultClient
	}
	g := &HTTPGetter{client: client}
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
		}
		g.base = u
	}
	return g, nil
}

// Get fetches uri and blocks until the response body has been read.
func (g *HTTPGetter) Get(uri string) Response {
	target, err := g.resolve(uri)
	if err != nil {
		return Response{StatusText: err.Error()}
	}

	resp, err := g.client.Get(target)
	if err != nil {
		return Response{StatusText: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{Status: resp.StatusCode, StatusText: err.Error()}
	}
	return Response{
		Status:     resp.StatusCode,
		StatusText: reasonPhrase(resp),
		Body:       string(body),
	}
}

func (g *HTTPGetter) resolve(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse template uri %q: %w", uri, err)
	}
	if g.base != nil && !u.IsAbs() {
		u = g.base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("template uri %q is relative and no base url is set", uri)
	}
	return u.String(), nil
}

// reasonPhrase returns the status line's reason, e.g. "Not Found" for
// "404 Not Found".
func reasonPhrase(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if reason, ok := strings.CutPrefix(resp.Status, code+" "); ok && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}

// FSGetter serves templates from a filesystem with HTTP-like statuses.
type FSGetter struct {
	fsys fs.FS
}

// NewFSGetter creates a getter reading from fsys.
func NewFSGetter(fsys fs.FS) *FSGetter {
	return &FSGetter{fsys: fsys}
}

// Get reads the path of uri relative to the filesystem root. Query and
// fragment are ignored.
func (g *FSGetter) Get(uri string) Response {
	u, err := url.Parse(uri)
	if err != nil {
		return Response{Status: http.StatusBadRequest, StatusText: http.StatusText(http.StatusBadRequest)}
	}
	name := strings.TrimPrefix(path.Clean("/"+u.Path), "/")
	data, err := fs.ReadFile(g.fsys, name)
	switch {
	case err == nil:
		return Response{Status: http.StatusOK, StatusText: http.StatusText(http.StatusOK), Body: string(data)}
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrInvalid):
		return Response{Status: http.StatusNotFound, StatusText: http.StatusText(http.StatusNotFound)}
	case errors.Is(err, fs.ErrPermission):
		return Response{Status: http.StatusForbidden, StatusText: http.StatusText(http.StatusForbidden)}
	default:
		return Response{Status: http.StatusInternalServerError, StatusText: http.StatusText(http.StatusInternalServerError)}
	}
}

// Split routes relative URIs to local and absolute ones to remote.
func Split(local, remote Getter) Getter {
	return GetterFunc(func(uri string) Response {
		if u, err := url.Parse(uri); err == nil && !u.IsAbs() {
			return local.Get(uri)
		}
		return remote.Get(uri)
	})
}

// AllowHosts restricts absolute URIs to the listed hosts. Other absolute
// URIs get 403 Forbidden without a request being made. Relative URIs pass
// through. With no hosts every URI passes.
func AllowHosts(g Getter, hosts ...string) Getter {
	if len(hosts) == 0 {
		return g
	}
	allowed := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		allowed[strings.ToLower(strings.TrimSpace(h))] = true
	}
	return GetterFunc(func(uri string) Response {
		u, err := url.Parse(uri)
		if err != nil {
			return Response{Status: http.StatusBadRequest, StatusText: http.StatusText(http.StatusBadRequest)}
		}
		if u.IsAbs() && !allowed[strings.ToLower(u.Hostname())] {
			return Response{Status: http.StatusForbidden, StatusText: http.StatusText(http.StatusForbidden)}
		}
		return g.Get(uri)
	})
}
