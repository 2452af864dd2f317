package internal_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-asks/internal"
	"github.com/frankli0324/go-asks/internal/auth"
	"github.com/frankli0324/go-asks/internal/cookies"
	"github.com/frankli0324/go-asks/internal/model"
)

func newClient(s *fakeSession) *internal.Client {
	return &internal.Client{Session: s}
}

var ok200 = respond(200, "ok")

func TestRequestSerialize(t *testing.T) {
	cases := map[string]struct {
		req  *model.Request
		want []string
	}{
		"BasicRequest": {
			req: &model.Request{Method: "GET", URL: "http://www.example.com"},
			want: []string{
				"GET / HTTP/1.1\r\nHost: www.example.com\r\n",
				"\r\nAccept: */*\r\n",
				"\r\nAccept-Encoding: gzip, deflate\r\n",
				"\r\nConnection: keep-alive\r\n",
				"\r\nContent-Length: 0\r\n",
				"\r\nUser-Agent: " + internal.DefaultUserAgent + "\r\n",
			},
		},
		"QueryNonStandard": {
			req:  &model.Request{Method: "GET", URL: "http://www.example.com/test?1=33=1"},
			want: []string{"GET /test?1=33=1 HTTP/1.1\r\n"},
		},
		"HeaderNotCanonicalized": {
			req: &model.Request{
				Method: "GET",
				URL:    "http://www.example.com/",
				Header: http.Header{"x-123-vv": {"1"}},
			},
			want: []string{"\r\nx-123-vv: 1\r\n"},
		},
		"URIFragmentNotIncluded": {
			req:  &model.Request{Method: "GET", URL: "http://www.example.com/?test=1#frag"},
			want: []string{"GET /?test=1 HTTP/1.1\r\n"},
		},
		"PortKeptInHost": {
			req:  &model.Request{URL: "http://www.example.com:8080/"},
			want: []string{"GET / HTTP/1.1\r\nHost: www.example.com:8080\r\n"},
		},
		"DefaultPortOmitted": {
			req:  &model.Request{URL: "https://www.example.com:443/"},
			want: []string{"Host: www.example.com\r\n"},
		},
		"IDNHost": {
			req:  &model.Request{URL: "http://bücher.example/"},
			want: []string{"Host: xn--bcher-kva.example\r\n"},
		},
		"ParamsAppended": {
			req: &model.Request{
				URL:    "http://www.example.com/p?q=1",
				Params: map[string]interface{}{"a": "x y", "b": []int{1, 2}, "c": ""},
			},
			want: []string{"GET /p?q=1&a=x+y&b=1&b=2 HTTP/1.1\r\n"},
		},
		"ParamsFreshQuery": {
			req:  &model.Request{URL: "http://www.example.com/p", Params: map[string]string{"k": "v"}},
			want: []string{"GET /p?k=v HTTP/1.1\r\n"},
		},
		"LiteralParams": {
			req:  &model.Request{URL: "http://www.example.com/", Params: "a b"},
			want: []string{"GET /?a%20b HTTP/1.1\r\n"},
		},
		"Cookies": {
			req: &model.Request{
				URL:     "http://www.example.com/",
				Cookies: map[string]string{"b": "2", "a": "1"},
			},
			want: []string{"\r\nCookie: a=1; b=2\r\n"},
		},
		"UserHeaderWins": {
			req: &model.Request{
				Method: "POST",
				URL:    "http://www.example.com/",
				JSON:   map[string]int{"a": 1},
				Header: http.Header{"content-type": {"x/y"}, "user-agent": {"me"}},
			},
			want: []string{"\r\ncontent-type: x/y\r\n", "\r\nuser-agent: me\r\n"},
		},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			s := newFakeSession(always(ok200))
			_, err := newClient(s).Do(tc.req)
			require.NoError(t, err)
			reqs := s.requests()
			require.Len(t, reqs, 1)
			for _, w := range tc.want {
				assert.Contains(t, reqs[0].Raw, w)
			}
		})
	}
}

func TestUserHeaderReplacesComputed(t *testing.T) {
	s := newFakeSession(always(ok200))
	_, err := newClient(s).Do(&model.Request{
		Method: "POST",
		URL:    "http://www.example.com/",
		JSON:   map[string]int{"a": 1},
		Header: http.Header{"content-type": {"x/y"}},
	})
	require.NoError(t, err)
	raw := s.requests()[0].Raw
	assert.NotContains(t, raw, "application/json")
	assert.Contains(t, raw, "Content-Length: 7\r\n")
}

func TestUserHostAndCookieSpelling(t *testing.T) {
	s := newFakeSession(always(ok200))
	_, err := newClient(s).Do(&model.Request{
		URL:     "http://www.example.com/",
		Header:  http.Header{"host": {"vhost.example"}, "cookie": {"x=1"}},
		Cookies: map[string]string{"a": "1"},
	})
	require.NoError(t, err)
	r := s.requests()[0]
	assert.True(t, strings.HasPrefix(r.Raw, "GET / HTTP/1.1\r\nhost: vhost.example\r\n"), r.Raw)
	assert.Equal(t, "vhost.example", r.Req.Host)
	assert.Equal(t, 1, strings.Count(strings.ToLower(r.Raw), "\r\nhost:"))
	assert.Equal(t, 1, strings.Count(strings.ToLower(r.Raw), "\r\ncookie:"))
	assert.Contains(t, r.Raw, "\r\nCookie: a=1\r\n")
}

func TestBodyFormulation(t *testing.T) {
	cases := map[string]struct {
		req         *model.Request
		contentType string
		body        string
	}{
		"JSON": {
			req:         &model.Request{JSON: map[string]string{"k": "é"}},
			contentType: "application/json",
			body:        `{"k":"é"}`,
		},
		"FormData": {
			req:         &model.Request{Data: map[string]interface{}{"a": "x y", "n": 0, "b": true}},
			contentType: "application/x-www-form-urlencoded",
			body:        "a=x+y&b=true",
		},
		"LiteralData": {
			req:         &model.Request{Data: "<p>hi</p>"},
			contentType: "text/html",
			body:        "<p>hi</p>",
		},
		"DataBeatsJSON": {
			req:         &model.Request{Data: map[string]string{"a": "1"}, JSON: []int{1}},
			contentType: "application/x-www-form-urlencoded",
			body:        "a=1",
		},
		"Latin1Data": {
			req:         &model.Request{Data: "é", Encoding: "latin1"},
			contentType: "text/html",
			body:        "\xe9",
		},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			s := newFakeSession(always(ok200))
			tc.req.Method, tc.req.URL = "POST", "http://www.example.com/"
			_, err := newClient(s).Do(tc.req)
			require.NoError(t, err)
			r := s.requests()[0]
			assert.Equal(t, tc.contentType, r.Req.Header.Get("Content-Type"))
			assert.Equal(t, tc.body, string(r.Body))
			assert.EqualValues(t, len(tc.body), r.Req.ContentLength)
		})
	}
}

func TestMultipartBody(t *testing.T) {
	s := newFakeSession(always(ok200))
	_, err := newClient(s).Do(&model.Request{
		Method: "POST",
		URL:    "http://www.example.com/upload",
		Files:  map[string]string{"doc": "testdata/hello.txt"},
		Data:   map[string]string{"field": "value"},
	})
	require.NoError(t, err)
	r := s.requests()[0]
	require.NoError(t, r.Req.ParseMultipartForm(1<<20))
	assert.Equal(t, "value", r.Req.FormValue("field"))
	fh := r.Req.MultipartForm.File["doc"]
	require.Len(t, fh, 1)
	assert.Equal(t, "hello.txt", fh[0].Filename)
	assert.Equal(t, "text/plain; charset=utf-8", fh[0].Header.Get("Content-Type"))
}

func TestUnsupportedBody(t *testing.T) {
	s := newFakeSession(always(ok200))
	_, err := newClient(s).Do(&model.Request{Method: "POST", URL: "http://www.example.com/", Data: 42})
	assert.ErrorIs(t, err, internal.ErrUnsupportedBody)
	assert.Empty(t, s.requests())
	require.Len(t, s.released, 1)
	assert.False(t, s.released[0].Active())
}

func redirectingTo(status int, location string) handler {
	return func(int, *http.Request, []byte) string {
		return respond(status, "", "Location", location)
	}
}

func TestRedirectBudget(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5} {
		s := newFakeSession(redirectingTo(302, "/again"))
		_, err := newClient(s).Do(&model.Request{URL: "http://www.example.com/", MaxRedirects: model.RedirectLimit(n)})
		require.ErrorIs(t, err, internal.ErrTooManyRedirects)
		assert.Len(t, s.requests(), n+2)

		var uerr *url.Error
		require.ErrorAs(t, err, &uerr)
		assert.Equal(t, "Get", uerr.Op)
	}
}

func TestRedirectBudgetNegative(t *testing.T) {
	s := newFakeSession(redirectingTo(302, "/again"))
	_, err := newClient(s).Do(&model.Request{URL: "http://www.example.com/", MaxRedirects: model.RedirectLimit(-1)})
	require.ErrorIs(t, err, internal.ErrTooManyRedirects)
	assert.Len(t, s.requests(), 1)
	// the connection is still usable
	require.Len(t, s.released, 1)
	assert.True(t, s.released[0].Active())
}

func TestRedirectClientBudget(t *testing.T) {
	s := newFakeSession(redirectingTo(302, "/again"))
	c := newClient(s)
	c.MaxRedirects = model.RedirectLimit(0)
	_, err := c.Do(&model.Request{URL: "http://www.example.com/"})
	require.ErrorIs(t, err, internal.ErrTooManyRedirects)
	assert.Len(t, s.requests(), 2)

	// the request's own budget wins
	s = newFakeSession(redirectingTo(302, "/again"))
	c = newClient(s)
	c.MaxRedirects = model.RedirectLimit(0)
	_, err = c.Do(&model.Request{URL: "http://www.example.com/", MaxRedirects: model.RedirectLimit(3)})
	require.ErrorIs(t, err, internal.ErrTooManyRedirects)
	assert.Len(t, s.requests(), 5)
}

func TestErrorsKeptUnderTimeout(t *testing.T) {
	s := newFakeSession(redirectingTo(302, "/again"))
	_, err := newClient(s).Do(&model.Request{
		URL: "http://www.example.com/", MaxRedirects: model.RedirectLimit(1), Timeout: 5 * time.Second,
	})
	require.ErrorIs(t, err, internal.ErrTooManyRedirects)
	assert.NotErrorIs(t, err, context.Canceled)
	assert.Len(t, s.requests(), 3)

	c := newClient(newFakeSession(always(ok200)))
	c.Timeout = 5 * time.Second
	_, err = c.Do(&model.Request{Method: "POST", URL: "http://www.example.com/", Data: 42})
	assert.ErrorIs(t, err, internal.ErrUnsupportedBody)
}

func TestRedirectDefaultBudget(t *testing.T) {
	s := newFakeSession(redirectingTo(302, "/again"))
	_, err := newClient(s).Do(&model.Request{URL: "http://www.example.com/"})
	require.ErrorIs(t, err, internal.ErrTooManyRedirects)
	assert.Len(t, s.requests(), model.DefaultMaxRedirects+2)
}

func TestRedirect303DropsBody(t *testing.T) {
	s := newFakeSession(func(n int, r *http.Request, _ []byte) string {
		if n == 0 {
			return respond(303, "", "Location", "/b")
		}
		return ok200
	})
	resp, err := newClient(s).Do(&model.Request{
		Method: "POST",
		URL:    "http://www.example.com/a",
		JSON:   map[string]int{"a": 1},
	})
	require.NoError(t, err)
	reqs := s.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "GET", reqs[1].Req.Method)
	assert.Equal(t, "/b", reqs[1].Req.URL.Path)
	assert.Empty(t, reqs[1].Body)
	assert.Empty(t, reqs[1].Req.Header.Get("Content-Type"))
	assert.Equal(t, "0", reqs[1].Req.Header.Get("Content-Length"))

	assert.Equal(t, 200, resp.StatusCode)
	require.Len(t, resp.History, 1)
	assert.Equal(t, 303, resp.History[0].StatusCode)
}

func TestRedirectMethod(t *testing.T) {
	cases := map[int]string{301: "POST", 305: "POST", 302: "GET", 307: "GET", 308: "GET"}
	for status, method := range cases {
		s := newFakeSession(func(n int, r *http.Request, _ []byte) string {
			if n == 0 {
				return respond(status, "", "Location", "/next")
			}
			return ok200
		})
		_, err := newClient(s).Do(&model.Request{Method: "POST", URL: "http://www.example.com/", Data: "x"})
		require.NoError(t, err)
		reqs := s.requests()
		require.Len(t, reqs, 2)
		assert.Equal(t, method, reqs[1].Req.Method, "status %d", status)
	}
}

func TestRelativeRedirect(t *testing.T) {
	s := newFakeSession(func(n int, r *http.Request, _ []byte) string {
		if n == 0 {
			return respond(302, "", "Location", " /new/path?q=1 ")
		}
		return ok200
	})
	resp, err := newClient(s).Do(&model.Request{URL: "https://a.example/old"})
	require.NoError(t, err)
	reqs := s.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/new/path?q=1", reqs[1].Req.RequestURI)
	assert.Equal(t, "a.example", reqs[1].Req.Host)
	// same origin, same connection
	assert.Same(t, reqs[0].Conn, reqs[1].Conn)
	assert.Equal(t, []string{"https://a.example"}, s.origins())
	assert.Empty(t, s.retired)
	require.Len(t, s.released, 1)
	assert.True(t, s.released[0].Active())
	assert.Len(t, resp.History, 1)
}

func TestRedirectWithoutLocation(t *testing.T) {
	s := newFakeSession(always(respond(302, "moved")))
	resp, err := newClient(s).Do(&model.Request{URL: "http://www.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "moved", string(resp.Body))
	assert.Empty(t, resp.History)
}

func TestHeadIsNotRedirected(t *testing.T) {
	s := newFakeSession(always(respond(302, "", "Location", "/x")))
	resp, err := newClient(s).Do(&model.Request{Method: "HEAD", URL: "http://www.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
	assert.Len(t, s.requests(), 1)
}

func TestCrossDomainRedirectWithAuth(t *testing.T) {
	script := func(n int, r *http.Request, _ []byte) string {
		if n == 0 {
			return respond(302, "", "Location", "http://b.other/landing")
		}
		return ok200
	}

	t.Run("Suppressed", func(t *testing.T) {
		s := newFakeSession(script)
		resp, err := newClient(s).Do(&model.Request{
			URL:  "http://a.example/",
			Auth: &auth.Basic{Username: "u", Password: "p"},
		})
		require.NoError(t, err)
		assert.Equal(t, 302, resp.StatusCode)
		assert.Empty(t, resp.History)
		assert.Len(t, s.requests(), 1)
	})

	t.Run("AllowedOffDomain", func(t *testing.T) {
		s := newFakeSession(script)
		resp, err := newClient(s).Do(&model.Request{
			URL:           "http://a.example/",
			Auth:          &auth.Basic{Username: "u", Password: "p"},
			AuthOffDomain: true,
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		reqs := s.requests()
		require.Len(t, reqs, 2)
		assert.Equal(t, "b.other", reqs[1].Req.Host)
		assert.Equal(t, []string{"http://a.example", "http://b.other"}, s.origins())

		// the first connection is retired, the one that ended elsewhere is
		// not pooled again
		require.Len(t, s.retired, 1)
		assert.False(t, s.retired[0].Active())
		require.Len(t, s.released, 1)
		assert.Equal(t, "http://b.other", s.released[0].origin)
		assert.False(t, s.released[0].Active())
	})

	t.Run("NoAuthFollows", func(t *testing.T) {
		s := newFakeSession(script)
		resp, err := newClient(s).Do(&model.Request{URL: "http://a.example/"})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})
}

func TestRedirectSameBaseDomainKeepsAuth(t *testing.T) {
	s := newFakeSession(func(n int, r *http.Request, _ []byte) string {
		if n == 0 {
			return respond(302, "", "Location", "https://api.example.com/v1")
		}
		return ok200
	})
	resp, err := newClient(s).Do(&model.Request{
		URL:  "http://www.example.com/",
		Auth: &auth.Basic{Username: "u", Password: "p"},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	reqs := s.requests()
	require.Len(t, reqs, 2)
	user, pass, ok := reqs[1].Req.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "u", user)
	assert.Equal(t, "p", pass)
}

func TestRedirectSchemeDowngradeSuppressed(t *testing.T) {
	s := newFakeSession(always(respond(302, "", "Location", "http://www.example.com/plain")))
	resp, err := newClient(s).Do(&model.Request{
		URL:  "https://www.example.com/",
		Auth: &auth.Basic{Username: "u", Password: "p"},
	})
	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
	assert.Len(t, s.requests(), 1)
}

func TestConnectionCloseReplacesConn(t *testing.T) {
	s := newFakeSession(func(n int, r *http.Request, _ []byte) string {
		if n == 0 {
			return respond(302, "", "Location", "/next", "Connection", "close")
		}
		return ok200
	})
	_, err := newClient(s).Do(&model.Request{URL: "http://www.example.com/"})
	require.NoError(t, err)
	reqs := s.requests()
	require.Len(t, reqs, 2)
	assert.NotSame(t, reqs[0].Conn, reqs[1].Conn)
	require.Len(t, s.retired, 1)
	assert.Same(t, reqs[0].Conn, s.retired[0])
	require.Len(t, s.released, 1)
	assert.True(t, s.released[0].Active())
}

func TestFinalConnectionClose(t *testing.T) {
	s := newFakeSession(always(respond(200, "bye", "Connection", "close")))
	_, err := newClient(s).Do(&model.Request{URL: "http://www.example.com/"})
	require.NoError(t, err)
	require.Len(t, s.released, 1)
	assert.False(t, s.released[0].Active())
}

func challenge(n int, r *http.Request, _ []byte) string {
	return respond(401, "", "WWW-Authenticate", `Token realm="x"`)
}

func TestPostResponseAuthRetriesOnce(t *testing.T) {
	calls := 0
	strategy := auth.PostFunc(func(_ context.Context, resp *model.Response, req *model.Request) (http.Header, error) {
		calls++
		assert.Equal(t, 401, resp.StatusCode)
		return http.Header{"Authorization": {"Token secret"}}, nil
	})
	s := newFakeSession(challenge)
	resp, err := newClient(s).Do(&model.Request{URL: "http://www.example.com/", Auth: strategy})
	require.NoError(t, err)

	assert.Equal(t, 401, resp.StatusCode)
	require.Len(t, resp.History, 1)
	assert.Equal(t, 401, resp.History[0].StatusCode)
	assert.Equal(t, 1, calls)

	reqs := s.requests()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[0].Req.Header.Get("Authorization"))
	assert.Equal(t, "Token secret", reqs[1].Req.Header.Get("Authorization"))
}

func TestPostResponseAuthSucceeds(t *testing.T) {
	s := newFakeSession(func(n int, r *http.Request, b []byte) string {
		if r.Header.Get("Authorization") == "" {
			return challenge(n, r, b)
		}
		return ok200
	})
	strategy := auth.PostFunc(func(context.Context, *model.Response, *model.Request) (http.Header, error) {
		return http.Header{"Authorization": {"Token secret"}}, nil
	})
	resp, err := newClient(s).Do(&model.Request{URL: "http://www.example.com/", Auth: strategy})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Len(t, resp.History, 1)
}

func TestPostResponseAuthError(t *testing.T) {
	boom := errors.New("boom")
	s := newFakeSession(challenge)
	strategy := auth.PostFunc(func(context.Context, *model.Response, *model.Request) (http.Header, error) {
		return nil, boom
	})
	_, err := newClient(s).Do(&model.Request{URL: "http://www.example.com/", Auth: strategy})
	assert.ErrorIs(t, err, boom)
}

func TestPreResponseAuthDoesNotRetry(t *testing.T) {
	s := newFakeSession(challenge)
	resp, err := newClient(s).Do(&model.Request{
		URL:  "http://www.example.com/",
		Auth: &auth.Basic{Username: "u", Password: "p"},
	})
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
	assert.Empty(t, resp.History)
	reqs := s.requests()
	require.Len(t, reqs, 1)
	_, _, ok := reqs[0].Req.BasicAuth()
	assert.True(t, ok)
}

func TestStreamingResponse(t *testing.T) {
	s := newFakeSession(always(respond(200, "hello stream")))
	resp, err := newClient(s).Do(&model.Request{URL: "http://www.example.com/", Stream: true})
	require.NoError(t, err)
	require.NotNil(t, resp.Stream)
	assert.Empty(t, resp.Body)
	// the connection is held by the stream
	assert.Empty(t, s.released)

	b, err := io.ReadAll(resp.Stream)
	require.NoError(t, err)
	assert.Equal(t, "hello stream", string(b))
	require.Len(t, s.released, 1)
	assert.True(t, s.released[0].Active())

	require.NoError(t, resp.Stream.Close())
	assert.Len(t, s.released, 1)
	_, err = resp.Stream.Read(make([]byte, 1))
	assert.ErrorIs(t, err, internal.ErrStreamConsumed)
}

func TestStreamingClosedEarly(t *testing.T) {
	s := newFakeSession(always(respond(200, strings.Repeat("x", 100))))
	resp, err := newClient(s).Do(&model.Request{URL: "http://www.example.com/", Stream: true})
	require.NoError(t, err)
	_, err = resp.Stream.Read(make([]byte, 10))
	require.NoError(t, err)
	require.NoError(t, resp.Stream.Close())
	require.Len(t, s.released, 1)
	assert.False(t, s.released[0].Active())
}

func TestStreamingReadErrorIsFinal(t *testing.T) {
	s := newFakeSession(always("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nshort"))
	s.dry = true
	resp, err := newClient(s).Do(&model.Request{URL: "http://www.example.com/", Stream: true})
	require.NoError(t, err)

	_, err = io.ReadAll(resp.Stream)
	require.Error(t, err)
	require.Len(t, s.released, 1)
	assert.False(t, s.released[0].Active())

	n, again := resp.Stream.Read(make([]byte, 8))
	assert.Zero(t, n)
	assert.Equal(t, err, again)
	require.NoError(t, resp.Stream.Close())
	assert.Len(t, s.released, 1)
}

func TestStreamingOnlyFor2xx(t *testing.T) {
	s := newFakeSession(always(respond(404, "missing")))
	resp, err := newClient(s).Do(&model.Request{URL: "http://www.example.com/", Stream: true})
	require.NoError(t, err)
	assert.Nil(t, resp.Stream)
	assert.Equal(t, "missing", string(resp.Body))
	require.Len(t, s.released, 1)
}

func TestCallbackConsumesBody(t *testing.T) {
	chunked := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nabc\r\n2\r\nde\r\n0\r\n\r\n"
	s := newFakeSession(always(chunked))
	var got bytes.Buffer
	resp, err := newClient(s).Do(&model.Request{
		URL: "http://www.example.com/",
		Callback: func(chunk []byte) error {
			got.Write(chunk)
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "abcde", got.String())
	assert.Empty(t, resp.Body)
	assert.Nil(t, resp.Stream)
}

func TestCallbackError(t *testing.T) {
	stop := errors.New("stop")
	s := newFakeSession(always(ok200))
	_, err := newClient(s).Do(&model.Request{
		URL:      "http://www.example.com/",
		Callback: func([]byte) error { return stop },
	})
	assert.ErrorIs(t, err, stop)
	require.Len(t, s.released, 1)
	assert.False(t, s.released[0].Active())
}

func TestGzipBody(t *testing.T) {
	var zipped bytes.Buffer
	zw := gzip.NewWriter(&zipped)
	zw.Write([]byte(`{"name":"asks"}`))
	zw.Close()

	s := newFakeSession(always(respond(200, zipped.String(),
		"Content-Encoding", "gzip", "Content-Type", "application/json")))
	resp, err := newClient(s).Do(&model.Request{URL: "http://www.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"asks"}`, string(resp.Body))
	assert.Empty(t, resp.Header.Get("Content-Encoding"))
	assert.Equal(t, "asks", resp.Get("name").String())
}

func TestTimeoutMarksConnInactive(t *testing.T) {
	s := newFakeSession(always(""))
	start := time.Now()
	_, err := newClient(s).Do(&model.Request{URL: "http://www.example.com/", Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var uerr *url.Error
	require.ErrorAs(t, err, &uerr)
	assert.True(t, uerr.Timeout())

	require.Len(t, s.released, 1)
	assert.False(t, s.released[0].Active())
}

func TestCookieJar(t *testing.T) {
	s := newFakeSession(func(n int, r *http.Request, _ []byte) string {
		if n == 0 {
			return respond(200, "", "Set-Cookie", "sid=abc; Path=/")
		}
		return ok200
	})
	c := newClient(s)
	c.Jar = cookies.NewTracker()

	resp, err := c.Do(&model.Request{URL: "http://www.example.com/login"})
	require.NoError(t, err)
	require.Len(t, resp.Cookies, 1)
	assert.Equal(t, "sid", resp.Cookies[0].Name)

	_, err = c.Do(&model.Request{URL: "http://www.example.com/me", Cookies: map[string]string{"x": "1"}})
	require.NoError(t, err)
	reqs := s.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "sid=abc; x=1", reqs[1].Req.Header.Get("Cookie"))
}

func TestJarCookiesStayOnTheirDomain(t *testing.T) {
	s := newFakeSession(func(n int, r *http.Request, _ []byte) string {
		switch n {
		case 0:
			return respond(200, "", "Set-Cookie", "sid=secret; Path=/")
		case 1:
			return respond(302, "", "Location", "http://evil.other/")
		}
		return ok200
	})
	c := newClient(s)
	c.Jar = cookies.NewTracker()

	_, err := c.Do(&model.Request{URL: "http://a.example/login"})
	require.NoError(t, err)
	resp, err := c.Do(&model.Request{URL: "http://a.example/go"})
	require.NoError(t, err)
	assert.Len(t, resp.History, 1)

	reqs := s.requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "sid=secret", reqs[1].Req.Header.Get("Cookie"))
	assert.Equal(t, "evil.other", reqs[2].Req.Host)
	assert.Empty(t, reqs[2].Req.Header.Values("Cookie"))
}

func TestDigestSignsRequestTarget(t *testing.T) {
	s := newFakeSession(func(n int, r *http.Request, b []byte) string {
		if r.Header.Get("Authorization") == "" {
			return respond(401, "", "WWW-Authenticate", `Digest realm="r", nonce="n", qop="auth"`)
		}
		return ok200
	})
	resp, err := newClient(s).Do(&model.Request{
		URL:    "http://www.example.com/p",
		Params: map[string]string{"a": "1"},
		Auth:   &auth.Digest{Username: "u", Password: "p"},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	reqs := s.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/p?a=1", reqs[1].Req.RequestURI)
	assert.Contains(t, reqs[1].Req.Header.Get("Authorization"), `uri="/p?a=1"`)
}

func TestClientTraceHooks(t *testing.T) {
	s := newFakeSession(func(n int, r *http.Request, _ []byte) string {
		if n == 0 {
			return respond(302, "", "Location", "https://other.example/next")
		}
		return ok200
	})
	var gets []string
	var got, headers int
	var wrote []error
	ctx := httptrace.WithClientTrace(context.Background(), &httptrace.ClientTrace{
		GetConn:      func(hostPort string) { gets = append(gets, hostPort) },
		GotConn:      func(info httptrace.GotConnInfo) { got++; assert.False(t, info.Reused) },
		WroteHeaders: func() { headers++ },
		WroteRequest: func(info httptrace.WroteRequestInfo) { wrote = append(wrote, info.Err) },
	})
	_, err := newClient(s).CtxDo(ctx, &model.Request{URL: "http://www.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"www.example.com:80", "other.example:443"}, gets)
	assert.Equal(t, 2, got)
	assert.Equal(t, 2, headers)
	assert.Equal(t, []error{nil, nil}, wrote)
}

func TestRequestNotMutated(t *testing.T) {
	s := newFakeSession(func(n int, r *http.Request, _ []byte) string {
		if n == 0 {
			return respond(303, "", "Location", "/b")
		}
		return ok200
	})
	req := &model.Request{Method: "POST", URL: "http://www.example.com/a", Data: "x"}
	_, err := newClient(s).Do(req)
	require.NoError(t, err)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "http://www.example.com/a", req.URL)
	assert.Equal(t, "x", req.Data)
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(name string) internal.Middleware {
		return func(next internal.Handler) internal.Handler {
			return func(ctx context.Context, req *model.Request) (*model.Response, error) {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}
	c := newClient(newFakeSession(always(ok200)))
	c.Use(mw("first"), mw("second"))
	_, err := c.Do(&model.Request{URL: "http://www.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestBadURL(t *testing.T) {
	c := newClient(newFakeSession(always(ok200)))
	_, err := c.Do(&model.Request{URL: "ftp://www.example.com/"})
	assert.Error(t, err)
	_, err = c.Do(&model.Request{URL: "/relative"})
	assert.Error(t, err)
}
