package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/frankli0324/go-asks/internal/form"
)

// target builds the request-target: the escaped path, the query of the
// URL, then Params.
func (ex *exchange) target() (string, error) {
	path := ex.u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if ex.u.RawQuery != "" {
		path += "?" + ex.u.RawQuery
	}
	if form.IsZero(ex.req.Params) {
		return path, nil
	}
	prefix := "?"
	if ex.u.RawQuery != "" {
		prefix = "&"
	}
	switch p := ex.req.Params.(type) {
	case string:
		q, err := form.Quote(p, ex.enc)
		if err != nil {
			return "", err
		}
		return path + prefix + q, nil
	}
	values, ok := form.Of(ex.req.Params)
	if !ok {
		return "", fmt.Errorf("%w: params of type %T", ErrUnsupportedBody, ex.req.Params)
	}
	q, err := form.Encode(values, prefix, ex.enc)
	if err != nil {
		return "", err
	}
	return path + q, nil
}

// hostHeader renders an authority in ASCII, leaving out ports 80 and 443.
func hostHeader(host, port string) string {
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	if port != "" && port != "80" && port != "443" {
		return net.JoinHostPort(host, port)
	}
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

// assemble builds the header block and body of the current attempt. Later
// sources win over earlier ones: defaults, the body's own headers, the
// client's headers, the request's headers, then authentication and
// cookies.
func (ex *exchange) assemble(ctx context.Context, target string) (http.Header, []byte, error) {
	header := http.Header{
		"Host":            {hostHeader(ex.u.Hostname(), ex.u.Port())},
		"Connection":      {"keep-alive"},
		"Accept-Encoding": {"gzip, deflate"},
		"Accept":          {"*/*"},
		"Content-Length":  {"0"},
		"User-Agent":      {ex.c.UserAgent},
	}

	body, contentType, err := ex.body(ctx)
	if err != nil {
		return nil, nil, err
	}
	if contentType != "" {
		header.Set("Content-Type", contentType)
		header.Set("Content-Length", strconv.Itoa(len(body)))
	}

	mergeHeader(header, ex.c.Header)
	mergeHeader(header, ex.req.Header)

	auth, err := ex.authHeaders(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	mergeHeader(header, auth)

	if cookie := cookieHeader(ex.cookies); cookie != "" {
		mergeHeader(header, http.Header{"Cookie": {cookie}})
	}
	return header, body, nil
}

// mergeHeader copies src into dst. Field names match case-insensitively
// and the spelling of src is kept.
func mergeHeader(dst, src http.Header) {
	for k, vs := range src {
		for dk := range dst {
			if strings.EqualFold(dk, k) {
				delete(dst, dk)
			}
		}
		dst[k] = append([]string(nil), vs...)
	}
}

func cookieHeader(cookies map[string]string) string {
	if len(cookies) == 0 {
		return ""
	}
	names := make([]string, 0, len(cookies))
	for k := range cookies {
		names = append(names, k)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, k := range names {
		sb.WriteString(k + "=" + cookies[k] + "; ")
	}
	return strings.TrimSuffix(sb.String(), "; ")
}

// body picks one body source: files with data, files, data, then json.
func (ex *exchange) body(ctx context.Context) ([]byte, string, error) {
	req := ex.req
	hasFiles, hasData := !form.IsZero(req.Files), !form.IsZero(req.Data)
	switch {
	case hasFiles:
		files, ok := form.Of(req.Files)
		if !ok {
			return nil, "", fmt.Errorf("%w: files of type %T", ErrUnsupportedBody, req.Files)
		}
		if hasData {
			data, ok := form.Of(req.Data)
			if !ok {
				return nil, "", fmt.Errorf("%w: data of type %T beside files", ErrUnsupportedBody, req.Data)
			}
			files = form.Merge(files, data)
		}
		mp := form.NewMultipart(ex.enc)
		b, err := mp.Encode(ctx, files)
		return b, mp.ContentType(), err
	case hasData:
		if data, ok := form.Of(req.Data); ok {
			q, err := form.Encode(data, "", ex.enc)
			return []byte(q), "application/x-www-form-urlencoded", err
		}
		switch d := req.Data.(type) {
		case []byte:
			return d, "text/html", nil
		case string:
			b, err := ex.enc(d)
			return b, "text/html", err
		case fmt.Stringer:
			b, err := ex.enc(d.String())
			return b, "text/html", err
		}
		return nil, "", fmt.Errorf("%w: data of type %T", ErrUnsupportedBody, req.Data)
	case req.JSON != nil:
		b, err := json.Marshal(req.JSON)
		return b, "application/json", err
	}
	return nil, "", nil
}
