package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"

	"github.com/frankli0324/go-asks"
)

type requestOptions struct {
	method        string
	headers       []string
	data          string
	json          string
	form          []string
	files         []string
	params        []string
	cookies       []string
	user          string
	digest        bool
	bearer        string
	authOffDomain bool
	stream        bool
	timeout       time.Duration
	maxRedirects  int
	encoding      string
	include       bool
	pick          string
	schema        string
	repeat        int
}

func newRequestCmd(g *globalOptions) *cobra.Command {
	o := &requestOptions{}
	cmd := &cobra.Command{
		Use:     "request [flags] URL",
		Aliases: []string{"req", "r"},
		Short:   "Send one request and print the response",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, g, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.method, "method", "X", "", "request method, GET unless a body is given")
	f.StringArrayVarP(&o.headers, "header", "H", nil, `header to send, "Name: value"`)
	f.StringVarP(&o.data, "data", "d", "", "literal request body")
	f.StringVar(&o.json, "json", "", "JSON request body")
	f.StringArrayVar(&o.form, "form", nil, "urlencoded form field, name=value")
	f.StringArrayVarP(&o.files, "file", "F", nil, "multipart part, name=path")
	f.StringArrayVar(&o.params, "param", nil, "query parameter, name=value")
	f.StringArrayVarP(&o.cookies, "cookie", "b", nil, "cookie to send, name=value")
	f.StringVarP(&o.user, "user", "u", "", "credentials, user:password")
	f.BoolVar(&o.digest, "digest", false, "answer a digest challenge with --user")
	f.StringVar(&o.bearer, "bearer", "", "bearer token")
	f.BoolVar(&o.authOffDomain, "auth-off-domain", false, "keep following redirects that leave the domain with credentials")
	f.BoolVar(&o.stream, "stream", false, "copy a 2xx body to stdout as it arrives")
	f.DurationVar(&o.timeout, "timeout", 0, "bound for the whole exchange")
	f.IntVar(&o.maxRedirects, "max-redirects", 0, "redirect budget: N follows N+1 redirects, negative fails on the first (default 20)")
	f.StringVar(&o.encoding, "encoding", "", "character set for the request text")
	f.BoolVarP(&o.include, "include", "i", false, "print the response headers")
	f.StringVar(&o.pick, "pick", "", "print only this gjson path of a JSON body")
	f.StringVar(&o.schema, "schema", "", "validate a JSON body against this JSON schema file")
	f.IntVar(&o.repeat, "repeat", 1, "send the request this many times and report latencies")
	return cmd
}

func pairs(list []string, sep string) (asks.Values, error) {
	var v asks.Values
	for _, item := range list {
		k, val, ok := strings.Cut(item, sep)
		if !ok {
			return nil, fmt.Errorf("expected name%svalue, got %q", sep, item)
		}
		v.Add(strings.TrimSpace(k), strings.TrimSpace(val))
	}
	return v, nil
}

func (o *requestOptions) build(url string) (*asks.Request, error) {
	req := &asks.Request{
		Method:        strings.ToUpper(o.method),
		URL:           url,
		Header:        asks.Header{},
		AuthOffDomain: o.authOffDomain,
		Stream:        o.stream,
		Timeout:       o.timeout,
		Encoding:      o.encoding,
	}
	for _, h := range o.headers {
		k, v, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header %q", h)
		}
		req.Header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}
	if req.Header.Get("X-Request-Id") == "" {
		req.Header.Set("X-Request-Id", uuid.NewString())
	}

	var err error
	if len(o.params) > 0 {
		if req.Params, err = pairs(o.params, "="); err != nil {
			return nil, err
		}
	}
	if len(o.cookies) > 0 {
		c, err := pairs(o.cookies, "=")
		if err != nil {
			return nil, err
		}
		req.Cookies = map[string]string{}
		for _, f := range c {
			req.Cookies[f.Key] = f.Value.(string)
		}
	}
	switch {
	case len(o.form) > 0:
		if req.Data, err = pairs(o.form, "="); err != nil {
			return nil, err
		}
	case o.data != "":
		req.Data = o.data
	}
	if len(o.files) > 0 {
		if req.Files, err = pairs(o.files, "="); err != nil {
			return nil, err
		}
	}
	if o.json != "" {
		if !json.Valid([]byte(o.json)) {
			return nil, errors.New("--json is not valid JSON")
		}
		req.JSON = json.RawMessage(o.json)
	}
	if req.Method == "" {
		req.Method = "GET"
		if req.Data != nil || req.Files != nil || req.JSON != nil {
			req.Method = "POST"
		}
	}

	switch {
	case o.bearer != "":
		req.Auth = asks.StaticToken(o.bearer)
	case o.user != "":
		user, pass, _ := strings.Cut(o.user, ":")
		if o.digest {
			req.Auth = &asks.Digest{Username: user, Password: pass}
		} else {
			req.Auth = &asks.Basic{Username: user, Password: pass}
		}
	}
	return req, nil
}

func (o *requestOptions) run(cmd *cobra.Command, g *globalOptions, url string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	client, err := g.client(stderr)
	if err != nil {
		return err
	}
	req, err := o.build(url)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("max-redirects") {
		req.MaxRedirects = asks.RedirectLimit(o.maxRedirects)
	}
	if o.repeat < 1 {
		o.repeat = 1
	}

	lat := newLatencies()
	var resp *asks.Response
	for i := 0; i < o.repeat; i++ {
		if resp != nil && resp.Stream != nil {
			resp.Stream.Close()
		}
		start := time.Now()
		resp, err = client.CtxDo(cmd.Context(), req)
		lat.record(time.Since(start), err)
		if err != nil && o.repeat == 1 {
			return err
		}
	}
	if o.repeat > 1 {
		lat.report(stderr)
	}
	if resp == nil {
		return err
	}
	return o.print(stdout, stderr, resp)
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 500:
		return color.New(color.FgRed, color.Bold)
	case code >= 400:
		return color.New(color.FgRed)
	case code >= 300:
		return color.New(color.FgYellow)
	}
	return color.New(color.FgGreen)
}

func (o *requestOptions) print(stdout, stderr io.Writer, resp *asks.Response) error {
	dim := color.New(color.Faint)
	for _, h := range resp.History {
		dim.Fprintf(stderr, "HTTP/%s %s -> %s\n", h.HTTPVersion, h.Status(), h.Header.Get("Location"))
	}
	statusColor(resp.StatusCode).Fprintf(stderr, "HTTP/%s %s\n", resp.HTTPVersion, resp.Status())
	if o.include {
		keys := make([]string, 0, len(resp.Header))
		for k := range resp.Header {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		cyan := color.New(color.FgCyan).SprintFunc()
		for _, k := range keys {
			for _, v := range resp.Header[k] {
				fmt.Fprintf(stderr, "%s: %s\n", cyan(k), v)
			}
		}
	}

	if resp.Stream != nil {
		defer resp.Stream.Close()
		_, err := io.Copy(stdout, resp.Stream)
		return err
	}
	if o.schema != "" {
		if err := validateSchema(o.schema, resp.Body); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(stderr, "schema: valid")
	}
	if o.pick != "" {
		r := resp.Get(o.pick)
		if !r.Exists() {
			return fmt.Errorf("%s: no such path in the response", o.pick)
		}
		fmt.Fprintln(stdout, r.String())
		return nil
	}
	text, err := resp.Text()
	if err != nil {
		_, err = stdout.Write(resp.Body)
		return err
	}
	fmt.Fprint(stdout, text)
	return nil
}

func validateSchema(path string, body []byte) error {
	schema, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}
