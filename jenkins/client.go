// Package jenkins triggers builds on a Jenkins server.
package jenkins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"jenkins-builder/config"
	"jenkins-builder/exitcode"
)

// ErrInvalidHost is returned when the Jenkins host is not an absolute
// http(s) URL.
var ErrInvalidHost = errors.New("invalid Jenkins host URL")

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client holds the authenticated context shared by every build request.
type Client struct {
	host         *url.URL
	credentials  config.Credentials
	http         Doer
	logger       *slog.Logger
	ignoreStatus bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) { c.http = doer }
}

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// IgnoreStatus makes Build succeed whenever the request completes, whatever
// status the server answers with.
func IgnoreStatus(ignore bool) Option {
	return func(c *Client) { c.ignoreStatus = ignore }
}

// NewClient returns a Client posting to host with Basic auth credentials.
func NewClient(host string, credentials config.Credentials, opts ...Option) (*Client, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, exitcode.New(exitcode.Client, fmt.Errorf("%w %q: %v", ErrInvalidHost, host, err))
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, exitcode.New(exitcode.Client, fmt.Errorf("%w %q: want http(s)://host[/path]", ErrInvalidHost, host))
	}

	c := &Client{
		host:        u,
		credentials: credentials,
		http: &http.Client{
			// One request per dispatch; a redirect answers the POST.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:      slog.New(discardHandler{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BuildURL returns {host}/job/{project}/build. The project is escaped as a
// single path segment and trailing slashes on the host are dropped.
func (c *Client) BuildURL(project string) string {
	u := *c.host
	u.Path = strings.TrimRight(c.host.Path, "/") + "/job/" + project + "/build"
	u.RawPath = strings.TrimRight(c.host.EscapedPath(), "/") + "/job/" + url.PathEscape(project) + "/build"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// Build triggers one build of project with an empty POST.
func (c *Client) Build(ctx context.Context, project string) error {
	target := c.BuildURL(project)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, http.NoBody)
	if err != nil {
		return &BuildError{Project: project, Err: err}
	}
	req.SetBasicAuth(c.credentials.User, c.credentials.Token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Debug("triggering build", "project", project, "url", target)
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("build request failed", "project", project, "error", err)
		return &BuildError{Project: project, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Debug("build request completed", "project", project, "status", resp.StatusCode)
	if !c.ignoreStatus && resp.StatusCode >= http.StatusBadRequest {
		c.logger.Debug("build rejected", "project", project, "status", resp.Status)
		return &BuildError{
			Project: project,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("server responded %s", resp.Status),
		}
	}
	return nil
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
