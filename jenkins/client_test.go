package jenkins

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"jenkins-builder/config"
	"jenkins-builder/exitcode"
)

type recordedRequest struct {
	Method string
	Path   string
	User   string
	Token  string
	Body   string
}

type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	// location, when set, is sent as the Location header; requests that
	// follow it are refused.
	location string
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	user, token, _ := req.BasicAuth()

	r.mu.Lock()
	r.requests = append(r.requests, recordedRequest{
		Method: req.Method,
		Path:   req.URL.EscapedPath(),
		User:   user,
		Token:  token,
		Body:   string(body),
	})
	status := r.status
	r.mu.Unlock()

	if r.location != "" {
		if req.URL.Path == r.location {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Location", r.location)
	}
	if status == 0 {
		status = http.StatusCreated
	}
	w.WriteHeader(status)
}

func (r *recorder) recorded() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.requests...)
}

func newTestClient(t *testing.T, host string, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(host, config.Credentials{User: "alice", Token: "s3cr3t"}, opts...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		project string
		want    string
	}{
		{
			name:    "plain",
			host:    "http://ci.example.com",
			project: "foo",
			want:    "http://ci.example.com/job/foo/build",
		},
		{
			name:    "trailing slash on host",
			host:    "http://ci.example.com/",
			project: "foo",
			want:    "http://ci.example.com/job/foo/build",
		},
		{
			name:    "host with path",
			host:    "https://ci.example.com/jenkins",
			project: "svc1",
			want:    "https://ci.example.com/jenkins/job/svc1/build",
		},
		{
			name:    "host with port",
			host:    "http://localhost:8080",
			project: "api-server",
			want:    "http://localhost:8080/job/api-server/build",
		},
		{
			name:    "slash in project is escaped",
			host:    "http://ci.example.com",
			project: "folder/foo",
			want:    "http://ci.example.com/job/folder%2Ffoo/build",
		},
		{
			name:    "space and reserved characters",
			host:    "http://ci.example.com",
			project: "my job?#",
			want:    "http://ci.example.com/job/my%20job%3F%23/build",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.host)
			if got := c.BuildURL(tt.project); got != tt.want {
				t.Errorf("BuildURL(%q) = %q, want %q", tt.project, got, tt.want)
			}
		})
	}
}

func TestNewClientInvalidHost(t *testing.T) {
	for _, host := range []string{"", "ci.example.com", "ftp://ci.example.com", "http://", "://bad"} {
		t.Run(host, func(t *testing.T) {
			_, err := NewClient(host, config.Credentials{})
			if !errors.Is(err, ErrInvalidHost) {
				t.Fatalf("NewClient(%q) error = %v, want %v", host, err, ErrInvalidHost)
			}
			var coded *exitcode.Error
			if !errors.As(err, &coded) || coded.ExitCode() != exitcode.Client {
				t.Errorf("NewClient(%q) error = %v, want exit code %v", host, err, exitcode.Client)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(rec)
	defer server.Close()

	c := newTestClient(t, server.URL)
	if err := c.Build(context.Background(), "svc1"); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []recordedRequest{{
		Method: http.MethodPost,
		Path:   "/job/svc1/build",
		User:   "alice",
		Token:  "s3cr3t",
		Body:   "",
	}}
	if diff := cmp.Diff(want, rec.recorded()); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

// By default a rejected build is a failure; IgnoreStatus restores the
// transport-only check where any completed request counts as success.
func TestBuildStatusPolicy(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		location     string
		ignoreStatus bool
		wantCode     int
	}{
		{name: "created", status: http.StatusCreated},
		{name: "redirect not followed", status: http.StatusFound, location: "/other/"},
		{name: "see other not followed", status: http.StatusSeeOther, location: "/job/svc1/"},
		{name: "ok", status: http.StatusOK},
		{name: "unauthorized", status: http.StatusUnauthorized, wantCode: 401},
		{name: "not found", status: http.StatusNotFound, wantCode: 404},
		{name: "server error", status: http.StatusInternalServerError, wantCode: 500},
		{name: "unauthorized ignored", status: http.StatusUnauthorized, ignoreStatus: true},
		{name: "server error ignored", status: http.StatusInternalServerError, ignoreStatus: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{status: tt.status, location: tt.location}
			server := httptest.NewServer(rec)
			defer server.Close()

			c := newTestClient(t, server.URL, IgnoreStatus(tt.ignoreStatus))
			err := c.Build(context.Background(), "svc1")
			if got := rec.recorded(); len(got) != 1 {
				t.Errorf("server saw %d requests, want exactly 1: %v", len(got), got)
			}
			if tt.wantCode == 0 {
				if err != nil {
					t.Fatalf("Build() error = %v, want nil", err)
				}
				return
			}

			var buildErr *BuildError
			if !errors.As(err, &buildErr) {
				t.Fatalf("Build() error = %v, want *BuildError", err)
			}
			if buildErr.Project != "svc1" {
				t.Errorf("Project = %q, want %q", buildErr.Project, "svc1")
			}
			if buildErr.ExitCode() != tt.wantCode {
				t.Errorf("ExitCode() = %v, want %v", buildErr.ExitCode(), tt.wantCode)
			}
		})
	}
}

func TestBuildTransportFailure(t *testing.T) {
	server := httptest.NewServer(&recorder{})
	host := server.URL
	server.Close()

	c := newTestClient(t, host)
	err := c.Build(context.Background(), "svc1")

	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("Build() error = %v, want *BuildError", err)
	}
	if buildErr.Status != 0 {
		t.Errorf("Status = %v, want 0", buildErr.Status)
	}
	if buildErr.ExitCode() != exitcode.Unavailable {
		t.Errorf("ExitCode() = %v, want %v", buildErr.ExitCode(), exitcode.Unavailable)
	}
}

func TestBuildCanceled(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(rec)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, server.URL)
	err := c.Build(ctx, "svc1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Build() error = %v, want %v", err, context.Canceled)
	}
	if len(rec.recorded()) != 0 {
		t.Errorf("server saw %d requests, want 0", len(rec.recorded()))
	}
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestWithHTTPClient(t *testing.T) {
	var got *http.Request
	doer := doerFunc(func(req *http.Request) (*http.Response, error) {
		got = req
		return &http.Response{StatusCode: http.StatusCreated, Status: "201 Created", Body: http.NoBody}, nil
	})

	c := newTestClient(t, "https://ci.example.com", WithHTTPClient(doer))
	if err := c.Build(context.Background(), "foo"); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got == nil {
		t.Fatal("Do() was not called")
	}
	if got.ContentLength != 0 {
		t.Errorf("ContentLength = %v, want 0", got.ContentLength)
	}
	if user, token, ok := got.BasicAuth(); !ok || user != "alice" || token != "s3cr3t" {
		t.Errorf("BasicAuth() = %q, %q, %v, want alice, s3cr3t, true", user, token, ok)
	}
}
