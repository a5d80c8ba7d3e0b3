package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"jenkins-builder/exitcode"
)

// ProjectsEnv names the environment variable holding the project list.
const ProjectsEnv = "PROJECTS"

var (
	ErrProjectsUnset         = errors.New(ProjectsEnv + " is not set in the environment")
	ErrCredentialsUnreadable = errors.New("couldn't read credentials file")
	ErrInvalidJSON           = errors.New("credentials file doesn't contain valid JSON")
	ErrMissingUser           = errors.New("credentials file is missing valid 'user' key")
	ErrMissingToken          = errors.New("credentials file is missing valid 'token' key")
)

// Arguments are the values taken from the command line.
type Arguments struct {
	CredentialsPath string
	JenkinsHost     string
}

// Credentials authenticate every build request.
type Credentials struct {
	User  string
	Token string
}

// LoadCredentials reads the JSON credentials file at path. It requires
// string values for the top-level keys "user" and "token".
func LoadCredentials(path string) (Credentials, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, exitcode.New(exitcode.Unreadable,
			fmt.Errorf("%w: %v", ErrCredentialsUnreadable, err))
	}
	return ParseCredentials(contents)
}

// ParseCredentials decodes credentials from a JSON document. Keys must match
// exactly; a document that also carries a case variant of "user" or "token"
// is rejected as ambiguous.
func ParseCredentials(contents []byte) (Credentials, error) {
	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(contents)); err != nil {
		return Credentials{}, exitcode.New(exitcode.InvalidJSON,
			fmt.Errorf("%w: %v", ErrInvalidJSON, err))
	}

	// viper folds key case, so the exact keys come from the raw document.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(contents, &keys); err != nil || keys == nil {
		return Credentials{}, exitcode.New(exitcode.InvalidJSON,
			fmt.Errorf("%w: not a JSON object", ErrInvalidJSON))
	}

	user, ok := v.Get("user").(string)
	if !ok || !exactKey(keys, "user") {
		return Credentials{}, exitcode.New(exitcode.MissingUser, ErrMissingUser)
	}

	token, ok := v.Get("token").(string)
	if !ok || !exactKey(keys, "token") {
		return Credentials{}, exitcode.New(exitcode.MissingToken, ErrMissingToken)
	}

	return Credentials{User: user, Token: token}, nil
}

// exactKey reports whether key is present as written and no other key
// collides with it once case is folded.
func exactKey(keys map[string]json.RawMessage, key string) bool {
	if _, ok := keys[key]; !ok {
		return false
	}
	for k := range keys {
		if k != key && strings.ToLower(k) == key {
			return false
		}
	}
	return true
}

// Projects returns the project list from the environment. An unset variable
// is an error, an empty one yields no projects.
func Projects(lookupEnv func(key string) (string, bool)) ([]string, error) {
	value, ok := lookupEnv(ProjectsEnv)
	if !ok {
		return nil, exitcode.New(exitcode.InvalidConfig, ErrProjectsUnset)
	}
	return SplitProjects(value), nil
}

// SplitProjects splits a colon-separated list, dropping empty segments.
func SplitProjects(value string) []string {
	projects := []string{}
	for _, project := range strings.Split(value, ":") {
		if project == "" {
			continue
		}
		projects = append(projects, project)
	}
	return projects
}
