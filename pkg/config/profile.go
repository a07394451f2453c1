package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Profile is one [profiles.<name>] table. Pointer fields are nil when the key
// is absent. Timeout is in seconds and RetryDelay in milliseconds.
type Profile struct {
	Provider    *string  `toml:"provider"`
	Model       *string  `toml:"model"`
	System      *string  `toml:"system"`
	Prompt      *string  `toml:"prompt"`
	Postprompt  *string  `toml:"postprompt"`
	Temperature *float64 `toml:"temperature"`
	MaxTokens   *int     `toml:"max_tokens"`
	Timeout     *int     `toml:"timeout"`
	Retries     *int     `toml:"retries"`
	RetryDelay  *int     `toml:"retry_delay"`
	Output      *string  `toml:"output"`
	ShowUsage   *bool    `toml:"show_usage"`
	FailOnEmpty *bool    `toml:"fail_on_empty"`
}

// File is the parsed profile file.
type File struct {
	Path     string             `toml:"-"`
	Profiles map[string]Profile `toml:"profiles"`
}

// Path locates the profile file: $MP_CONFIG, then
// $XDG_CONFIG_HOME/mpipe/config.toml, then $HOME/.config/mpipe/config.toml.
func Path(lookup LookupEnv) (string, error) {
	if v, ok := lookup(EnvConfig); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}
	if v, ok := lookup("XDG_CONFIG_HOME"); ok && strings.TrimSpace(v) != "" {
		return filepath.Join(strings.TrimSpace(v), "mpipe", "config.toml"), nil
	}
	if v, ok := lookup("HOME"); ok && strings.TrimSpace(v) != "" {
		return filepath.Join(strings.TrimSpace(v), ".config", "mpipe", "config.toml"), nil
	}

	return "", &Error{Kind: KindProfileNotFound, Path: "(no MP_CONFIG, XDG_CONFIG_HOME or HOME set)"}
}

// LoadFile reads and decodes the profile file at path. Unknown keys are
// rejected so typos surface instead of being silently ignored.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user.
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Kind: KindProfileNotFound, Path: path}
		}
		return nil, &Error{Kind: KindProfileInvalid, Path: path, Err: err}
	}

	return ParseFile(path, data)
}

// ParseFile decodes profile file contents; path is only used in errors.
func ParseFile(path string, data []byte) (*File, error) {
	f := &File{Path: path}

	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(f)
	if err != nil {
		return nil, &Error{Kind: KindProfileInvalid, Path: path, Err: err}
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, &Error{Kind: KindProfileInvalid, Path: path, Hint: "unknown keys: " + strings.Join(keys, ", ")}
	}

	return f, nil
}

// Names returns the profile names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Profiles))
	for name := range f.Profiles {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// Profile returns the named profile.
func (f *File) Profile(name string) (Profile, error) {
	p, ok := f.Profiles[name]
	if !ok {
		return Profile{}, &Error{Kind: KindProfileUnknown, Name: name, Path: f.Path}
	}
	return p, nil
}

// Validate checks every profile's values the same way resolution would.
func (f *File) Validate() error {
	for _, name := range f.Names() {
		if err := f.Profiles[name].Validate(name); err != nil {
			return fmt.Errorf("%s: %w", f.Path, err)
		}
	}
	return nil
}

// LoadProfile reads the file at path and returns the named profile.
func LoadProfile(path, name string) (Profile, error) {
	f, err := LoadFile(path)
	if err != nil {
		return Profile{}, err
	}

	return f.Profile(name)
}

// Layer converts the profile into a resolution layer named "profile <name>".
func (p Profile) Layer(name string) Layer {
	l := Layer{
		Name:        "profile " + name,
		Provider:    FromPtr(p.Provider),
		Model:       FromPtr(p.Model),
		Temperature: FromPtr(p.Temperature),
		MaxTokens:   FromPtr(p.MaxTokens),
		Retries:     FromPtr(p.Retries),
		Output:      FromPtr(p.Output),
		ShowUsage:   FromPtr(p.ShowUsage),
		FailOnEmpty: FromPtr(p.FailOnEmpty),
		System:      FromPtr(p.System),
		Preprompt:   FromPtr(p.Prompt),
		Postprompt:  FromPtr(p.Postprompt),
	}
	if p.Timeout != nil {
		l.Timeout = Some(time.Duration(*p.Timeout) * time.Second)
	}
	if p.RetryDelay != nil {
		l.RetryDelay = Some(time.Duration(*p.RetryDelay) * time.Millisecond)
	}

	return l
}

// Validate checks the profile's own values. A missing model is allowed since
// flags or the environment may supply it.
func (p Profile) Validate(name string) error {
	l := p.Layer(name)
	if !l.Model.IsSet() {
		l.Model = Some("-")
	}

	_, err := Merge(l)
	return err
}

// MergeProfile sets profiles.<name> in the existing content of the file at path
// and returns the re-encoded file. Other profiles and unrelated tables are kept.
func MergeProfile(path string, existing []byte, name string, p Profile) ([]byte, error) {
	doc := map[string]any{}
	if len(bytes.TrimSpace(existing)) > 0 {
		if _, err := toml.NewDecoder(bytes.NewReader(existing)).Decode(&doc); err != nil {
			return nil, &Error{Kind: KindProfileInvalid, Path: path, Err: err}
		}
	}

	profiles, _ := doc["profiles"].(map[string]any)
	if profiles == nil {
		profiles = map[string]any{}
	}
	profiles[name] = p
	doc["profiles"] = profiles

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("config: encode profile file: %w", err)
	}

	return buf.Bytes(), nil
}
