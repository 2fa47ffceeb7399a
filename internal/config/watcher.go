package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cuehook/cuehook/internal/codec"
)

const (
	minIngestPort = 1024
	maxIngestPort = 60000
)

// FrameType is the discriminant of a VideoMode JSON document.
type FrameType string

// Known frame types.
const (
	FrameTypeContent FrameType = "content"
	FrameTypeSlate   FrameType = "slate"
)

// SlateContext carries the identity of a Slate VideoMode: the URL it was
// loaded from, which also doubles as its equality key.
type SlateContext struct {
	URL string `json:"url"`
}

// VideoMode is the tagged union the classifier assigns to every frame: a
// bare Content verdict, or a Slate verdict naming which reference matched.
type VideoMode struct {
	FrameType    FrameType     `json:"frame_type"`
	SlateContext *SlateContext `json:"slate_context,omitempty"`
}

// Content is the canonical non-slate VideoMode value.
func Content() VideoMode { return VideoMode{FrameType: FrameTypeContent} }

// Slate builds a Slate VideoMode identified by url.
func Slate(url string) VideoMode {
	return VideoMode{FrameType: FrameTypeSlate, SlateContext: &SlateContext{URL: url}}
}

// Equal compares two VideoModes by frame type and, for slates, by URL.
func (m VideoMode) Equal(other VideoMode) bool {
	if m.FrameType != other.FrameType {
		return false
	}
	if m.FrameType != FrameTypeSlate {
		return true
	}
	if m.SlateContext == nil || other.SlateContext == nil {
		return m.SlateContext == other.SlateContext
	}
	return m.SlateContext.URL == other.SlateContext.URL
}

// String renders a VideoMode for logs, e.g. "content" or "slate(url)".
func (m VideoMode) String() string {
	if m.FrameType != FrameTypeSlate {
		return string(m.FrameType)
	}
	url := ""
	if m.SlateContext != nil {
		url = m.SlateContext.URL
	}
	return fmt.Sprintf("slate(%s)", url)
}

// UnmarshalJSON validates frame_type and enforces that slate_context is
// present whenever frame_type is "slate".
func (m *VideoMode) UnmarshalJSON(data []byte) error {
	var raw struct {
		FrameType    FrameType     `json:"frame_type"`
		SlateContext *SlateContext `json:"slate_context"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.FrameType {
	case FrameTypeContent:
		if raw.SlateContext != nil {
			return fmt.Errorf("frame_type %q must not carry slate_context", FrameTypeContent)
		}
	case FrameTypeSlate:
		if raw.SlateContext == nil || raw.SlateContext.URL == "" {
			return fmt.Errorf("frame_type %q requires slate_context.url", FrameTypeSlate)
		}
	default:
		return fmt.Errorf("unknown frame_type %q", raw.FrameType)
	}
	m.FrameType = raw.FrameType
	m.SlateContext = raw.SlateContext
	return nil
}

// HTTPMethod is an allowed method for an HttpCall action.
type HTTPMethod string

// Allowed HTTP methods.
const (
	MethodGET    HTTPMethod = "GET"
	MethodPOST   HTTPMethod = "POST"
	MethodPUT    HTTPMethod = "PUT"
	MethodPATCH  HTTPMethod = "PATCH"
	MethodDELETE HTTPMethod = "DELETE"
)

// BasicAuth is HTTP Basic authentication to attach to an HttpCall.
type BasicAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Authorization wraps the supported authorization schemes for an HttpCall.
// Only basic auth is currently supported.
type Authorization struct {
	Basic *BasicAuth `json:"basic,omitempty"`
}

// Action is a side-effect bound to a Transition. HttpCall is the only
// variant; the "type" discriminant is kept for forward JSON compatibility.
type Action struct {
	Type          string         `json:"type"`
	Method        HTTPMethod     `json:"method"`
	URL           string         `json:"url"`
	Description   string         `json:"description,omitempty"`
	Authorization *Authorization `json:"authorization,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	Body          string         `json:"body,omitempty"`
	Retries       *int           `json:"retries,omitempty"`
	Timeout       *int           `json:"timeout,omitempty"` // seconds

}

// RetryCount returns the configured retry count, defaulting to 0 (a single
// attempt, no retries) per spec §4.5.
func (a *Action) RetryCount() int {
	if a.Retries == nil {
		return 0
	}
	return *a.Retries
}

// Validate checks that an Action is well-formed.
func (a *Action) Validate() error {
	if a.Type != "" && a.Type != "http_call" {
		return fmt.Errorf("unsupported action type %q", a.Type)
	}
	switch a.Method {
	case MethodGET, MethodPOST, MethodPUT, MethodPATCH, MethodDELETE:
	default:
		return fmt.Errorf("unsupported http method %q", a.Method)
	}
	if a.URL == "" {
		return fmt.Errorf("action url is required")
	}
	if _, err := url.ParseRequestURI(a.URL); err != nil {
		return fmt.Errorf("invalid action url %q: %w", a.URL, err)
	}
	if a.Retries != nil && *a.Retries < 0 {
		return fmt.Errorf("action retries must be >= 0")
	}
	if a.Timeout != nil && *a.Timeout < 0 {
		return fmt.Errorf("action timeout must be >= 0")
	}
	return nil
}

// Transition is a directed (from, to) VideoMode pair plus the ordered list
// of Actions to execute when that transition fires.
type Transition struct {
	From    VideoMode `json:"from"`
	To      VideoMode `json:"to"`
	Actions []Action  `json:"actions"`
}

// Validate checks a Transition's shape and its URLs against the allowlists.
func (t *Transition) Validate(allowedSchemes, allowedExtensions []string) error {
	for _, mode := range []VideoMode{t.From, t.To} {
		if mode.FrameType == FrameTypeSlate {
			if err := validateSlateURL(mode.SlateContext.URL, allowedSchemes, allowedExtensions); err != nil {
				return err
			}
		}
	}
	for i := range t.Actions {
		if err := t.Actions[i].Validate(); err != nil {
			return fmt.Errorf("action[%d]: %w", i, err)
		}
	}
	return nil
}

func validateSlateURL(raw string, allowedSchemes, allowedExtensions []string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid slate url %q: %w", raw, err)
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "file"
	}
	if !slices.Contains(allowedSchemes, scheme) {
		return fmt.Errorf("slate url %q has disallowed scheme %q (allowed: %s)", raw, scheme, strings.Join(allowedSchemes, ","))
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(u.Path)), ".")
	if ext == "" || !slices.Contains(allowedExtensions, ext) {
		return fmt.Errorf("slate url %q has disallowed extension %q (allowed: %s)", raw, ext, strings.Join(allowedExtensions, ","))
	}
	return nil
}

// Transport names the ingest wire transport, currently always "rtp".
type Transport struct {
	Protocol string `json:"protocol"`
}

// Source describes where and how the worker ingests video.
type Source struct {
	IngestIP   string `json:"ingest_ip,omitempty"`
	IngestPort int    `json:"ingest_port"`
	Container  string `json:"container"`
	Codec      string `json:"codec"`
	Transport  Transport `json:"transport"`
}

// Validate checks the Source's port range and container/codec/transport.
func (s *Source) Validate() error {
	if s.IngestPort <= minIngestPort || s.IngestPort >= maxIngestPort {
		return fmt.Errorf("source.ingest_port %d must satisfy %d < port < %d", s.IngestPort, minIngestPort, maxIngestPort)
	}
	container, err := codec.ValidateContainer(s.Container)
	if err != nil {
		return err
	}
	c, err := codec.ValidateCodec(s.Codec)
	if err != nil {
		return err
	}
	if _, err := codec.ValidateTransport(s.Transport.Protocol); err != nil {
		return err
	}
	if !codec.IsSupportedCombination(container, c) {
		return fmt.Errorf("unsupported container/codec combination %s/%s", s.Container, s.Codec)
	}
	return nil
}

// Status is the lifecycle status reported by the control plane. The worker
// itself does not act on it; it is carried through for round-tripping.
type Status string

// Known status values.
const (
	StatusRunning Status = "running"
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// WatcherConfig is the root configuration document for one Watcher,
// supplied as the worker's single positional CLI argument.
type WatcherConfig struct {
	ID                 string            `json:"id,omitempty"`
	Description        string            `json:"description,omitempty"`
	Status             Status            `json:"status,omitempty"`
	StatusDescription  string            `json:"status_description,omitempty"`
	Source             Source            `json:"source"`
	Transitions        []Transition      `json:"transitions"`
	Tags               map[string]string `json:"tags,omitempty"`
}

// LoadWatcherConfig reads and validates a WatcherConfig document from path.
func LoadWatcherConfig(path string, allowedSchemes, allowedExtensions []string) (*WatcherConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading watcher config %s: %w", path, err)
	}

	var cfg WatcherConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing watcher config %s: %w", path, err)
	}

	if err := cfg.Validate(allowedSchemes, allowedExtensions); err != nil {
		return nil, fmt.Errorf("invalid watcher config %s: %w", path, err)
	}

	return &cfg, nil
}

// Validate checks the full document: source, and every transition's URLs
// and actions.
func (c *WatcherConfig) Validate(allowedSchemes, allowedExtensions []string) error {
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if len(c.Transitions) == 0 {
		return fmt.Errorf("transitions must not be empty")
	}
	for i := range c.Transitions {
		if err := c.Transitions[i].Validate(allowedSchemes, allowedExtensions); err != nil {
			return fmt.Errorf("transitions[%d]: %w", i, err)
		}
	}
	return nil
}

// SlateURLs returns the deduplicated set of every slate URL referenced by
// this config's transitions, in first-seen order.
func (c *WatcherConfig) SlateURLs() []string {
	seen := make(map[string]bool)
	var urls []string
	for _, t := range c.Transitions {
		for _, mode := range []VideoMode{t.From, t.To} {
			if mode.FrameType == FrameTypeSlate && !seen[mode.SlateContext.URL] {
				seen[mode.SlateContext.URL] = true
				urls = append(urls, mode.SlateContext.URL)
			}
		}
	}
	return urls
}
