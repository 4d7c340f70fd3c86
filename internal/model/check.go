// Package model defines the records persisted by pulsecheck (users, tokens
// and checks), the up/down state type and the field validators shared by the
// registry, the account service and the worker.
package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

// State is the derived health classification of a check.
type State string

const (
	StateUp   State = "up"
	StateDown State = "down"
)

// Valid reports whether s is one of the two known states.
func (s State) Valid() bool {
	return s == StateUp || s == StateDown
}

func (s State) String() string {
	return string(s)
}

// Protocol is the scheme used to reach a check target.
type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
)

// Method is one of the four verbs a check may use.
type Method string

const (
	MethodGet    Method = "get"
	MethodPost   Method = "post"
	MethodPut    Method = "put"
	MethodDelete Method = "delete"
)

const (
	MinTimeoutSeconds = 1
	MaxTimeoutSeconds = 5
)

// hostPattern is deliberately unanchored: a url passes if any part of it
// looks like name.tld.
var hostPattern = regexp.MustCompile(`[A-Za-z]+\.[A-Za-z]{2,}`)

// Check is a monitored endpoint definition plus its derived state.
type Check struct {
	ID             string   `json:"id"`
	Phone          string   `json:"phone"`
	Protocol       Protocol `json:"protocol"`
	URL            string   `json:"url"`
	Method         Method   `json:"method"`
	SuccessCodes   []int    `json:"successCodes"`
	TimeoutSeconds int      `json:"timeoutSeconds"`
	State          State    `json:"state,omitempty"`

	// LastChecked is Unix milliseconds of the last persisted probe, nil
	// until the check has been probed once.
	LastChecked *int64 `json:"lastChecked,omitempty"`
}

// UnmarshalJSON accepts records written by older versions, where state may
// be any value and lastChecked may be false. Such fields decode as empty and
// are settled by Normalize.
func (c *Check) UnmarshalJSON(data []byte) error {
	type plain Check
	var aux struct {
		plain
		State       json.RawMessage `json:"state"`
		LastChecked json.RawMessage `json:"lastChecked"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*c = Check(aux.plain)
	c.State = ""
	c.LastChecked = nil

	var state string
	if json.Unmarshal(aux.State, &state) == nil {
		c.State = State(state)
	}
	var ms float64
	if json.Unmarshal(aux.LastChecked, &ms) == nil {
		v := int64(ms)
		c.LastChecked = &v
	}
	return nil
}

// Target returns the absolute URL probed for the check.
func (c Check) Target() string {
	return string(c.Protocol) + "://" + c.URL
}

// Accepts reports whether code is one of the check's success codes.
func (c Check) Accepts(code int) bool {
	return slices.Contains(c.SuccessCodes, code)
}

// Timeout returns the probe deadline.
func (c Check) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CheckedAt returns the last probe instant, or the zero time if the check
// was never probed.
func (c Check) CheckedAt() time.Time {
	if c.LastChecked == nil {
		return time.Time{}
	}
	return time.UnixMilli(*c.LastChecked)
}

// Normalize fills in worker defaults: an unknown state becomes down and a
// non-positive lastChecked is treated as never checked.
func (c Check) Normalize() Check {
	if !c.State.Valid() {
		c.State = StateDown
	}
	if c.LastChecked != nil && *c.LastChecked <= 0 {
		c.LastChecked = nil
	}
	return c
}

// AlertMessage formats the SMS sent when the check changes state.
func (c Check) AlertMessage() string {
	return fmt.Sprintf("Alert: Your check for %s %s is currently %s.",
		strings.ToUpper(string(c.Method)), c.Target(), c.State)
}

// CheckSpec holds the user-supplied fields of a new check.
type CheckSpec struct {
	Protocol       string `json:"protocol"`
	URL            string `json:"url"`
	Method         string `json:"method"`
	SuccessCodes   []int  `json:"successCodes"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// Validate checks every field and returns the normalized values.
func (s CheckSpec) Validate() (Check, error) {
	protocol, ok := ParseProtocol(s.Protocol)
	if !ok {
		return Check{}, fmt.Errorf("%w: protocol must be http or https", ErrValidation)
	}
	url, ok := ParseURL(s.URL)
	if !ok {
		return Check{}, fmt.Errorf("%w: url must contain a hostname with a top level domain", ErrValidation)
	}
	method, ok := ParseMethod(s.Method)
	if !ok {
		return Check{}, fmt.Errorf("%w: method must be one of get, post, put, delete", ErrValidation)
	}
	if s.SuccessCodes == nil {
		return Check{}, fmt.Errorf("%w: successCodes must be a list of integers", ErrValidation)
	}
	if !ValidTimeout(s.TimeoutSeconds) {
		return Check{}, fmt.Errorf("%w: timeoutSeconds must be between %d and %d",
			ErrValidation, MinTimeoutSeconds, MaxTimeoutSeconds)
	}

	return Check{
		Protocol:       protocol,
		URL:            url,
		Method:         method,
		SuccessCodes:   slices.Clone(s.SuccessCodes),
		TimeoutSeconds: s.TimeoutSeconds,
		State:          StateDown,
	}, nil
}

// CheckPatch holds a partial update. Nil fields were not supplied.
type CheckPatch struct {
	Protocol       *string
	URL            *string
	Method         *string
	SuccessCodes   []int
	TimeoutSeconds *int
}

// Apply copies every supplied, individually valid field onto c and
// reports how many were applied. Invalid fields are skipped.
func (p CheckPatch) Apply(c *Check) int {
	applied := 0
	if p.Protocol != nil {
		if v, ok := ParseProtocol(*p.Protocol); ok {
			c.Protocol = v
			applied++
		}
	}
	if p.URL != nil {
		if v, ok := ParseURL(*p.URL); ok {
			c.URL = v
			applied++
		}
	}
	if p.Method != nil {
		if v, ok := ParseMethod(*p.Method); ok {
			c.Method = v
			applied++
		}
	}
	if p.SuccessCodes != nil {
		c.SuccessCodes = slices.Clone(p.SuccessCodes)
		applied++
	}
	if p.TimeoutSeconds != nil && ValidTimeout(*p.TimeoutSeconds) {
		c.TimeoutSeconds = *p.TimeoutSeconds
		applied++
	}
	return applied
}

// ParseProtocol accepts http or https in any case.
func ParseProtocol(s string) (Protocol, bool) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(s))); p {
	case ProtocolHTTP, ProtocolHTTPS:
		return p, true
	default:
		return "", false
	}
}

// ParseMethod accepts get, post, put or delete in any case.
func ParseMethod(s string) (Method, bool) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return m, true
	default:
		return "", false
	}
}

// ParseURL trims s and requires a name.tld match somewhere in it.
func ParseURL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !hostPattern.MatchString(s) {
		return "", false
	}
	return s, true
}

// ValidTimeout reports whether seconds is within [1, 5].
func ValidTimeout(seconds int) bool {
	return seconds >= MinTimeoutSeconds && seconds <= MaxTimeoutSeconds
}
